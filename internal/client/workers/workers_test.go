package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/metrics"
	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/client/services"
	"github.com/dmitrijs2005/fieldmate/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	err  error
	runs atomic.Int32
}

func (j *countingJob) Name() string { return j.name }
func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

type switchNet struct{ online atomic.Bool }

func (n *switchNet) Online() bool { return n.online.Load() }

func TestScheduler_RunsImmediatelyAndOnKick(t *testing.T) {
	job := &countingJob{name: "reconcile"}
	s := NewScheduler(nil, nil, nil)
	s.Every(time.Hour, job, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, s.Kick("reconcile"))
	require.Eventually(t, func() bool { return job.runs.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.False(t, s.Kick("missing"))

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestScheduler_SkipsNetworkJobsOffline(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWorkerMetrics(reg)
	net := &switchNet{}
	job := &countingJob{name: "notifications"}
	s := NewScheduler(nil, m, net)
	s.Every(time.Hour, job, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool {
		stats, _ := metrics.Summary(reg)
		return len(stats) == 1 && stats[0].Skipped == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, job.runs.Load())

	net.online.Store(true)
	s.Kick("notifications")
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_RunNowRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	failing := &countingJob{name: "locations", err: errors.New("boom")}
	signedOut := &countingJob{name: "reconcile", err: common.ErrNotLoggedIn}
	s := NewScheduler(nil, metrics.NewWorkerMetrics(reg), nil)
	s.Every(time.Hour, failing, false)
	s.Every(time.Hour, signedOut, false)
	ctx := context.Background()

	require.Error(t, s.RunNow(ctx, "locations"))
	require.ErrorIs(t, s.RunNow(ctx, "reconcile"), common.ErrNotLoggedIn)
	require.Error(t, s.RunNow(ctx, "nope"))

	stats, err := metrics.Summary(reg)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, float64(1), stats[0].Failure)
	assert.Equal(t, float64(1), stats[1].Skipped)
	assert.Zero(t, stats[1].Failure)
}

type runLog struct {
	mu   sync.Mutex
	runs map[string]error
}

func (l *runLog) Record(_ context.Context, worker string, _ time.Time, runErr error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs[worker] = runErr
	return nil
}

func TestScheduler_RecordRuns(t *testing.T) {
	log := &runLog{runs: map[string]error{}}
	s := NewScheduler(nil, nil, nil)
	s.RecordRuns(log)
	s.Every(time.Hour, &countingJob{name: "reconcile"}, false)
	s.Every(time.Hour, &countingJob{name: "locations", err: errors.New("boom")}, false)
	s.Every(time.Hour, &countingJob{name: "notifications", err: common.ErrNotLoggedIn}, false)
	ctx := context.Background()

	require.NoError(t, s.RunNow(ctx, "reconcile"))
	require.Error(t, s.RunNow(ctx, "locations"))
	require.Error(t, s.RunNow(ctx, "notifications"))

	require.Contains(t, log.runs, "reconcile")
	assert.NoError(t, log.runs["reconcile"])
	assert.EqualError(t, log.runs["locations"], "boom")
	assert.NotContains(t, log.runs, "notifications")
}

type pinger struct{ err atomic.Value }

func (p *pinger) Ping(context.Context) error {
	if v := p.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func TestOnlineWatcher_Check(t *testing.T) {
	p := &pinger{}
	w := NewOnlineWatcher(p, time.Hour, nil, nil)
	ctx := context.Background()
	assert.False(t, w.Online())

	assert.Equal(t, ModeOnline, w.Check(ctx))
	assert.True(t, w.Online())

	p.err.Store(errors.New("unreachable"))
	assert.Equal(t, ModeOffline, w.Check(ctx))
	assert.Equal(t, ModeOffline, w.Mode())
}

func TestOnlineWatcher_RunPublishesModes(t *testing.T) {
	w := NewOnlineWatcher(&pinger{}, time.Hour, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	modes := w.Subscribe(ctx)
	assert.Equal(t, ModeOffline, <-modes)
	go func() { _ = w.Run(ctx) }()

	select {
	case m := <-modes:
		assert.Equal(t, ModeOnline, m)
	case <-time.After(time.Second):
		t.Fatal("no mode change published")
	}
}

type fakeNotifications struct {
	mu    sync.Mutex
	items []models.Notification
	err   error
}

func (f *fakeNotifications) Refresh(context.Context) error { return f.err }
func (f *fakeNotifications) List(context.Context) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Notification(nil), f.items...), nil
}

type recordingAlerter struct{ ids []string }

func (a *recordingAlerter) Alert(_ context.Context, n models.Notification) {
	a.ids = append(a.ids, n.ID)
}

func TestNotificationPoller_AlertsOncePerUnread(t *testing.T) {
	src := &fakeNotifications{items: []models.Notification{
		{ID: "n1"}, {ID: "n2", Read: true},
	}}
	alerter := &recordingAlerter{}
	p := NewNotificationPoller(src, alerter)
	ctx := context.Background()

	require.NoError(t, p.Run(ctx))
	require.NoError(t, p.Run(ctx))
	assert.Equal(t, []string{"n1"}, alerter.ids)

	src.items = append(src.items, models.Notification{ID: "n3"})
	require.NoError(t, p.Run(ctx))
	assert.Equal(t, []string{"n1", "n3"}, alerter.ids)

	src.err = errors.New("offline")
	require.Error(t, p.Run(ctx))
}

type fakeQueue struct {
	flushes int
	pending int
	err     error
}

func (q *fakeQueue) Flush(context.Context) (services.FlushResult, error) {
	q.flushes++
	return services.FlushResult{}, q.err
}
func (q *fakeQueue) Pending(context.Context) (int, error) { return q.pending, nil }

type hours models.BusinessHours

func (h hours) BusinessHours() models.BusinessHours { return models.BusinessHours(h) }

func TestLocationFlusher_RespectsBusinessHours(t *testing.T) {
	q := &fakeQueue{pending: 4}
	reg := prometheus.NewRegistry()
	schedule := hours{Timezone: "UTC", Days: map[string]models.DayHours{"monday": {Open: "08:00", Close: "17:00"}}}
	f := NewLocationFlusher(q, schedule, metrics.NewWorkerMetrics(reg))
	ctx := context.Background()

	f.now = func() time.Time { return time.Date(2026, 10, 5, 20, 0, 0, 0, time.UTC) }
	require.NoError(t, f.Run(ctx))
	assert.Zero(t, q.flushes)

	f.now = func() time.Time { return time.Date(2026, 10, 5, 9, 0, 0, 0, time.UTC) }
	require.NoError(t, f.Run(ctx))
	assert.Equal(t, 1, q.flushes)

	q.err = errors.New("partial")
	require.Error(t, f.Run(ctx))
}

func TestReconciler_RunsAllSteps(t *testing.T) {
	var ran []string
	step := func(name string, err error) Step {
		return Step{Name: name, Run: func(context.Context) error {
			ran = append(ran, name)
			return err
		}}
	}
	boom := errors.New("boom")
	r := NewReconciler(step("time_entries", boom), step("documents", nil))

	err := r.Run(context.Background())
	assert.Equal(t, []string{"time_entries", "documents"}, ran)
	assert.ErrorIs(t, err, boom)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "time_entries", se.Step)
	assert.Equal(t, ReconcileJob, r.Name())
}
