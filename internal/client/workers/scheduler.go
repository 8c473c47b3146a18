// Package workers runs the client's periodic background jobs: notification
// polling, location upload, reconciliation of unsynced rows and the
// backend reachability probe.
package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/metrics"
	"github.com/dmitrijs2005/fieldmate/internal/common"
	"github.com/dmitrijs2005/fieldmate/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Job is one unit of periodic work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Connectivity reports whether the backend is currently reachable.
type Connectivity interface {
	Online() bool
}

// RunRecorder persists the outcome of each run.
type RunRecorder interface {
	Record(ctx context.Context, worker string, at time.Time, runErr error) error
}

type task struct {
	job          Job
	interval     time.Duration
	needsNetwork bool
	kick         chan struct{}
	mu           sync.Mutex
}

// Scheduler runs every registered job on its own interval. Jobs that need
// the network are skipped while offline. Runs of one job never overlap.
type Scheduler struct {
	log     logging.Logger
	metrics *metrics.WorkerMetrics
	net     Connectivity
	runs    RunRecorder
	tasks   []*task
}

func NewScheduler(log logging.Logger, m *metrics.WorkerMetrics, net Connectivity) *Scheduler {
	if log == nil {
		log = logging.Nop()
	}
	return &Scheduler{log: log, metrics: m, net: net}
}

// RecordRuns makes the scheduler persist every completed or failed run.
func (s *Scheduler) RecordRuns(r RunRecorder) {
	s.runs = r
}

// Every registers job. Register before Run.
func (s *Scheduler) Every(interval time.Duration, job Job, needsNetwork bool) {
	if job == nil || interval <= 0 {
		return
	}
	s.tasks = append(s.tasks, &task{job: job, interval: interval, needsNetwork: needsNetwork, kick: make(chan struct{}, 1)})
}

// Kick asks the named job to run as soon as possible. Repeated kicks before
// the run starts collapse into one.
func (s *Scheduler) Kick(name string) bool {
	for _, t := range s.tasks {
		if t.job.Name() == name {
			select {
			case t.kick <- struct{}{}:
			default:
			}
			return true
		}
	}
	return false
}

// RunNow runs the named job once on the caller's goroutine, ignoring the
// connectivity gate.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	for _, t := range s.tasks {
		if t.job.Name() == name {
			return s.runTask(ctx, t)
		}
	}
	return fmt.Errorf("unknown worker %q", name)
}

// Run starts every job loop and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range s.tasks {
		g.Go(func() error {
			s.loop(ctx, t)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, t *task) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	s.tick(ctx, t)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, t)
		case <-t.kick:
			s.tick(ctx, t)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, t *task) {
	if t.needsNetwork && s.net != nil && !s.net.Online() {
		s.metrics.IncSkipped(t.job.Name())
		return
	}
	_ = s.runTask(ctx, t)
}

func (s *Scheduler) runTask(ctx context.Context, t *task) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	job := t.job
	name := job.Name()
	ctx = logging.ContextWith(ctx, "worker", name)
	start := time.Now()
	err := job.Run(ctx)
	s.metrics.ObserveDuration(name, time.Since(start))

	switch {
	case err == nil:
		s.metrics.IncSuccess(name)
	case errors.Is(err, common.ErrNotLoggedIn):
		s.metrics.IncSkipped(name)
		return err
	case ctx.Err() != nil:
		return err
	default:
		s.metrics.IncFailure(name)
		s.log.Warn(ctx, "worker run failed", "error", err)
		s.record(ctx, name, start, err)
		return err
	}
	s.log.Debug(ctx, "worker run completed", "duration_ms", time.Since(start).Milliseconds())
	s.record(ctx, name, start, nil)
	return nil
}

func (s *Scheduler) record(ctx context.Context, name string, at time.Time, runErr error) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Record(ctx, name, at, runErr); err != nil {
		s.log.Error(ctx, "failed to record worker run", "error", err)
	}
}
