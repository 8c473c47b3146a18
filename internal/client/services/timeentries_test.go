package services

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/client"
	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/repotest"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/timeentries"
	"github.com/dmitrijs2005/fieldmate/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEntriesAPI keeps a remote table keyed by id.
type fakeEntriesAPI struct {
	mu        sync.Mutex
	remote    map[string]models.TimeEntry
	offline   bool
	createErr error
	updateErr error

	creates int
	updates int
}

func newFakeEntriesAPI() *fakeEntriesAPI {
	return &fakeEntriesAPI{remote: map[string]models.TimeEntry{}}
}

func (f *fakeEntriesAPI) ListTimeEntries(_ context.Context, userID string) ([]models.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, errOffline
	}
	var out []models.TimeEntry
	for _, e := range f.remote {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEntriesAPI) CreateTimeEntry(_ context.Context, e models.TimeEntry) (models.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.offline {
		return models.TimeEntry{}, errOffline
	}
	if f.createErr != nil {
		return models.TimeEntry{}, f.createErr
	}
	e.Synced = true
	f.remote[e.ID] = e
	return e, nil
}

func (f *fakeEntriesAPI) UpdateTimeEntry(_ context.Context, e models.TimeEntry) (models.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.offline {
		return models.TimeEntry{}, errOffline
	}
	if f.updateErr != nil {
		return models.TimeEntry{}, f.updateErr
	}
	if _, ok := f.remote[e.ID]; !ok {
		return models.TimeEntry{}, &client.APIError{StatusCode: http.StatusNotFound}
	}
	f.remote[e.ID] = e
	return e, nil
}

func newTimeEntries(t *testing.T, api TimeEntriesAPI) (*TimeEntryService, *recordingReporter, timeentries.Repository) {
	t.Helper()
	repo := timeentries.NewSQLiteRepository(repotest.NewDB(t))
	rep := &recordingReporter{}
	svc := NewTimeEntryService(api, repo, user("u1"), rep, nil)
	return svc, rep, repo
}

func TestTimeEntryService_StartOnline(t *testing.T) {
	api := newFakeEntriesAPI()
	svc, _, _ := newTimeEntries(t, api)
	ctx := context.Background()

	e, err := svc.Start(ctx, "job-1", "")
	require.NoError(t, err)
	assert.True(t, e.Synced)
	assert.True(t, e.Active())
	assert.Contains(t, api.remote, e.ID)

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, e.ID, active.ID)
}

func TestTimeEntryService_SecondStartRejected(t *testing.T) {
	svc, _, _ := newTimeEntries(t, newFakeEntriesAPI())
	ctx := context.Background()

	_, err := svc.Start(ctx, "job-1", "")
	require.NoError(t, err)
	_, err = svc.Start(ctx, "job-2", "")
	assert.ErrorIs(t, err, common.ErrActiveEntryExists)
}

func TestTimeEntryService_ConcurrentStartsLeaveOneActive(t *testing.T) {
	svc, _, _ := newTimeEntries(t, newFakeEntriesAPI())
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Start(ctx, "job-1", "")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, common.ErrActiveEntryExists)
		}
	}
	assert.Equal(t, 1, ok)
	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTimeEntryService_OfflineStartThenSync(t *testing.T) {
	api := newFakeEntriesAPI()
	api.offline = true
	svc, _, _ := newTimeEntries(t, api)
	ctx := context.Background()

	e, err := svc.Start(ctx, "job-1", "")
	require.NoError(t, err)
	assert.False(t, e.Synced)

	api.offline = false
	require.NoError(t, svc.Sync(ctx))
	require.NoError(t, svc.Sync(ctx))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Synced)
	assert.Len(t, api.remote, 1)

	require.NoError(t, svc.Refresh(ctx))
	list, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1, "refresh does not duplicate the uploaded entry")
}

func TestTimeEntryService_SyncReportsPerEntryFailures(t *testing.T) {
	api := newFakeEntriesAPI()
	api.offline = true
	svc, _, _ := newTimeEntries(t, api)
	ctx := context.Background()

	_, err := svc.Start(ctx, "job-1", "")
	require.NoError(t, err)

	err = svc.Sync(ctx)
	assert.ErrorIs(t, err, common.ErrorUnavailable)
}

// slowCreateAPI holds the first create issued after armed is set until
// release is closed.
type slowCreateAPI struct {
	*fakeEntriesAPI
	armed   bool
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *slowCreateAPI) CreateTimeEntry(ctx context.Context, e models.TimeEntry) (models.TimeEntry, error) {
	if s.armed {
		held := false
		s.once.Do(func() { held = true })
		if held {
			close(s.entered)
			<-s.release
		}
	}
	return s.fakeEntriesAPI.CreateTimeEntry(ctx, e)
}

func TestTimeEntryService_SlowSyncDoesNotBlockStop(t *testing.T) {
	api := &slowCreateAPI{fakeEntriesAPI: newFakeEntriesAPI(), entered: make(chan struct{}), release: make(chan struct{})}
	api.offline = true
	svc, _, repo := newTimeEntries(t, api)
	ctx := context.Background()

	started, err := svc.Start(ctx, "job-1", "")
	require.NoError(t, err)
	api.offline = false
	api.armed = true

	syncErr := make(chan error, 1)
	go func() { syncErr <- svc.Sync(ctx) }()
	<-api.entered

	stopped := make(chan error, 1)
	go func() {
		_, err := svc.Stop(ctx, "done")
		stopped <- err
	}()
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(api.release)
		t.Fatal("Stop waited for the sync upload")
	}

	close(api.release)
	require.NoError(t, <-syncErr)

	got, err := repo.GetByID(ctx, started.ID)
	require.NoError(t, err)
	assert.False(t, got.Active())
	assert.False(t, got.Synced, "the stale upload must be redone")

	require.NoError(t, svc.Sync(ctx))
	got, err = repo.GetByID(ctx, started.ID)
	require.NoError(t, err)
	assert.True(t, got.Synced)
	assert.NotNil(t, api.remote[started.ID].FinishTime)
}

func TestTimeEntryService_StopOnline(t *testing.T) {
	api := newFakeEntriesAPI()
	svc, rep, _ := newTimeEntries(t, api)
	ctx := context.Background()
	start := time.Date(2026, 10, 5, 8, 0, 0, 0, time.UTC)
	svc.now = fixedClock(start)

	_, err := svc.Start(ctx, "job-1", "")
	require.NoError(t, err)
	svc.now = fixedClock(start.Add(45 * time.Minute))

	e, err := svc.Stop(ctx, "replaced valve")
	require.NoError(t, err)
	assert.True(t, e.Synced)
	assert.False(t, e.Active())
	assert.Equal(t, int64(2700), e.DurationSeconds)
	assert.Equal(t, "replaced valve", e.Notes)
	assert.Equal(t, 1, api.updates)
	assert.Equal(t, 1, api.creates)
	assert.Empty(t, rep.reports)
}

func TestTimeEntryService_StopUnknownRemotelyCreatesFullEntry(t *testing.T) {
	api := newFakeEntriesAPI()
	api.offline = true
	svc, rep, _ := newTimeEntries(t, api)
	ctx := context.Background()

	_, err := svc.Start(ctx, "job-1", "")
	require.NoError(t, err)
	api.offline = false
	api.creates = 0

	e, err := svc.Stop(ctx, "")
	require.NoError(t, err)
	assert.True(t, e.Synced)
	assert.Equal(t, 1, api.updates)
	assert.Equal(t, 1, api.creates, "exactly one compensating create")
	require.Contains(t, api.remote, e.ID)
	assert.NotNil(t, api.remote[e.ID].FinishTime)
	assert.Empty(t, rep.reports)
}

func TestTimeEntryService_StopCompensationFailureReportsOnce(t *testing.T) {
	api := newFakeEntriesAPI()
	api.offline = true
	svc, rep, repo := newTimeEntries(t, api)
	ctx := context.Background()

	started, err := svc.Start(ctx, "job-1", "")
	require.NoError(t, err)
	api.offline = false
	api.creates = 0
	api.createErr = &client.APIError{StatusCode: http.StatusUnprocessableEntity, Message: "job closed"}

	e, err := svc.Stop(ctx, "")
	require.NoError(t, err)
	assert.False(t, e.Synced)
	assert.Equal(t, 1, api.creates)
	require.Len(t, rep.reports, 1)
	assert.Equal(t, "time_entry.stop", rep.reports[0].where)
	assert.Equal(t, started.ID, rep.reports[0].info["entryId"])

	stored, err := repo.GetByID(ctx, started.ID)
	require.NoError(t, err)
	assert.False(t, stored.Synced)
	assert.False(t, stored.Active())
}

func TestTimeEntryService_StopOfflineKeepsUnsyncedWithoutReport(t *testing.T) {
	api := newFakeEntriesAPI()
	svc, rep, _ := newTimeEntries(t, api)
	ctx := context.Background()

	_, err := svc.Start(ctx, "job-1", "")
	require.NoError(t, err)
	api.offline = true
	api.creates = 0

	e, err := svc.Stop(ctx, "")
	require.NoError(t, err)
	assert.False(t, e.Synced)
	assert.Zero(t, api.creates)
	assert.Empty(t, rep.reports)

	api.offline = false
	require.NoError(t, svc.Sync(ctx))
	assert.NotNil(t, api.remote[e.ID].FinishTime)
}

func TestTimeEntryService_StopWithoutActive(t *testing.T) {
	svc, _, _ := newTimeEntries(t, newFakeEntriesAPI())
	_, err := svc.Stop(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrNoActiveEntry)
}

func TestTimeEntryService_RefreshKeepsUnsyncedLocalRows(t *testing.T) {
	api := newFakeEntriesAPI()
	finished := time.Date(2026, 10, 4, 12, 0, 0, 0, time.UTC)
	api.remote["r1"] = models.TimeEntry{
		ID: "r1", UserID: "u1", JobID: "job-9",
		StartTime: finished.Add(-time.Hour), FinishTime: &finished, DurationSeconds: 3600,
	}
	api.offline = true
	svc, _, _ := newTimeEntries(t, api)
	ctx := context.Background()

	local, err := svc.Start(ctx, "job-1", "")
	require.NoError(t, err)
	api.offline = false

	require.NoError(t, svc.Refresh(ctx))
	list, err := svc.List(ctx)
	require.NoError(t, err)
	ids := []string{}
	for _, e := range list {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []string{"r1", local.ID}, ids)
}

func TestTimeEntryService_NotLoggedIn(t *testing.T) {
	svc := NewTimeEntryService(newFakeEntriesAPI(), timeentries.NewSQLiteRepository(repotest.NewDB(t)), user(""), nil, nil)
	_, err := svc.Start(context.Background(), "job-1", "")
	assert.ErrorIs(t, err, common.ErrNotLoggedIn)
}

func TestTimeEntryService_WatchFollowsStart(t *testing.T) {
	svc, _, _ := newTimeEntries(t, newFakeEntriesAPI())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := svc.Watch(ctx)
	next(t, ch, func(l []models.TimeEntry) bool { return len(l) == 0 })

	_, err := svc.Start(ctx, "job-1", "")
	require.NoError(t, err)
	got := next(t, ch, func(l []models.TimeEntry) bool { return len(l) == 1 })
	assert.Equal(t, "job-1", got[0].JobID)
}
