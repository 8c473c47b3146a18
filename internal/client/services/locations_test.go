package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/locations"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocationsAPI struct {
	fail     map[float64]error
	uploaded []float64
}

func (f *fakeLocationsAPI) UploadLocation(_ context.Context, p models.PendingLocation) error {
	if err := f.fail[p.Fix.Latitude]; err != nil {
		return err
	}
	f.uploaded = append(f.uploaded, p.Fix.Latitude)
	return nil
}

func newQueue(t *testing.T, api LocationsAPI, cfg QueueConfig) (*LocationQueue, locations.Repository) {
	t.Helper()
	repo := locations.NewSQLiteRepository(repotest.NewDB(t))
	return NewLocationQueue(api, repo, cfg, nil), repo
}

func enqueueN(t *testing.T, q *LocationQueue, n int) {
	t.Helper()
	base := time.Date(2026, 10, 5, 9, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		_, err := q.Enqueue(context.Background(), models.PendingLocation{
			UserID:    "u1",
			Fix:       models.LocationFix{Latitude: float64(i), Longitude: 1, RecordedAt: base.Add(time.Duration(i) * time.Second)},
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
}

func TestLocationQueue_FlushIsolatesFailingRows(t *testing.T) {
	api := &fakeLocationsAPI{fail: map[float64]error{2: errors.New("invalid coordinates")}}
	q, repo := newQueue(t, api, QueueConfig{BatchSize: 10, Cap: 100, MaxAttempts: 3})
	ctx := context.Background()
	enqueueN(t, q, 4)

	res, err := q.Flush(ctx)
	require.Error(t, err)
	assert.Equal(t, FlushResult{Uploaded: 3, Failed: 1}, res)
	assert.Equal(t, []float64{1, 3, 4}, api.uploaded)

	left, err := repo.Oldest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, 1, left[0].Attempts)
	assert.Equal(t, "invalid coordinates", left[0].LastError)
	assert.NotNil(t, left[0].LastAttemptAt)
}

func TestLocationQueue_EvictsExhaustedRows(t *testing.T) {
	api := &fakeLocationsAPI{fail: map[float64]error{1: errors.New("rejected")}}
	q, _ := newQueue(t, api, QueueConfig{BatchSize: 10, Cap: 100, MaxAttempts: 2})
	ctx := context.Background()
	enqueueN(t, q, 1)

	for i := 0; i < 2; i++ {
		_, err := q.Flush(ctx)
		require.Error(t, err)
	}
	res, err := q.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Evicted)

	n, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLocationQueue_BatchSizeBoundsFlush(t *testing.T) {
	api := &fakeLocationsAPI{}
	q, _ := newQueue(t, api, QueueConfig{BatchSize: 2, Cap: 100})
	ctx := context.Background()
	enqueueN(t, q, 5)

	res, err := q.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Uploaded)
	assert.Equal(t, []float64{1, 2}, api.uploaded)

	n, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestLocationQueue_EnqueueTrimsToCap(t *testing.T) {
	q, repo := newQueue(t, &fakeLocationsAPI{}, QueueConfig{Cap: 3})
	ctx := context.Background()
	enqueueN(t, q, 7)

	rows, err := repo.Oldest(ctx, 10)
	require.NoError(t, err)
	var lats []float64
	for _, r := range rows {
		lats = append(lats, r.Fix.Latitude)
	}
	assert.Equal(t, []float64{5, 6, 7}, lats)
}

func TestLocationQueue_Clear(t *testing.T) {
	q, _ := newQueue(t, &fakeLocationsAPI{}, QueueConfig{})
	ctx := context.Background()
	enqueueN(t, q, 2)

	require.NoError(t, q.Clear(ctx))
	n, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
