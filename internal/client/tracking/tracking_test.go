package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memQueue struct {
	items []models.PendingLocation
	err   error
}

func (q *memQueue) Enqueue(_ context.Context, p models.PendingLocation) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	q.items = append(q.items, p)
	return int64(len(q.items)), nil
}

type staticHours struct {
	hours models.BusinessHours
	user  string
}

func (s staticHours) BusinessHours() models.BusinessHours { return s.hours }
func (s staticHours) UserID() string                      { return s.user }

// 2026-10-05 is a Monday.
var monday = time.Date(2026, 10, 5, 10, 0, 0, 0, time.UTC)

func weekdays() models.BusinessHours {
	return models.BusinessHours{
		Timezone: "UTC",
		Days:     map[string]models.DayHours{"monday": {Open: "08:00", Close: "17:00"}},
	}
}

func fix(lat, lon float64, at time.Time) models.LocationFix {
	return models.LocationFix{Latitude: lat, Longitude: lon, RecordedAt: at}
}

func TestDistance(t *testing.T) {
	// One degree of latitude is roughly 111.2 km.
	d := Distance(fix(0, 0, monday), fix(1, 0, monday))
	assert.InDelta(t, 111195, d, 100)
	assert.Zero(t, Distance(fix(51.5, -0.12, monday), fix(51.5, -0.12, monday)))
}

func TestTracker_Accept(t *testing.T) {
	q := &memQueue{}
	tr := NewTracker(q, staticHours{hours: weekdays(), user: "u1"}, 25, nil)
	ctx := context.Background()

	d, err := tr.Accept(ctx, fix(51.5000, -0.1200, monday))
	require.NoError(t, err)
	assert.Equal(t, Queued, d)

	// About 11 meters north.
	d, err = tr.Accept(ctx, fix(51.5001, -0.1200, monday.Add(time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, SkippedTooClose, d)

	// About 111 meters north.
	d, err = tr.Accept(ctx, fix(51.5010, -0.1200, monday.Add(2*time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, Queued, d)

	require.Len(t, q.items, 2)
	assert.Equal(t, "u1", q.items[1].UserID)
	assert.InDelta(t, 111, q.items[1].DistanceDelta, 2)
	assert.Zero(t, q.items[0].DistanceDelta)
}

func TestTracker_SkipsOutsideHours(t *testing.T) {
	q := &memQueue{}
	tr := NewTracker(q, staticHours{hours: weekdays(), user: "u1"}, 0, nil)

	d, err := tr.Accept(context.Background(), fix(1, 1, monday.Add(8*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, SkippedClosed, d)
	assert.Empty(t, q.items)
	assert.Equal(t, "outside business hours", d.String())
}

func TestTracker_NoScheduleMeansAlwaysOpen(t *testing.T) {
	q := &memQueue{}
	tr := NewTracker(q, staticHours{user: "u1"}, 0, nil)

	d, err := tr.Accept(context.Background(), fix(1, 1, time.Date(2026, 10, 11, 3, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, Queued, d)
}

func TestTracker_QueueFailureKeepsLastFix(t *testing.T) {
	q := &memQueue{err: errors.New("disk full")}
	tr := NewTracker(q, staticHours{user: "u1"}, 25, nil)
	ctx := context.Background()

	_, err := tr.Accept(ctx, fix(1, 1, monday))
	require.Error(t, err)

	q.err = nil
	d, err := tr.Accept(ctx, fix(1, 1, monday))
	require.NoError(t, err)
	assert.Equal(t, Queued, d, "a fix that failed to queue does not become the reference point")

	tr.Reset()
	d, err = tr.Accept(ctx, fix(1, 1, monday))
	require.NoError(t, err)
	assert.Equal(t, Queued, d)
}

func TestTracker_RequiresUser(t *testing.T) {
	tr := NewTracker(&memQueue{}, staticHours{}, 0, nil)
	_, err := tr.Accept(context.Background(), fix(1, 1, monday))
	assert.ErrorIs(t, err, common.ErrNotLoggedIn)
}
