// Package tracking decides which GPS fixes enter the upload queue.
package tracking

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/common"
	"github.com/dmitrijs2005/fieldmate/internal/logging"
)

const earthRadiusMeters = 6371008.8

// Decision is the outcome of Accept.
type Decision int

const (
	Queued Decision = iota
	SkippedClosed
	SkippedTooClose
)

func (d Decision) String() string {
	switch d {
	case Queued:
		return "queued"
	case SkippedClosed:
		return "outside business hours"
	case SkippedTooClose:
		return "below minimum distance"
	default:
		return "unknown"
	}
}

type Queue interface {
	Enqueue(ctx context.Context, p models.PendingLocation) (int64, error)
}

// HoursSource returns the cached business hours.
type HoursSource interface {
	BusinessHours() models.BusinessHours
	UserID() string
}

// Tracker filters fixes by business hours and distance moved since the last
// queued fix.
type Tracker struct {
	queue       Queue
	hours       HoursSource
	minDistance float64
	log         logging.Logger
	now         func() time.Time

	mu   sync.Mutex
	last *models.LocationFix
}

func NewTracker(queue Queue, hours HoursSource, minDistanceMeters float64, log logging.Logger) *Tracker {
	if log == nil {
		log = logging.Nop()
	}
	return &Tracker{queue: queue, hours: hours, minDistance: minDistanceMeters, log: log, now: time.Now}
}

// Accept queues fix when the business is open and the worker has moved at
// least the minimum distance.
func (t *Tracker) Accept(ctx context.Context, fix models.LocationFix) (Decision, error) {
	uid := t.hours.UserID()
	if uid == "" {
		return 0, common.ErrNotLoggedIn
	}
	if fix.RecordedAt.IsZero() {
		fix.RecordedAt = t.now().UTC()
	}
	if !t.hours.BusinessHours().IsOpen(fix.RecordedAt) {
		return SkippedClosed, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var delta float64
	if t.last != nil {
		delta = Distance(*t.last, fix)
		if delta < t.minDistance {
			return SkippedTooClose, nil
		}
	}

	_, err := t.queue.Enqueue(ctx, models.PendingLocation{
		UserID:        uid,
		Fix:           fix,
		DistanceDelta: delta,
		CreatedAt:     t.now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	last := fix
	t.last = &last
	t.log.Debug(ctx, "location queued", "distance_delta", delta)
	return Queued, nil
}

// Reset forgets the last queued fix, so the next one is always accepted.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.last = nil
	t.mu.Unlock()
}

// Distance is the haversine great-circle distance in meters.
func Distance(a, b models.LocationFix) float64 {
	lat1, lat2 := radians(a.Latitude), radians(b.Latitude)
	dLat := lat2 - lat1
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
