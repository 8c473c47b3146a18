package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/client/repositories/locations"
	"github.com/dmitrijs2005/fieldmate/internal/common"
	"github.com/dmitrijs2005/fieldmate/internal/logging"
	"go.uber.org/multierr"
)

type LocationsAPI interface {
	UploadLocation(ctx context.Context, p models.PendingLocation) error
}

// QueueConfig bounds the location queue.
type QueueConfig struct {
	BatchSize   int
	Cap         int
	MaxAttempts int
}

// FlushResult summarizes one flush pass.
type FlushResult struct {
	Uploaded int
	Failed   int
	Evicted  int
}

// LocationQueue is the durable outbox for GPS fixes. Over Cap, the oldest
// rows are dropped so the newest fixes survive a long outage.
type LocationQueue struct {
	api  LocationsAPI
	repo locations.Repository
	cfg  QueueConfig
	log  logging.Logger
	now  func() time.Time
}

func NewLocationQueue(api LocationsAPI, repo locations.Repository, cfg QueueConfig, log logging.Logger) *LocationQueue {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Cap <= 0 {
		cfg.Cap = common.DefaultQueueCap
	}
	if log == nil {
		log = logging.Nop()
	}
	return &LocationQueue{api: api, repo: repo, cfg: cfg, log: log, now: utcNow}
}

// Enqueue appends a fix and trims the queue to its cap.
func (q *LocationQueue) Enqueue(ctx context.Context, p models.PendingLocation) (int64, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = q.now()
	}
	id, err := q.repo.Enqueue(ctx, p)
	if err != nil {
		return 0, err
	}
	if _, err := q.Trim(ctx); err != nil {
		return id, err
	}
	return id, nil
}

// Trim deletes the oldest rows above the cap.
func (q *LocationQueue) Trim(ctx context.Context) (int64, error) {
	n, err := q.repo.Trim(ctx, q.cfg.Cap)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		q.log.Warn(ctx, "location queue over capacity, dropped oldest fixes", "dropped", n)
	}
	return n, nil
}

// Flush uploads the oldest batch. A failing row records the failure and
// does not stop the rest of the batch; successful rows are deleted together.
func (q *LocationQueue) Flush(ctx context.Context) (FlushResult, error) {
	var res FlushResult
	if q.cfg.MaxAttempts > 0 {
		n, err := q.repo.DeleteExhausted(ctx, q.cfg.MaxAttempts)
		if err != nil {
			return res, err
		}
		res.Evicted = int(n)
	}

	batch, err := q.repo.Oldest(ctx, q.cfg.BatchSize)
	if err != nil {
		return res, err
	}

	var errs error
	done := make([]int64, 0, len(batch))
	for _, p := range batch {
		if ctx.Err() != nil {
			break
		}
		if err := q.api.UploadLocation(ctx, p); err != nil {
			res.Failed++
			errs = multierr.Append(errs, fmt.Errorf("location %d: %w", p.ID, err))
			if rerr := q.repo.RecordFailure(ctx, p.ID, q.now(), err.Error()); rerr != nil {
				errs = multierr.Append(errs, rerr)
			}
			continue
		}
		done = append(done, p.ID)
	}

	if len(done) > 0 {
		if err := q.repo.DeleteByIDs(ctx, done); err != nil {
			return res, multierr.Append(errs, err)
		}
	}
	res.Uploaded = len(done)
	return res, errs
}

func (q *LocationQueue) Pending(ctx context.Context) (int, error) {
	return q.repo.Count(ctx)
}

// Clear drops every queued fix.
func (q *LocationQueue) Clear(ctx context.Context) error {
	return q.repo.Clear(ctx)
}
