// Package locations is the durable upload queue for GPS fixes.
//
// Rows are consumed oldest-first (created_at, then id). Failed uploads stay
// queued with their attempt count and last error; Trim bounds the queue by
// evicting the oldest rows.
package locations

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
)

type Repository interface {
	Enqueue(ctx context.Context, p models.PendingLocation) (int64, error)
	Oldest(ctx context.Context, limit int) ([]models.PendingLocation, error)
	DeleteByIDs(ctx context.Context, ids []int64) error
	RecordFailure(ctx context.Context, id int64, at time.Time, msg string) error
	// DeleteExhausted drops rows with at least maxAttempts failed uploads.
	DeleteExhausted(ctx context.Context, maxAttempts int) (int64, error)
	// Trim keeps the newest limit rows and returns how many were removed.
	Trim(ctx context.Context, limit int) (int64, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
