// Package syncstate remembers when each background worker last ran and
// whether it succeeded, so the app can show how fresh its cache is.
package syncstate

import (
	"context"
	"time"
)

// Run is the bookkeeping row of one worker.
type Run struct {
	Worker        string
	LastAttemptAt time.Time
	// LastSuccessAt is nil until the first successful run.
	LastSuccessAt *time.Time
	LastError     string
}

type Repository interface {
	// Record stores an attempt at at. A nil runErr also moves the success
	// time and clears the last error.
	Record(ctx context.Context, worker string, at time.Time, runErr error) error
	// Get returns nil, nil for a worker that never ran.
	Get(ctx context.Context, worker string) (*Run, error)
	List(ctx context.Context) ([]Run, error)
	Clear(ctx context.Context) error
}
