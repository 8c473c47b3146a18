package models

import "time"

// TimeEntry is a span of work against a job. An entry with a nil FinishTime
// is active; a user has at most one active entry.
type TimeEntry struct {
	ID              string
	UserID          string
	JobID           string
	StartTime       time.Time
	FinishTime      *time.Time
	DurationSeconds int64
	Notes           string
	Synced          bool
	UpdatedAt       time.Time
}

// Active reports whether the entry is still running.
func (e TimeEntry) Active() bool {
	return e.FinishTime == nil
}

// Finish closes the entry at t and derives its duration.
func (e *TimeEntry) Finish(t time.Time) {
	t = t.UTC()
	e.FinishTime = &t
	e.DurationSeconds = int64(t.Sub(e.StartTime) / time.Second)
	if e.DurationSeconds < 0 {
		e.DurationSeconds = 0
	}
}

// Elapsed returns the running or final duration at now.
func (e TimeEntry) Elapsed(now time.Time) time.Duration {
	if e.FinishTime != nil {
		return time.Duration(e.DurationSeconds) * time.Second
	}
	return now.Sub(e.StartTime)
}
