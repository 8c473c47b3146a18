package models

import "time"

// LocationFix is a single GPS reading.
type LocationFix struct {
	Latitude   float64
	Longitude  float64
	Accuracy   *float64
	Speed      *float64
	Heading    *float64
	Altitude   *float64
	RecordedAt time.Time
}

// PendingLocation is a fix waiting in the upload queue together with its
// retry bookkeeping.
type PendingLocation struct {
	ID            int64
	UserID        string
	Fix           LocationFix
	DistanceDelta float64
	CreatedAt     time.Time
	Attempts      int
	LastAttemptAt *time.Time
	LastError     string
}
