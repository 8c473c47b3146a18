package models

import "time"

// Notification is a message for the signed-in worker. The backend is the
// system of record; the cache allows offline reads.
type Notification struct {
	ID          string
	UserID      string
	Type        string
	Title       string
	Message     string
	ReferenceID string
	Read        bool
	CreatedAt   time.Time
}
