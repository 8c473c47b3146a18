package models

import "time"

// JobDocument is a file attached to a job. A synced document has a remote
// URL; an unsynced one only exists at LocalPath until uploaded.
type JobDocument struct {
	ID          string
	JobID       string
	Name        string
	ContentType string
	RemoteURL   string
	LocalPath   string
	Synced      bool
	CreatedAt   time.Time
}

// DisplayLocation returns the remote URL, or the local path when the
// document has not been uploaded yet.
func (d JobDocument) DisplayLocation() string {
	if d.RemoteURL != "" {
		return d.RemoteURL
	}
	return d.LocalPath
}
