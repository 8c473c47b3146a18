// Package models defines the client-side domain types mirrored in the local
// cache.
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// JobStatus is the backend's free-form job state. Unknown values are kept
// verbatim.
type JobStatus string

const (
	JobStatusScheduled  JobStatus = "scheduled"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusOnHold     JobStatus = "on_hold"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Job is the listing projection of a job. Payload holds the full backend
// document so fields the client does not know about survive a round trip.
type Job struct {
	ID             string
	Number         string
	Title          string
	Status         JobStatus
	CustomerName   string
	Location       string
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
	ExternalRef    string
	UpdatedAt      time.Time
	Payload        json.RawMessage
}

// jobProjection lists the backend fields the cache indexes.
type jobProjection struct {
	ID             string     `json:"id"`
	Number         string     `json:"job_number"`
	Title          string     `json:"title"`
	Status         string     `json:"status"`
	CustomerName   string     `json:"customer_name"`
	Location       string     `json:"location"`
	ScheduledStart *time.Time `json:"scheduled_start"`
	ScheduledEnd   *time.Time `json:"scheduled_end"`
	ExternalRef    string     `json:"external_ref"`
	UpdatedAt      *time.Time `json:"updated_at"`
}

// JobFromPayload extracts the indexed columns from a backend document.
func JobFromPayload(payload json.RawMessage) (Job, error) {
	var p jobProjection
	if err := json.Unmarshal(payload, &p); err != nil {
		return Job{}, err
	}
	job := Job{
		ID:             p.ID,
		Number:         p.Number,
		Title:          p.Title,
		Status:         JobStatus(p.Status),
		CustomerName:   p.CustomerName,
		Location:       p.Location,
		ScheduledStart: p.ScheduledStart,
		ScheduledEnd:   p.ScheduledEnd,
		ExternalRef:    p.ExternalRef,
		Payload:        append(json.RawMessage(nil), payload...),
	}
	if p.UpdatedAt != nil {
		job.UpdatedAt = p.UpdatedAt.UTC()
	}
	return job, nil
}

// Matches reports whether query is a case-insensitive substring of the
// job number, title, location or status. An empty query matches everything.
func (j Job) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{j.Number, j.Title, j.Location, string(j.Status)} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// JobAssignment links a worker to a job.
type JobAssignment struct {
	ID         string    `json:"id"`
	JobID      string    `json:"job_id"`
	WorkerID   string    `json:"worker_id"`
	Role       string    `json:"role,omitempty"`
	AssignedAt time.Time `json:"assigned_at"`
}

// JobDetail is the cached full document for a single job.
type JobDetail struct {
	ID        string
	Payload   json.RawMessage
	FetchedAt time.Time
}
