package client

import (
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (t tokenResponse) credentials(now time.Time) models.Credentials {
	c := models.Credentials{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		UserID:       t.User.ID,
		Email:        t.User.Email,
		ExpiresAt:    t.ExpiresAt,
	}
	if c.ExpiresAt == 0 && t.ExpiresIn > 0 {
		c.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second).Unix()
	}
	return c
}

type timeEntryDTO struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	JobID           string     `json:"job_id"`
	StartTime       time.Time  `json:"start_time"`
	FinishTime      *time.Time `json:"finish_time"`
	DurationSeconds int64      `json:"duration_seconds"`
	Notes           string     `json:"notes,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

func timeEntryToDTO(e models.TimeEntry) timeEntryDTO {
	return timeEntryDTO{
		ID:              e.ID,
		UserID:          e.UserID,
		JobID:           e.JobID,
		StartTime:       e.StartTime.UTC(),
		FinishTime:      e.FinishTime,
		DurationSeconds: e.DurationSeconds,
		Notes:           e.Notes,
	}
}

func (d timeEntryDTO) model() models.TimeEntry {
	e := models.TimeEntry{
		ID:              d.ID,
		UserID:          d.UserID,
		JobID:           d.JobID,
		StartTime:       d.StartTime.UTC(),
		FinishTime:      d.FinishTime,
		DurationSeconds: d.DurationSeconds,
		Notes:           d.Notes,
		Synced:          true,
		UpdatedAt:       d.StartTime.UTC(),
	}
	if d.UpdatedAt != nil {
		e.UpdatedAt = d.UpdatedAt.UTC()
	}
	return e
}

type notificationDTO struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     *string   `json:"message"`
	ReferenceID *string   `json:"reference_id"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

func (d notificationDTO) model() models.Notification {
	n := models.Notification{
		ID:        d.ID,
		UserID:    d.UserID,
		Type:      d.Type,
		Title:     d.Title,
		Read:      d.IsRead,
		CreatedAt: d.CreatedAt.UTC(),
	}
	if d.Message != nil {
		n.Message = *d.Message
	}
	if d.ReferenceID != nil {
		n.ReferenceID = *d.ReferenceID
	}
	return n
}

type documentDTO struct {
	ID          string    `json:"id"`
	JobID       string    `json:"job_id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type,omitempty"`
	FileURL     string    `json:"file_url"`
	CreatedAt   time.Time `json:"created_at"`
}

func (d documentDTO) model() models.JobDocument {
	return models.JobDocument{
		ID:          d.ID,
		JobID:       d.JobID,
		Name:        d.Name,
		ContentType: d.ContentType,
		RemoteURL:   d.FileURL,
		Synced:      true,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

type locationDTO struct {
	UserID        string    `json:"user_id"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Accuracy      *float64  `json:"accuracy,omitempty"`
	Speed         *float64  `json:"speed,omitempty"`
	Heading       *float64  `json:"heading,omitempty"`
	Altitude      *float64  `json:"altitude,omitempty"`
	DistanceDelta float64   `json:"distance_delta"`
	RecordedAt    time.Time `json:"recorded_at"`
}
