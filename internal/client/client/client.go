package client

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
)

// API is the backend contract consumed by the services.
type API interface {
	Login(ctx context.Context, email, password string) (models.Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (models.Credentials, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error

	GetBusinessProfile(ctx context.Context) (models.BusinessProfile, error)

	ListAssignments(ctx context.Context, workerID string) ([]models.JobAssignment, error)
	ListJobs(ctx context.Context, ids []string) ([]json.RawMessage, error)
	GetJob(ctx context.Context, id string) (json.RawMessage, error)

	ListTimeEntries(ctx context.Context, userID string) ([]models.TimeEntry, error)
	CreateTimeEntry(ctx context.Context, e models.TimeEntry) (models.TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, e models.TimeEntry) (models.TimeEntry, error)

	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationsRead(ctx context.Context, ids []string, read bool) error
	DeleteNotification(ctx context.Context, id string) error

	ListDocuments(ctx context.Context, jobID string) ([]models.JobDocument, error)
	CreateDocument(ctx context.Context, d models.JobDocument) (models.JobDocument, error)

	UploadLocation(ctx context.Context, p models.PendingLocation) error
}

var _ API = (*RESTClient)(nil)
