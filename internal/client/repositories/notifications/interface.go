// Package notifications caches the worker's notifications for offline reads
// and optimistic read/delete updates.
package notifications

import (
	"context"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
)

type Repository interface {
	ReplaceAll(ctx context.Context, userID string, items []models.Notification) error
	Upsert(ctx context.Context, n models.Notification) error
	List(ctx context.Context, userID string) ([]models.Notification, error)
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	SetRead(ctx context.Context, id string, read bool) error
	// SetAllRead marks every notification of the user read and returns the
	// ids that changed.
	SetAllRead(ctx context.Context, userID string) ([]string, error)
	Delete(ctx context.Context, id string) error
}
