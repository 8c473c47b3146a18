package timeentries

import (
	"context"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
)

// Repository describes the local time-entry cache.
type Repository interface {
	// Insert adds a new entry. A second active entry for the same user is
	// rejected with common.ErrActiveEntryExists.
	Insert(ctx context.Context, e models.TimeEntry) error
	// Upsert writes e by id, overwriting every column.
	Upsert(ctx context.Context, e models.TimeEntry) error
	GetByID(ctx context.Context, id string) (*models.TimeEntry, error)
	// Active returns the user's open entry or nil.
	Active(ctx context.Context, userID string) (*models.TimeEntry, error)
	ListByUser(ctx context.Context, userID string) ([]models.TimeEntry, error)
	ListUnsynced(ctx context.Context, userID string) ([]models.TimeEntry, error)
	MarkSynced(ctx context.Context, id string) error
	// MergeRemote replaces the user's synced rows with remote. Unsynced
	// local rows win over remote rows with the same id.
	MergeRemote(ctx context.Context, userID string, remote []models.TimeEntry) error
}
