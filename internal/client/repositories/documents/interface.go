// Package documents caches job attachments. Attachments added offline live
// at a local path with synced=0 until uploaded.
package documents

import (
	"context"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
)

type Repository interface {
	Upsert(ctx context.Context, d models.JobDocument) error
	GetByID(ctx context.Context, id string) (*models.JobDocument, error)
	ListByJob(ctx context.Context, jobID string) ([]models.JobDocument, error)
	ListUnsynced(ctx context.Context) ([]models.JobDocument, error)
	// MergeRemote replaces the job's synced documents with remote, keeping
	// pending local uploads.
	MergeRemote(ctx context.Context, jobID string, remote []models.JobDocument) error
	Delete(ctx context.Context, id string) error
}
