// Package jobs caches the worker's jobs and job details. Each job is kept as
// the backend's full JSON document next to a handful of projection columns
// used for listing and free-text search.
package jobs

import (
	"context"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
)

type Repository interface {
	// ReplaceAll swaps the cached job list for jobs in one transaction. On
	// error the previous list is left untouched.
	ReplaceAll(ctx context.Context, jobs []models.Job) error
	Upsert(ctx context.Context, job models.Job) error
	List(ctx context.Context) ([]models.Job, error)
	// Search matches query case-insensitively against number, title,
	// location and status.
	Search(ctx context.Context, query string) ([]models.Job, error)
	// GetByID returns common.ErrorNotFound for unknown ids.
	GetByID(ctx context.Context, id string) (*models.Job, error)

	SaveDetail(ctx context.Context, detail models.JobDetail) error
	GetDetail(ctx context.Context, id string) (*models.JobDetail, error)
}
