package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/common"
	"github.com/dmitrijs2005/fieldmate/internal/dbx"
)

const selectJobs = `SELECT id, job_number, title, status, customer_name, location, updated_at, payload FROM jobs`

// SQLiteRepository implements Repository over a DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, jobs []models.Job) error {
	return dbx.Atomic(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM jobs`); err != nil {
			return fmt.Errorf("failed to clear jobs: %w", err)
		}
		repo := NewSQLiteRepository(tx)
		for _, j := range jobs {
			if err := repo.Upsert(ctx, j); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) Upsert(ctx context.Context, j models.Job) error {
	payload := j.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	query := `INSERT INTO jobs (id, job_number, title, status, customer_name, location, updated_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET job_number = excluded.job_number,
			title = excluded.title,
			status = excluded.status,
			customer_name = excluded.customer_name,
			location = excluded.location,
			updated_at = excluded.updated_at,
			payload = excluded.payload`
	_, err := r.db.ExecContext(ctx, query,
		j.ID, j.Number, j.Title, string(j.Status), j.CustomerName, j.Location,
		dbx.FormatTime(j.UpdatedAt), []byte(payload))
	if err != nil {
		return fmt.Errorf("failed to upsert job %s: %w", j.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Job, error) {
	return r.query(ctx, selectJobs+` ORDER BY updated_at DESC, id`)
}

// Search filters the cached list in Go: SQLite's lower() folds ASCII only.
func (r *SQLiteRepository) Search(ctx context.Context, query string) ([]models.Job, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var result []models.Job
	for _, j := range all {
		if j.Matches(query) {
			result = append(result, j)
		}
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	jobs, err := r.query(ctx, selectJobs+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, common.ErrorNotFound
	}
	return &jobs[0], nil
}

func (r *SQLiteRepository) SaveDetail(ctx context.Context, d models.JobDetail) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO job_details (id, payload, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		d.ID, []byte(d.Payload), dbx.FormatTime(d.FetchedAt))
	if err != nil {
		return fmt.Errorf("failed to save job detail %s: %w", d.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetDetail(ctx context.Context, id string) (*models.JobDetail, error) {
	var payload []byte
	var fetched string
	err := r.db.QueryRowContext(ctx, `SELECT payload, fetched_at FROM job_details WHERE id = ?`, id).
		Scan(&payload, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job detail %s: %w", id, err)
	}
	fetchedAt, err := dbx.ParseTime(fetched)
	if err != nil {
		return nil, fmt.Errorf("job detail %s: bad fetched_at: %w", id, err)
	}
	return &models.JobDetail{ID: id, Payload: payload, FetchedAt: fetchedAt}, nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.Job, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select jobs: %w", err)
	}
	defer rows.Close()

	var result []models.Job
	for rows.Next() {
		var (
			j       models.Job
			status  string
			updated string
			payload []byte
		)
		if err := rows.Scan(&j.ID, &j.Number, &j.Title, &status, &j.CustomerName, &j.Location, &updated, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		j.Status = models.JobStatus(status)
		if t, err := dbx.ParseTime(updated); err == nil {
			j.UpdatedAt = t
		}
		j.Payload = payload
		// schedule and external reference live only in the payload
		if full, err := models.JobFromPayload(payload); err == nil {
			j.ScheduledStart = full.ScheduledStart
			j.ScheduledEnd = full.ScheduledEnd
			j.ExternalRef = full.ExternalRef
		}
		result = append(result, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job rows: %w", err)
	}
	return result, nil
}
