package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/common"
	"github.com/dmitrijs2005/fieldmate/internal/dbx"
)

const columns = `id, job_id, name, content_type, remote_url, local_path, synced, created_at`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, d models.JobDocument) error {
	query := `INSERT INTO job_documents (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET job_id = excluded.job_id,
			name = excluded.name,
			content_type = excluded.content_type,
			remote_url = excluded.remote_url,
			local_path = excluded.local_path,
			synced = excluded.synced,
			created_at = excluded.created_at`
	if _, err := r.db.ExecContext(ctx, query, values(d)...); err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", d.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.JobDocument, error) {
	d, err := scan(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM job_documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	return d, err
}

func (r *SQLiteRepository) ListByJob(ctx context.Context, jobID string) ([]models.JobDocument, error) {
	return r.list(ctx, `SELECT `+columns+` FROM job_documents WHERE job_id = ? ORDER BY created_at, id`, jobID)
}

func (r *SQLiteRepository) ListUnsynced(ctx context.Context) ([]models.JobDocument, error) {
	return r.list(ctx, `SELECT `+columns+` FROM job_documents WHERE synced = 0 ORDER BY created_at, id`)
}

func (r *SQLiteRepository) MergeRemote(ctx context.Context, jobID string, remote []models.JobDocument) error {
	return dbx.Atomic(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM job_documents WHERE job_id = ? AND synced = 1`, jobID); err != nil {
			return fmt.Errorf("failed to clear synced documents: %w", err)
		}
		for _, d := range remote {
			d.Synced = true
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO job_documents (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, values(d)...); err != nil {
				return fmt.Errorf("failed to merge document %s: %w", d.ID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM job_documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.JobDocument, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []models.JobDocument
	for rows.Next() {
		d, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.JobDocument, error) {
	var (
		d       models.JobDocument
		synced  int
		created string
	)
	if err := s.Scan(&d.ID, &d.JobID, &d.Name, &d.ContentType, &d.RemoteURL, &d.LocalPath, &synced, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	d.Synced = synced != 0
	t, err := dbx.ParseTime(created)
	if err != nil {
		return nil, fmt.Errorf("document %s: bad created_at: %w", d.ID, err)
	}
	d.CreatedAt = t
	return &d, nil
}

func values(d models.JobDocument) []any {
	return []any{d.ID, d.JobID, d.Name, d.ContentType, d.RemoteURL, d.LocalPath, dbx.BoolToInt(d.Synced), dbx.FormatTime(d.CreatedAt)}
}
