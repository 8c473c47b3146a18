package timeentries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/common"
	"github.com/dmitrijs2005/fieldmate/internal/dbx"
)

const columns = `id, user_id, job_id, start_time, finish_time, duration_seconds, notes, synced, updated_at`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, e models.TimeEntry) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO time_entries (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, args(e)...)
	if isActiveConflict(err) {
		return common.ErrActiveEntryExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert time entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, e models.TimeEntry) error {
	query := `INSERT INTO time_entries (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id,
			job_id = excluded.job_id,
			start_time = excluded.start_time,
			finish_time = excluded.finish_time,
			duration_seconds = excluded.duration_seconds,
			notes = excluded.notes,
			synced = excluded.synced,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query, args(e)...)
	if isActiveConflict(err) {
		return common.ErrActiveEntryExists
	}
	if err != nil {
		return fmt.Errorf("failed to upsert time entry %s: %w", e.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.TimeEntry, error) {
	e, err := scanOne(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM time_entries WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	return e, err
}

func (r *SQLiteRepository) Active(ctx context.Context, userID string) (*models.TimeEntry, error) {
	e, err := scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM time_entries WHERE user_id = ? AND finish_time IS NULL`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]models.TimeEntry, error) {
	return r.list(ctx, `SELECT `+columns+` FROM time_entries WHERE user_id = ? ORDER BY start_time DESC`, userID)
}

func (r *SQLiteRepository) ListUnsynced(ctx context.Context, userID string) ([]models.TimeEntry, error) {
	return r.list(ctx, `SELECT `+columns+` FROM time_entries WHERE user_id = ? AND synced = 0 ORDER BY start_time`, userID)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE time_entries SET synced = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark time entry %s synced: %w", id, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) MergeRemote(ctx context.Context, userID string, remote []models.TimeEntry) error {
	return dbx.Atomic(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM time_entries WHERE user_id = ? AND synced = 1`, userID); err != nil {
			return fmt.Errorf("failed to clear synced time entries: %w", err)
		}
		// OR IGNORE keeps unsynced local rows, including a local active entry
		// that would collide with a remote one on the active index.
		for _, e := range remote {
			e.Synced = true
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO time_entries (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, args(e)...); err != nil {
				return fmt.Errorf("failed to merge time entry %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) list(ctx context.Context, query string, qargs ...any) ([]models.TimeEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, qargs...)
	if err != nil {
		return nil, fmt.Errorf("failed to select time entries: %w", err)
	}
	defer rows.Close()

	var result []models.TimeEntry
	for rows.Next() {
		e, err := scanOne(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate time entries: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(s scanner) (*models.TimeEntry, error) {
	var (
		e       models.TimeEntry
		start   string
		finish  sql.NullString
		synced  int
		updated string
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.JobID, &start, &finish, &e.DurationSeconds, &e.Notes, &synced, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan time entry: %w", err)
	}
	var err error
	if e.StartTime, err = dbx.ParseTime(start); err != nil {
		return nil, fmt.Errorf("time entry %s: bad start_time: %w", e.ID, err)
	}
	if e.FinishTime, err = dbx.ParseNullTime(finish); err != nil {
		return nil, fmt.Errorf("time entry %s: bad finish_time: %w", e.ID, err)
	}
	if e.UpdatedAt, err = dbx.ParseTime(updated); err != nil {
		return nil, fmt.Errorf("time entry %s: bad updated_at: %w", e.ID, err)
	}
	e.Synced = synced != 0
	return &e, nil
}

func args(e models.TimeEntry) []any {
	return []any{
		e.ID, e.UserID, e.JobID, dbx.FormatTime(e.StartTime), dbx.NullTime(e.FinishTime),
		e.DurationSeconds, e.Notes, dbx.BoolToInt(e.Synced), dbx.FormatTime(e.UpdatedAt),
	}
}

func isActiveConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: time_entries.user_id")
}
