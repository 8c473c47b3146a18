package syncstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Record(ctx context.Context, worker string, at time.Time, runErr error) error {
	var err error
	if runErr == nil {
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO sync_state (worker, last_attempt_at, last_success_at, last_error) VALUES (?, ?, ?, '')
			ON CONFLICT(worker) DO UPDATE SET last_attempt_at = excluded.last_attempt_at,
				last_success_at = excluded.last_success_at, last_error = ''
		`, worker, dbx.FormatTime(at), dbx.FormatTime(at))
	} else {
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO sync_state (worker, last_attempt_at, last_error) VALUES (?, ?, ?)
			ON CONFLICT(worker) DO UPDATE SET last_attempt_at = excluded.last_attempt_at,
				last_error = excluded.last_error
		`, worker, dbx.FormatTime(at), runErr.Error())
	}
	if err != nil {
		return fmt.Errorf("failed to record sync_state[%s]: %w", worker, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, worker string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT worker, last_attempt_at, last_success_at, last_error
		FROM sync_state WHERE worker = ?`, worker)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync_state[%s]: %w", worker, err)
	}
	return &run, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]Run, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT worker, last_attempt_at, last_success_at, last_error
		FROM sync_state ORDER BY worker`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync_state: %w", err)
	}
	defer rows.Close()

	var result []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync_state row: %w", err)
		}
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync_state rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_state`); err != nil {
		return fmt.Errorf("failed to clear sync_state: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run     Run
		attempt string
		success sql.NullString
	)
	if err := s.Scan(&run.Worker, &attempt, &success, &run.LastError); err != nil {
		return Run{}, err
	}
	t, err := dbx.ParseTime(attempt)
	if err != nil {
		return Run{}, err
	}
	run.LastAttemptAt = t
	if run.LastSuccessAt, err = dbx.ParseNullTime(success); err != nil {
		return Run{}, err
	}
	return run, nil
}
