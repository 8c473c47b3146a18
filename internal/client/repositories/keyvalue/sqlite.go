package keyvalue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldmate/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (*Record, error) {
	rec := &Record{Key: key}
	err := r.db.QueryRowContext(ctx, `SELECT nonce, value FROM secure_store WHERE key = ?`, key).
		Scan(&rec.Nonce, &rec.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get secure_store[%s]: %w", key, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO secure_store (key, nonce, value) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET nonce = excluded.nonce, value = excluded.value
	`, rec.Key, rec.Nonce, rec.Value)
	if err != nil {
		return fmt.Errorf("failed to set secure_store[%s]: %w", rec.Key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query := `DELETE FROM secure_store WHERE key IN (` + dbx.Placeholders(len(keys)) + `)`
	if _, err := r.db.ExecContext(ctx, query, dbx.Args(keys)...); err != nil {
		return fmt.Errorf("failed to delete secure_store%v: %w", keys, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM secure_store`); err != nil {
		return fmt.Errorf("failed to clear secure_store: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, nonce, value FROM secure_store ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list secure_store: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Key, &rec.Nonce, &rec.Value); err != nil {
			return nil, fmt.Errorf("failed to scan secure_store row: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate secure_store rows: %w", err)
	}
	return result, nil
}
