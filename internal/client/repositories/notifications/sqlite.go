package notifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/common"
	"github.com/dmitrijs2005/fieldmate/internal/dbx"
)

const columns = `id, user_id, type, title, message, reference_id, read, created_at`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, userID string, items []models.Notification) error {
	return dbx.Atomic(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to clear notifications: %w", err)
		}
		repo := NewSQLiteRepository(tx)
		for _, n := range items {
			if err := repo.Upsert(ctx, n); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) Upsert(ctx context.Context, n models.Notification) error {
	query := `INSERT INTO notifications (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id,
			type = excluded.type,
			title = excluded.title,
			message = excluded.message,
			reference_id = excluded.reference_id,
			read = excluded.read,
			created_at = excluded.created_at`
	_, err := r.db.ExecContext(ctx, query, n.ID, n.UserID, n.Type, n.Title, n.Message, n.ReferenceID,
		dbx.BoolToInt(n.Read), dbx.FormatTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert notification %s: %w", n.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID string) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select notifications: %w", err)
	}
	defer rows.Close()

	var result []models.Notification
	for rows.Next() {
		n, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	n, err := scan(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM notifications WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	return n, err
}

func (r *SQLiteRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) SetRead(ctx context.Context, id string, read bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = ? WHERE id = ?`, dbx.BoolToInt(read), id)
	if err != nil {
		return fmt.Errorf("failed to update notification %s: %w", id, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) SetAllRead(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM notifications WHERE user_id = ? AND read = 0`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select unread notifications: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan notification id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unread notifications: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	query := `UPDATE notifications SET read = 1 WHERE id IN (` + dbx.Placeholders(len(ids)) + `)`
	if _, err := r.db.ExecContext(ctx, query, dbx.Args(ids)...); err != nil {
		return nil, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification %s: %w", id, err)
	}
	return expectOne(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Notification, error) {
	var (
		n       models.Notification
		read    int
		created string
	)
	if err := s.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.ReferenceID, &read, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}
	n.Read = read != 0
	t, err := dbx.ParseTime(created)
	if err != nil {
		return nil, fmt.Errorf("notification %s: bad created_at: %w", n.ID, err)
	}
	n.CreatedAt = t
	return &n, nil
}

func expectOne(res sql.Result) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}
