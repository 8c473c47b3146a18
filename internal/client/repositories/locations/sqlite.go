package locations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, p models.PendingLocation) (int64, error) {
	f := p.Fix
	res, err := r.db.ExecContext(ctx, `INSERT INTO pending_locations
		(user_id, latitude, longitude, accuracy, speed, heading, altitude, distance_delta, recorded_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, f.Latitude, f.Longitude, nullFloat(f.Accuracy), nullFloat(f.Speed), nullFloat(f.Heading), nullFloat(f.Altitude),
		p.DistanceDelta, dbx.FormatTime(f.RecordedAt), dbx.FormatTime(p.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue location: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get location id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) Oldest(ctx context.Context, limit int) ([]models.PendingLocation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, latitude, longitude, accuracy, speed, heading, altitude,
			distance_delta, recorded_at, created_at, attempts, last_attempt_at, last_error
		FROM pending_locations ORDER BY created_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending locations: %w", err)
	}
	defer rows.Close()

	var result []models.PendingLocation
	for rows.Next() {
		var (
			p                        models.PendingLocation
			acc, speed, heading, alt sql.NullFloat64
			recorded, created        string
			lastAttempt              sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Fix.Latitude, &p.Fix.Longitude, &acc, &speed, &heading, &alt,
			&p.DistanceDelta, &recorded, &created, &p.Attempts, &lastAttempt, &p.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan pending location: %w", err)
		}
		p.Fix.Accuracy = floatPtr(acc)
		p.Fix.Speed = floatPtr(speed)
		p.Fix.Heading = floatPtr(heading)
		p.Fix.Altitude = floatPtr(alt)
		if p.Fix.RecordedAt, err = dbx.ParseTime(recorded); err != nil {
			return nil, fmt.Errorf("pending location %d: bad recorded_at: %w", p.ID, err)
		}
		if p.CreatedAt, err = dbx.ParseTime(created); err != nil {
			return nil, fmt.Errorf("pending location %d: bad created_at: %w", p.ID, err)
		}
		if p.LastAttemptAt, err = dbx.ParseNullTime(lastAttempt); err != nil {
			return nil, fmt.Errorf("pending location %d: bad last_attempt_at: %w", p.ID, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending locations: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM pending_locations WHERE id IN (` + dbx.Placeholders(len(ids)) + `)`
	if _, err := r.db.ExecContext(ctx, query, dbx.Args(ids)...); err != nil {
		return fmt.Errorf("failed to delete %d pending locations: %w", len(ids), err)
	}
	return nil
}

func (r *SQLiteRepository) RecordFailure(ctx context.Context, id int64, at time.Time, msg string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE pending_locations
		SET attempts = attempts + 1, last_attempt_at = ?, last_error = ? WHERE id = ?`,
		dbx.FormatTime(at), msg, id)
	if err != nil {
		return fmt.Errorf("failed to record failure for location %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExhausted(ctx context.Context, maxAttempts int) (int64, error) {
	if maxAttempts <= 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_locations WHERE attempts >= ?`, maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("failed to evict exhausted locations: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Trim(ctx context.Context, limit int) (int64, error) {
	if limit < 0 {
		limit = 0
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_locations WHERE id IN (
		SELECT id FROM pending_locations ORDER BY created_at DESC, id DESC LIMIT -1 OFFSET ?)`, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to trim pending locations: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_locations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending locations: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_locations`); err != nil {
		return fmt.Errorf("failed to clear pending locations: %w", err)
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
