package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"authgate/backend/internal/db"
	"authgate/backend/internal/device/domain"
)

const deviceColumns = `id, user_id, session_id, device_info, ip_address, is_active, created_at, ended_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a device session repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the device session. The session must have ID and SessionID set.
func (r *PostgresRepository) Create(ctx context.Context, d *domain.DeviceSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_sessions (`+deviceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.UserID, d.SessionID, d.DeviceInfo, d.IPAddress, d.IsActive, d.CreatedAt, db.NullTime(d.EndedAt),
	)
	return err
}

// GetByID returns the device session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.DeviceSession, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM device_sessions WHERE id = $1`, id)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// CountActiveByUser returns how many device sessions of the user are still active.
func (r *PostgresRepository) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM device_sessions WHERE user_id = $1 AND is_active`, userID,
	).Scan(&n)
	return n, err
}

// ListActiveByUser returns the active device sessions of the user, newest first.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.DeviceSession, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+deviceColumns+` FROM device_sessions
		WHERE user_id = $1 AND is_active ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.DeviceSession
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Deactivate closes one device session.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string, at time.Time) (int64, error) {
	return r.exec(ctx, `UPDATE device_sessions SET is_active = FALSE, ended_at = $2 WHERE id = $1 AND is_active`, id, at)
}

// DeactivateAllByUser closes every active device session of the user.
func (r *PostgresRepository) DeactivateAllByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	return r.exec(ctx, `UPDATE device_sessions SET is_active = FALSE, ended_at = $2 WHERE user_id = $1 AND is_active`, userID, at)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(s scanner) (*domain.DeviceSession, error) {
	var (
		d     domain.DeviceSession
		ended sql.NullTime
	)
	if err := s.Scan(&d.ID, &d.UserID, &d.SessionID, &d.DeviceInfo, &d.IPAddress, &d.IsActive, &d.CreatedAt, &ended); err != nil {
		return nil, err
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.EndedAt = db.TimePtr(ended)
	return &d, nil
}
