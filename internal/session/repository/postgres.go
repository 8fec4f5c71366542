package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"authgate/backend/internal/db"
	"authgate/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	device := sql.NullString{String: s.DeviceSessionID, Valid: s.DeviceSessionID != ""}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (id, user_id, token_hash, device_session_id, expires_at, is_revoked, revoked_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.UserID, s.TokenHash, device, s.ExpiresAt, s.IsRevoked, db.NullTime(s.RevokedAt), s.CreatedAt,
	)
	return err
}

// GetByTokenHash returns the session for tokenHash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var (
		s         domain.Session
		device    sql.NullString
		revokedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, device_session_id, expires_at, is_revoked, revoked_at, created_at
		FROM refresh_sessions WHERE token_hash = $1`, tokenHash,
	).Scan(&s.ID, &s.UserID, &s.TokenHash, &device, &s.ExpiresAt, &s.IsRevoked, &revokedAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.DeviceSessionID = device.String
	s.ExpiresAt = s.ExpiresAt.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.RevokedAt = db.TimePtr(revokedAt)
	return &s, nil
}

// RevokeByTokenHash revokes the session in a single conditional update.
func (r *PostgresRepository) RevokeByTokenHash(ctx context.Context, tokenHash, userID string, at time.Time) (int64, error) {
	return r.exec(ctx, `
		UPDATE refresh_sessions SET is_revoked = TRUE, revoked_at = $3
		WHERE token_hash = $1 AND user_id = $2 AND NOT is_revoked`, tokenHash, userID, at)
}

// RevokeAllByUser revokes every live session of the user.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	return r.exec(ctx, `
		UPDATE refresh_sessions SET is_revoked = TRUE, revoked_at = $2
		WHERE user_id = $1 AND NOT is_revoked`, userID, at)
}

// DeleteExpired removes sessions whose expiry is before the given time.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return r.exec(ctx, `DELETE FROM refresh_sessions WHERE expires_at < $1`, before)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
