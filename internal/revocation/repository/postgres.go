package repository

import (
	"context"
	"database/sql"
	"time"

	"authgate/backend/internal/revocation/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a revocation repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Upsert inserts the revocation or updates reason and time for an existing (user_id, token_jti).
func (r *PostgresRepository) Upsert(ctx context.Context, rev *domain.RevokedAccessToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (user_id, token_jti, revoked_reason, revoked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, token_jti)
		DO UPDATE SET revoked_reason = EXCLUDED.revoked_reason, revoked_at = EXCLUDED.revoked_at`,
		rev.UserID, rev.TokenJTI, rev.Reason, rev.RevokedAt,
	)
	return err
}

// IsRevoked reports whether a revocation row exists for (userID, jti).
func (r *PostgresRepository) IsRevoked(ctx context.Context, userID, jti string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_access_tokens WHERE user_id = $1 AND token_jti = $2)`, userID, jti,
	).Scan(&exists)
	return exists, err
}

// DeleteBefore removes revocations older than before.
func (r *PostgresRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM revoked_access_tokens WHERE revoked_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
