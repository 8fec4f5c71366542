package repository

import (
	"context"
	"time"

	"authgate/backend/internal/session/domain"
)

// Repository defines persistence for refresh sessions.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	// GetByTokenHash returns the session for the token hash, or nil if not found.
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	// RevokeByTokenHash revokes the matching non-revoked session owned by userID and
	// returns the number of rows changed (0 or 1).
	RevokeByTokenHash(ctx context.Context, tokenHash, userID string, at time.Time) (int64, error)
	// RevokeAllByUser revokes every non-revoked session of userID.
	RevokeAllByUser(ctx context.Context, userID string, at time.Time) (int64, error)
	// DeleteExpired removes sessions that expired before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
