package repository

import (
	"context"
	"time"

	"authgate/backend/internal/revocation/domain"
)

// Repository defines persistence for revoked access tokens.
type Repository interface {
	// Upsert records the revocation. Revoking the same (user, jti) again overwrites reason and time.
	Upsert(ctx context.Context, r *domain.RevokedAccessToken) error
	// IsRevoked reports whether userID revoked its token jti. A revocation filed under another
	// user does not match.
	IsRevoked(ctx context.Context, userID, jti string) (bool, error)
	// DeleteBefore removes revocations recorded before the given time and returns how many were removed.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
