// Package session keeps the server-side ledger of refresh tokens.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"authgate/backend/internal/autherr"
	"authgate/backend/internal/security"
	"authgate/backend/internal/session/domain"
	"authgate/backend/internal/session/repository"
)

// Ledger records refresh tokens and answers whether one is still usable.
// Store failures and timeouts surface as autherr.ErrServiceUnavailable.
type Ledger struct {
	repo    repository.Repository
	timeout time.Duration
	now     func() time.Time
}

// NewLedger returns a Ledger over repo. Each store call is bounded by timeout (0 means no bound).
// now may be nil, in which case time.Now is used.
func NewLedger(repo repository.Repository, timeout time.Duration, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{repo: repo, timeout: timeout, now: now}
}

// CreateSession records refreshToken for userID, expiring ttl from now.
func (l *Ledger) CreateSession(ctx context.Context, userID, refreshToken string, ttl time.Duration, deviceSessionID string) (*domain.Session, error) {
	if userID == "" || refreshToken == "" {
		return nil, errors.New("session: user id and token are required")
	}
	now := l.now().UTC()
	s := &domain.Session{
		ID:              uuid.New().String(),
		UserID:          userID,
		TokenHash:       security.HashToken(refreshToken),
		DeviceSessionID: deviceSessionID,
		ExpiresAt:       now.Add(ttl),
		CreatedAt:       now,
	}
	ctx, cancel := l.bound(ctx)
	defer cancel()
	if err := l.repo.Create(ctx, s); err != nil {
		return nil, autherr.Unavailable(err)
	}
	return s, nil
}

// Check returns nil when refreshToken has a live session owned by userID. Otherwise it
// returns autherr.ErrRefreshTokenNotFound, autherr.ErrTokenRevoked or autherr.ErrRefreshTokenExpired.
func (l *Ledger) Check(ctx context.Context, refreshToken, userID string) error {
	s, err := l.Find(ctx, refreshToken)
	if err != nil {
		return err
	}
	if s == nil || s.UserID != userID {
		return autherr.ErrRefreshTokenNotFound
	}
	if s.IsRevoked {
		return autherr.ErrTokenRevoked
	}
	if s.Expired(l.now().UTC()) {
		return autherr.ErrRefreshTokenExpired
	}
	return nil
}

// IsUsable reports whether refreshToken has a live session owned by userID.
// The error is non-nil only when the store could not answer.
func (l *Ledger) IsUsable(ctx context.Context, refreshToken, userID string) (bool, error) {
	err := l.Check(ctx, refreshToken, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, autherr.ErrServiceUnavailable):
		return false, err
	default:
		return false, nil
	}
}

// Find returns the session recorded for the raw token string, or nil.
func (l *Ledger) Find(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if refreshToken == "" {
		return nil, nil
	}
	ctx, cancel := l.bound(ctx)
	defer cancel()
	s, err := l.repo.GetByTokenHash(ctx, security.HashToken(refreshToken))
	if err != nil {
		return nil, autherr.Unavailable(err)
	}
	return s, nil
}

// Revoke marks the session for refreshToken and userID revoked. It returns how many
// sessions changed; revoking an already revoked or unknown token returns 0.
func (l *Ledger) Revoke(ctx context.Context, refreshToken, userID string) (int64, error) {
	if refreshToken == "" || userID == "" {
		return 0, nil
	}
	ctx, cancel := l.bound(ctx)
	defer cancel()
	n, err := l.repo.RevokeByTokenHash(ctx, security.HashToken(refreshToken), userID, l.now().UTC())
	if err != nil {
		return 0, autherr.Unavailable(err)
	}
	return n, nil
}

// RevokeAll revokes every live session of userID and returns how many changed.
func (l *Ledger) RevokeAll(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, nil
	}
	ctx, cancel := l.bound(ctx)
	defer cancel()
	n, err := l.repo.RevokeAllByUser(ctx, userID, l.now().UTC())
	if err != nil {
		return 0, autherr.Unavailable(err)
	}
	return n, nil
}

// PurgeExpired deletes sessions that expired before the given time.
func (l *Ledger) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()
	n, err := l.repo.DeleteExpired(ctx, before)
	if err != nil {
		return 0, autherr.Unavailable(err)
	}
	return n, nil
}

func (l *Ledger) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.timeout)
}
