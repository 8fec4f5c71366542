// Package revocation records individually revoked access tokens by jti.
package revocation

import (
	"context"
	"time"

	"authgate/backend/internal/autherr"
	"authgate/backend/internal/revocation/domain"
	"authgate/backend/internal/revocation/repository"
)

// Index answers whether an access token jti has been revoked.
type Index struct {
	repo    repository.Repository
	timeout time.Duration
	now     func() time.Time
}

// NewIndex returns an Index over repo. now may be nil, in which case time.Now is used.
func NewIndex(repo repository.Repository, timeout time.Duration, now func() time.Time) *Index {
	if now == nil {
		now = time.Now
	}
	return &Index{repo: repo, timeout: timeout, now: now}
}

// Revoke records jti of userID as revoked. Tokens without a jti cannot be revoked
// individually and return autherr.ErrNotRevocable.
func (x *Index) Revoke(ctx context.Context, jti, userID, reason string) error {
	if jti == "" || userID == "" {
		return autherr.ErrNotRevocable
	}
	ctx, cancel := x.bound(ctx)
	defer cancel()
	err := x.repo.Upsert(ctx, &domain.RevokedAccessToken{
		UserID:    userID,
		TokenJTI:  jti,
		Reason:    reason,
		RevokedAt: x.now().UTC(),
	})
	if err != nil {
		return autherr.Unavailable(err)
	}
	return nil
}

// IsRevoked reports whether userID revoked its token jti. An empty jti is never revoked.
func (x *Index) IsRevoked(ctx context.Context, userID, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	ctx, cancel := x.bound(ctx)
	defer cancel()
	revoked, err := x.repo.IsRevoked(ctx, userID, jti)
	if err != nil {
		return false, autherr.Unavailable(err)
	}
	return revoked, nil
}

// Purge removes revocations recorded before the given time.
func (x *Index) Purge(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := x.bound(ctx)
	defer cancel()
	n, err := x.repo.DeleteBefore(ctx, before)
	if err != nil {
		return 0, autherr.Unavailable(err)
	}
	return n, nil
}

func (x *Index) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if x.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, x.timeout)
}
