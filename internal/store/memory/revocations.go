package memory

import (
	"context"
	"sync"
	"time"

	"authgate/backend/internal/revocation/domain"
	"authgate/backend/internal/revocation/repository"
)

type revocationKey struct{ userID, jti string }

// RevocationRepository is an in-memory revoked access token store, unique on (user id, jti).
type RevocationRepository struct {
	failer
	mu   sync.RWMutex
	rows map[revocationKey]domain.RevokedAccessToken
}

func NewRevocationRepository() *RevocationRepository {
	return &RevocationRepository{rows: map[revocationKey]domain.RevokedAccessToken{}}
}

func (r *RevocationRepository) Upsert(ctx context.Context, rev *domain.RevokedAccessToken) error {
	if err := r.failure(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[revocationKey{rev.UserID, rev.TokenJTI}] = *rev
	return nil
}

func (r *RevocationRepository) IsRevoked(ctx context.Context, userID, jti string) (bool, error) {
	if err := r.failure(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rows[revocationKey{userID, jti}]
	return ok, nil
}

func (r *RevocationRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	if err := r.failure(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, v := range r.rows {
		if v.RevokedAt.Before(before) {
			delete(r.rows, k)
			n++
		}
	}
	return n, nil
}

// Get returns the stored revocation for (userID, jti).
func (r *RevocationRepository) Get(userID, jti string) (domain.RevokedAccessToken, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.rows[revocationKey{userID, jti}]
	return v, ok
}

// Len returns the number of stored revocations.
func (r *RevocationRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}

var _ repository.Repository = (*RevocationRepository)(nil)
