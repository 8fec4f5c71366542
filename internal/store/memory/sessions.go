package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"authgate/backend/internal/session/domain"
	"authgate/backend/internal/session/repository"
)

// SessionRepository is an in-memory refresh session store keyed by token hash.
type SessionRepository struct {
	failer
	mu     sync.RWMutex
	byHash map[string]*domain.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{byHash: map[string]*domain.Session{}}
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	if err := r.failure(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byHash[s.TokenHash]; ok {
		return errors.New("memory: duplicate refresh token hash")
	}
	c := *s
	r.byHash[s.TokenHash] = &c
	return nil
}

func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	if err := r.failure(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byHash[tokenHash]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (r *SessionRepository) RevokeByTokenHash(ctx context.Context, tokenHash, userID string, at time.Time) (int64, error) {
	if err := r.failure(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byHash[tokenHash]
	if !ok || s.UserID != userID || s.IsRevoked {
		return 0, nil
	}
	s.IsRevoked = true
	s.RevokedAt = &at
	return 1, nil
}

func (r *SessionRepository) RevokeAllByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	if err := r.failure(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.byHash {
		if s.UserID == userID && !s.IsRevoked {
			s.IsRevoked = true
			s.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	if err := r.failure(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for h, s := range r.byHash {
		if s.ExpiresAt.Before(before) {
			delete(r.byHash, h)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (r *SessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byHash)
}

var _ repository.Repository = (*SessionRepository)(nil)
