package memory

import (
	"context"
	"sync"

	"authgate/backend/internal/audit/domain"
	"authgate/backend/internal/audit/repository"
)

// SecurityLogRepository is an append-only in-memory security log.
type SecurityLogRepository struct {
	failer
	mu     sync.RWMutex
	events []*domain.SecurityEvent
}

func NewSecurityLogRepository() *SecurityLogRepository {
	return &SecurityLogRepository{}
}

func (r *SecurityLogRepository) Create(ctx context.Context, e *domain.SecurityEvent) error {
	if err := r.failure(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *e
	r.events = append(r.events, &c)
	return nil
}

func (r *SecurityLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.SecurityEvent, error) {
	if err := r.failure(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.SecurityEvent
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].UserID != userID {
			continue
		}
		c := *r.events[i]
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Actions returns the recorded actions in order, for assertions.
func (r *SecurityLogRepository) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

var _ repository.Repository = (*SecurityLogRepository)(nil)
