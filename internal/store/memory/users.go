package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"authgate/backend/internal/user/domain"
	"authgate/backend/internal/user/repository"
)

// UserRepository is an in-memory user store keyed by id, with a unique lower-cased email index.
type UserRepository struct {
	failer
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{byID: map[string]*domain.User{}, byEmail: map[string]string{}}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := r.failure(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clone(r.byID[id]), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := r.failure(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clone(r.byID[r.byEmail[strings.ToLower(email)]]), nil
}

func (r *UserRepository) GetActiveByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil || u == nil || !u.IsActive {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if err := r.failure(); err != nil {
		return err
	}
	if err := u.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := r.byEmail[email]; ok {
		return repository.ErrEmailTaken
	}
	r.byID[u.ID] = clone(u)
	r.byEmail[email] = u.ID
	return nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	if err := r.failure(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.LastLogin = &at
		u.UpdatedAt = at
	}
	return nil
}

func (r *UserRepository) SetLockedOut(ctx context.Context, id string, locked bool, at time.Time) (bool, error) {
	if err := r.failure(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	u.IsLockedOut = locked
	u.UpdatedAt = at
	return true, nil
}

// Deactivate marks the user inactive, as if the account had been disabled.
func (r *UserRepository) Deactivate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.IsActive = false
	}
}

func clone(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}

var _ repository.Repository = (*UserRepository)(nil)
