package repository

import (
	"context"
	"errors"
	"time"

	"authgate/backend/internal/user/domain"
)

// ErrEmailTaken is returned by Create when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetActiveByEmail returns the user only when is_active is true.
	GetActiveByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	// SetLockedOut flips is_locked_out. Returns false when no user matched.
	SetLockedOut(ctx context.Context, id string, locked bool, at time.Time) (bool, error)
}
