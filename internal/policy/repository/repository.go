package repository

import (
	"context"

	"authgate/backend/internal/policy/domain"
)

// Repository defines persistence for operator policies.
type Repository interface {
	ListEnabled(ctx context.Context) ([]*domain.Policy, error)
	Create(ctx context.Context, p *domain.Policy) error
}
