package repository

import (
	"context"

	"authgate/backend/internal/audit/domain"
)

// Repository defines persistence for security events.
type Repository interface {
	Create(ctx context.Context, e *domain.SecurityEvent) error
	// ListByUser returns the most recent events of the user, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.SecurityEvent, error)
}
