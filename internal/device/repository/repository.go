package repository

import (
	"context"
	"time"

	"authgate/backend/internal/device/domain"
)

// Repository defines persistence for device sessions.
type Repository interface {
	Create(ctx context.Context, d *domain.DeviceSession) error
	// GetByID returns the device session for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.DeviceSession, error)
	CountActiveByUser(ctx context.Context, userID string) (int, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.DeviceSession, error)
	// Deactivate closes the device session with the given row id. Closing an inactive session is a no-op.
	Deactivate(ctx context.Context, id string, at time.Time) (int64, error)
	DeactivateAllByUser(ctx context.Context, userID string, at time.Time) (int64, error)
}
