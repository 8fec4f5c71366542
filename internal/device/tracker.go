// Package device tracks the signed-in clients (device sessions) of each user.
package device

import (
	"context"
	"time"

	"github.com/google/uuid"

	"authgate/backend/internal/autherr"
	"authgate/backend/internal/device/domain"
	"authgate/backend/internal/device/repository"
	"authgate/backend/internal/security"
)

// Tracker opens and closes device sessions. Store failures and timeouts surface as
// autherr.ErrServiceUnavailable.
type Tracker struct {
	repo    repository.Repository
	timeout time.Duration
	now     func() time.Time
}

// NewTracker returns a Tracker over repo. now may be nil, in which case time.Now is used.
func NewTracker(repo repository.Repository, timeout time.Duration, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{repo: repo, timeout: timeout, now: now}
}

// Open records a new active device session for userID and returns it.
func (t *Tracker) Open(ctx context.Context, userID, deviceInfo, ipAddress string) (*domain.DeviceSession, error) {
	sessionID, err := security.NewSessionID()
	if err != nil {
		return nil, err
	}
	d := &domain.DeviceSession{
		ID:         uuid.New().String(),
		UserID:     userID,
		SessionID:  sessionID,
		DeviceInfo: deviceInfo,
		IPAddress:  ipAddress,
		IsActive:   true,
		CreatedAt:  t.now().UTC(),
	}
	ctx, cancel := t.bound(ctx)
	defer cancel()
	if err := t.repo.Create(ctx, d); err != nil {
		return nil, autherr.Unavailable(err)
	}
	return d, nil
}

// HasActive reports whether userID has at least one active device session.
func (t *Tracker) HasActive(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	n, err := t.repo.CountActiveByUser(ctx, userID)
	if err != nil {
		return false, autherr.Unavailable(err)
	}
	return n > 0, nil
}

// List returns the active device sessions of userID.
func (t *Tracker) List(ctx context.Context, userID string) ([]*domain.DeviceSession, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	list, err := t.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, autherr.Unavailable(err)
	}
	return list, nil
}

// Close ends the device session with row id, if it belongs to userID.
func (t *Tracker) Close(ctx context.Context, id, userID string) (bool, error) {
	if id == "" {
		return false, nil
	}
	ctx, cancel := t.bound(ctx)
	defer cancel()
	d, err := t.repo.GetByID(ctx, id)
	if err != nil {
		return false, autherr.Unavailable(err)
	}
	if d == nil || d.UserID != userID {
		return false, nil
	}
	n, err := t.repo.Deactivate(ctx, id, t.now().UTC())
	if err != nil {
		return false, autherr.Unavailable(err)
	}
	return n > 0, nil
}

// CloseAll ends every active device session of userID and returns how many were closed.
func (t *Tracker) CloseAll(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	n, err := t.repo.DeactivateAllByUser(ctx, userID, t.now().UTC())
	if err != nil {
		return 0, autherr.Unavailable(err)
	}
	return n, nil
}

func (t *Tracker) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.timeout)
}
