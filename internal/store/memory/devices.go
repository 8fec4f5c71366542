package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"authgate/backend/internal/device/domain"
	"authgate/backend/internal/device/repository"
)

// DeviceRepository is an in-memory device session store.
type DeviceRepository struct {
	failer
	mu   sync.RWMutex
	byID map[string]*domain.DeviceSession
}

func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{byID: map[string]*domain.DeviceSession{}}
}

func (r *DeviceRepository) Create(ctx context.Context, d *domain.DeviceSession) error {
	if err := r.failure(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *d
	r.byID[d.ID] = &c
	return nil
}

func (r *DeviceRepository) GetByID(ctx context.Context, id string) (*domain.DeviceSession, error) {
	if err := r.failure(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	c := *d
	return &c, nil
}

func (r *DeviceRepository) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	list, err := r.ListActiveByUser(ctx, userID)
	return len(list), err
}

func (r *DeviceRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.DeviceSession, error) {
	if err := r.failure(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.DeviceSession
	for _, d := range r.byID {
		if d.UserID == userID && d.IsActive {
			c := *d
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *DeviceRepository) Deactivate(ctx context.Context, id string, at time.Time) (int64, error) {
	if err := r.failure(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok || !d.IsActive {
		return 0, nil
	}
	d.IsActive = false
	d.EndedAt = &at
	return 1, nil
}

func (r *DeviceRepository) DeactivateAllByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	if err := r.failure(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, d := range r.byID {
		if d.UserID == userID && d.IsActive {
			d.IsActive = false
			d.EndedAt = &at
			n++
		}
	}
	return n, nil
}

var _ repository.Repository = (*DeviceRepository)(nil)
