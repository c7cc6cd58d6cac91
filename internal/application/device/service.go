package device

import (
	"context"
	"fmt"
	"time"

	"github.com/civic-issue-api/internal/domain"
)

type Service interface {
	Register(ctx context.Context, userID string, req domain.RegisterDeviceRequest) (*domain.DeviceToken, error)
	Unregister(ctx context.Context, userID, deviceID string) error
	List(ctx context.Context, userID string) ([]domain.DeviceToken, error)
}

type tokenStore interface {
	Put(ctx context.Context, d *domain.DeviceToken) error
	Get(ctx context.Context, deviceID string) (*domain.DeviceToken, error)
	ListByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error)
	Delete(ctx context.Context, deviceID string) error
}

type service struct {
	repo tokenStore
}

func NewService(repo tokenStore) Service {
	return &service{repo: repo}
}

// Register stores a push token for the device. device_id is the partition key,
// so re-registering a device with a new token replaces the old record and
// stale tokens never pile up.
func (s *service) Register(ctx context.Context, userID string, req domain.RegisterDeviceRequest) (*domain.DeviceToken, error) {
	now := time.Now().UTC()
	d := &domain.DeviceToken{
		DeviceID:  req.DeviceID,
		UserID:    userID,
		Token:     req.Token,
		Platform:  req.Platform,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := s.repo.Get(ctx, req.DeviceID); err == nil {
		if existing.UserID != userID {
			return nil, fmt.Errorf("device registered to another user: %w", domain.ErrForbidden)
		}
		d.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.Put(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Unregister removes the device's token. Unregistering an unknown device is a
// no-op so clients can call it on logout without caring about prior state.
func (s *service) Unregister(ctx context.Context, userID, deviceID string) error {
	existing, err := s.repo.Get(ctx, deviceID)
	if err != nil {
		return nil
	}
	if existing.UserID != userID {
		return fmt.Errorf("device registered to another user: %w", domain.ErrForbidden)
	}
	return s.repo.Delete(ctx, deviceID)
}

func (s *service) List(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	return s.repo.ListByUser(ctx, userID)
}
