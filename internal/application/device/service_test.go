package device

import (
	"context"
	"testing"

	"github.com/civic-issue-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTokenStore struct {
	mock.Mock
}

func (m *mockTokenStore) Put(ctx context.Context, d *domain.DeviceToken) error {
	return m.Called(ctx, d).Error(0)
}

func (m *mockTokenStore) Get(ctx context.Context, deviceID string) (*domain.DeviceToken, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeviceToken), args.Error(1)
}

func (m *mockTokenStore) ListByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DeviceToken), args.Error(1)
}

func (m *mockTokenStore) Delete(ctx context.Context, deviceID string) error {
	return m.Called(ctx, deviceID).Error(0)
}

func TestRegister_NewDevice(t *testing.T) {
	store := new(mockTokenStore)
	store.On("Get", mock.Anything, "dev-1").Return(nil, domain.ErrNotFound)
	store.On("Put", mock.Anything, mock.MatchedBy(func(d *domain.DeviceToken) bool {
		return d.DeviceID == "dev-1" && d.UserID == "u1" && d.Token == "tok-a" && d.Platform == domain.PlatformAndroid
	})).Return(nil)

	svc := NewService(store)
	d, err := svc.Register(context.Background(), "u1", domain.RegisterDeviceRequest{
		DeviceID: "dev-1", Token: "tok-a", Platform: domain.PlatformAndroid,
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-a", d.Token)
	store.AssertExpectations(t)
}

func TestRegister_ReplacesToken_KeepsCreatedAt(t *testing.T) {
	existing := &domain.DeviceToken{DeviceID: "dev-1", UserID: "u1", Token: "tok-old"}
	store := new(mockTokenStore)
	store.On("Get", mock.Anything, "dev-1").Return(existing, nil)
	store.On("Put", mock.Anything, mock.MatchedBy(func(d *domain.DeviceToken) bool {
		return d.Token == "tok-new" && d.CreatedAt.Equal(existing.CreatedAt)
	})).Return(nil)

	svc := NewService(store)
	_, err := svc.Register(context.Background(), "u1", domain.RegisterDeviceRequest{
		DeviceID: "dev-1", Token: "tok-new", Platform: domain.PlatformAndroid,
	})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestRegister_DeviceOwnedByAnotherUser(t *testing.T) {
	store := new(mockTokenStore)
	store.On("Get", mock.Anything, "dev-1").Return(&domain.DeviceToken{DeviceID: "dev-1", UserID: "u1"}, nil)

	svc := NewService(store)
	_, err := svc.Register(context.Background(), "u2", domain.RegisterDeviceRequest{
		DeviceID: "dev-1", Token: "tok-b", Platform: domain.PlatformIOS,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestUnregister_UnknownDevice_NoOp(t *testing.T) {
	store := new(mockTokenStore)
	store.On("Get", mock.Anything, "dev-x").Return(nil, domain.ErrNotFound)

	svc := NewService(store)
	assert.NoError(t, svc.Unregister(context.Background(), "u1", "dev-x"))
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUnregister_CrossUser_Forbidden(t *testing.T) {
	store := new(mockTokenStore)
	store.On("Get", mock.Anything, "dev-1").Return(&domain.DeviceToken{DeviceID: "dev-1", UserID: "u1"}, nil)

	svc := NewService(store)
	err := svc.Unregister(context.Background(), "u2", "dev-1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUnregister_OwnDevice(t *testing.T) {
	store := new(mockTokenStore)
	store.On("Get", mock.Anything, "dev-1").Return(&domain.DeviceToken{DeviceID: "dev-1", UserID: "u1"}, nil)
	store.On("Delete", mock.Anything, "dev-1").Return(nil)

	svc := NewService(store)
	require.NoError(t, svc.Unregister(context.Background(), "u1", "dev-1"))
	store.AssertExpectations(t)
}
