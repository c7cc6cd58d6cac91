package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/civic-issue-api/internal/domain"
	"github.com/civic-issue-api/internal/infrastructure/fcm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockNotificationStore struct{ mock.Mock }

func (m *mockNotificationStore) Put(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockNotificationStore) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotificationStore) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly)
	if ns, _ := args.Get(0).([]domain.Notification); ns != nil {
		return ns, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotificationStore) MarkAsRead(ctx context.Context, notificationID string) error {
	return m.Called(ctx, notificationID).Error(0)
}
func (m *mockNotificationStore) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type mockTokenStore struct{ mock.Mock }

func (m *mockTokenStore) ListByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	args := m.Called(ctx, userID)
	if ts, _ := args.Get(0).([]domain.DeviceToken); ts != nil {
		return ts, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTokenStore) Delete(ctx context.Context, deviceID string) error {
	return m.Called(ctx, deviceID).Error(0)
}

type mockUserDirectory struct{ mock.Mock }

func (m *mockUserDirectory) ListIDsByRole(ctx context.Context, role string) ([]string, error) {
	args := m.Called(ctx, role)
	if ids, _ := args.Get(0).([]string); ids != nil {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPushSender struct {
	mock.Mock
	mu sync.Mutex
}

func (m *mockPushSender) Send(ctx context.Context, tokens []string, msg domain.PushMessage) ([]fcm.PushResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, tokens, msg)
	if rs, _ := args.Get(0).([]fcm.PushResult); rs != nil {
		return rs, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

func newSvc(ns *mockNotificationStore, ts *mockTokenStore, ud *mockUserDirectory, ps *mockPushSender) Service {
	return NewService(ns, ts, ud, ps, 4)
}

func testMsg() domain.PushMessage {
	return domain.PushMessage{
		Type:    domain.NotificationAssigned,
		Title:   "Issue assigned",
		Body:    "A pothole on Main St was assigned to you",
		IssueID: "issue-1",
	}
}

// --- SendToUser tests ---

func TestSendToUser_PersistsAndPushes(t *testing.T) {
	ns, ts, ud, ps := &mockNotificationStore{}, &mockTokenStore{}, &mockUserDirectory{}, &mockPushSender{}

	ns.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)
	ts.On("ListByUser", mock.Anything, "user-1").Return([]domain.DeviceToken{
		{DeviceID: "dev-1", Token: "tok-1"},
		{DeviceID: "dev-2", Token: "tok-2"},
	}, nil)
	ps.On("Send", mock.Anything, []string{"tok-1", "tok-2"}, mock.Anything).Return([]fcm.PushResult{
		{Token: "tok-1"},
		{Token: "tok-2"},
	}, nil)

	err := newSvc(ns, ts, ud, ps).SendToUser(context.Background(), "user-1", testMsg())

	require.NoError(t, err)
	ns.AssertCalled(t, "Put", mock.Anything, mock.AnythingOfType("*domain.Notification"))
	ps.AssertCalled(t, "Send", mock.Anything, []string{"tok-1", "tok-2"}, mock.Anything)
}

func TestSendToUser_NoTokens_PersistsWithoutPush(t *testing.T) {
	ns, ts, ud, ps := &mockNotificationStore{}, &mockTokenStore{}, &mockUserDirectory{}, &mockPushSender{}

	ns.On("Put", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)
	ts.On("ListByUser", mock.Anything, "user-1").Return([]domain.DeviceToken{}, nil)

	err := newSvc(ns, ts, ud, ps).SendToUser(context.Background(), "user-1", testMsg())

	require.NoError(t, err)
	ns.AssertCalled(t, "Put", mock.Anything, mock.AnythingOfType("*domain.Notification"))
	ps.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendToUser_PrunesInvalidTokens(t *testing.T) {
	ns, ts, ud, ps := &mockNotificationStore{}, &mockTokenStore{}, &mockUserDirectory{}, &mockPushSender{}

	ns.On("Put", mock.Anything, mock.Anything).Return(nil)
	ts.On("ListByUser", mock.Anything, "user-1").Return([]domain.DeviceToken{
		{DeviceID: "dev-1", Token: "tok-alive"},
		{DeviceID: "dev-2", Token: "tok-dead"},
	}, nil)
	ps.On("Send", mock.Anything, mock.Anything, mock.Anything).Return([]fcm.PushResult{
		{Token: "tok-alive"},
		{Token: "tok-dead", Err: errors.New("unregistered"), Invalid: true},
	}, nil)
	ts.On("Delete", mock.Anything, "dev-2").Return(nil)

	err := newSvc(ns, ts, ud, ps).SendToUser(context.Background(), "user-1", testMsg())

	require.NoError(t, err)
	ts.AssertCalled(t, "Delete", mock.Anything, "dev-2")
	ts.AssertNotCalled(t, "Delete", mock.Anything, "dev-1")
}

func TestSendToUser_TransientPushFailure_TokenKept(t *testing.T) {
	ns, ts, ud, ps := &mockNotificationStore{}, &mockTokenStore{}, &mockUserDirectory{}, &mockPushSender{}

	ns.On("Put", mock.Anything, mock.Anything).Return(nil)
	ts.On("ListByUser", mock.Anything, "user-1").Return([]domain.DeviceToken{
		{DeviceID: "dev-1", Token: "tok-1"},
	}, nil)
	ps.On("Send", mock.Anything, mock.Anything, mock.Anything).Return([]fcm.PushResult{
		{Token: "tok-1", Err: errors.New("temporarily unavailable"), Invalid: false},
	}, nil)

	err := newSvc(ns, ts, ud, ps).SendToUser(context.Background(), "user-1", testMsg())

	require.NoError(t, err)
	ts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestSendToUser_PersistFailurePropagates(t *testing.T) {
	ns, ts, ud, ps := &mockNotificationStore{}, &mockTokenStore{}, &mockUserDirectory{}, &mockPushSender{}

	ns.On("Put", mock.Anything, mock.Anything).Return(errors.New("dynamo down"))

	err := newSvc(ns, ts, ud, ps).SendToUser(context.Background(), "user-1", testMsg())

	require.Error(t, err)
	ps.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

// --- SendToUsers tests ---

func TestSendToUsers_AllTargetsAttemptedDespiteFailures(t *testing.T) {
	ns, ts, ud, ps := &mockNotificationStore{}, &mockTokenStore{}, &mockUserDirectory{}, &mockPushSender{}

	// user-2's persist fails; user-1 and user-3 must still be attempted.
	ns.On("Put", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool { return n.UserID == "user-2" })).
		Return(errors.New("dynamo down"))
	ns.On("Put", mock.Anything, mock.Anything).Return(nil)
	ts.On("ListByUser", mock.Anything, mock.Anything).Return([]domain.DeviceToken{}, nil)

	newSvc(ns, ts, ud, ps).SendToUsers(context.Background(), []string{"user-1", "user-2", "user-3"}, testMsg())

	ns.AssertNumberOfCalls(t, "Put", 3)
}

// --- SendToRole tests ---

func TestSendToRole_FansOutToResolvedUsers(t *testing.T) {
	ns, ts, ud, ps := &mockNotificationStore{}, &mockTokenStore{}, &mockUserDirectory{}, &mockPushSender{}

	ud.On("ListIDsByRole", mock.Anything, domain.RoleEngineer).Return([]string{"eng-1", "eng-2"}, nil)
	ns.On("Put", mock.Anything, mock.Anything).Return(nil)
	ts.On("ListByUser", mock.Anything, mock.Anything).Return([]domain.DeviceToken{}, nil)

	err := newSvc(ns, ts, ud, ps).SendToRole(context.Background(), domain.RoleEngineer, testMsg())

	require.NoError(t, err)
	ns.AssertNumberOfCalls(t, "Put", 2)
}

func TestSendToRole_EmptyRoleIsNoop(t *testing.T) {
	ns, ts, ud, ps := &mockNotificationStore{}, &mockTokenStore{}, &mockUserDirectory{}, &mockPushSender{}

	ud.On("ListIDsByRole", mock.Anything, domain.RoleEngineer).Return([]string{}, nil)

	err := newSvc(ns, ts, ud, ps).SendToRole(context.Background(), domain.RoleEngineer, testMsg())

	require.NoError(t, err)
	ns.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestSendToRole_DirectoryErrorPropagates(t *testing.T) {
	ns, ts, ud, ps := &mockNotificationStore{}, &mockTokenStore{}, &mockUserDirectory{}, &mockPushSender{}

	ud.On("ListIDsByRole", mock.Anything, domain.RoleEngineer).Return(nil, errors.New("directory unavailable"))

	err := newSvc(ns, ts, ud, ps).SendToRole(context.Background(), domain.RoleEngineer, testMsg())

	require.Error(t, err)
	ns.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

// --- read-state tests ---

func TestMarkAsRead_OwnerOnly(t *testing.T) {
	ns, ts, ud, ps := &mockNotificationStore{}, &mockTokenStore{}, &mockUserDirectory{}, &mockPushSender{}

	ns.On("Get", mock.Anything, "n-1").Return(&domain.Notification{NotificationID: "n-1", UserID: "user-1"}, nil)

	err := newSvc(ns, ts, ud, ps).MarkAsRead(context.Background(), "n-1", "user-2")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	ns.AssertNotCalled(t, "MarkAsRead", mock.Anything, mock.Anything)
}

func TestMarkAsRead_Success(t *testing.T) {
	ns, ts, ud, ps := &mockNotificationStore{}, &mockTokenStore{}, &mockUserDirectory{}, &mockPushSender{}

	ns.On("Get", mock.Anything, "n-1").Return(&domain.Notification{NotificationID: "n-1", UserID: "user-1"}, nil)
	ns.On("MarkAsRead", mock.Anything, "n-1").Return(nil)

	err := newSvc(ns, ts, ud, ps).MarkAsRead(context.Background(), "n-1", "user-1")

	require.NoError(t, err)
}
