package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/civic-issue-api/internal/domain"
	"github.com/civic-issue-api/internal/infrastructure/fcm"
	"github.com/civic-issue-api/internal/pkg/id"
)

type Service interface {
	// SendToUser persists an in-app notification and pushes it to every device
	// the user has registered. The in-app record is written even when push
	// delivery fails or the user has no devices.
	SendToUser(ctx context.Context, userID string, msg domain.PushMessage) error
	// SendToUsers fans SendToUser out across a bounded worker pool. Every
	// target is attempted; per-user failures are logged, not propagated.
	SendToUsers(ctx context.Context, userIDs []string, msg domain.PushMessage)
	// SendToRole resolves the role through the user directory and fans out.
	// Directory lookup failures propagate — an empty result and a failed
	// lookup are different outcomes.
	SendToRole(ctx context.Context, role string, msg domain.PushMessage) error

	List(ctx context.Context, userID string) ([]domain.Notification, error)
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID, userID string) error
	MarkAllAsRead(ctx context.Context, userID string) (int, error)
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string) error
	MarkAllAsRead(ctx context.Context, userID string) (int, error)
}

type tokenStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error)
	Delete(ctx context.Context, deviceID string) error
}

type userDirectory interface {
	ListIDsByRole(ctx context.Context, role string) ([]string, error)
}

type service struct {
	repo    notificationStore
	tokens  tokenStore
	users   userDirectory
	push    fcm.PushSender
	workers int
}

func NewService(repo notificationStore, tokens tokenStore, users userDirectory, push fcm.PushSender, workers int) Service {
	if workers < 1 {
		workers = 1
	}
	return &service{repo: repo, tokens: tokens, users: users, push: push, workers: workers}
}

func (s *service) SendToUser(ctx context.Context, userID string, msg domain.PushMessage) error {
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         userID,
		Type:           msg.Type,
		Title:          msg.Title,
		Body:           msg.Body,
		CreatedAt:      time.Now().UTC(),
	}
	if msg.IssueID != "" {
		n.IssueID = &msg.IssueID
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}

	devices, err := s.tokens.ListByUser(ctx, userID)
	if err != nil {
		// In-app record is already written; push is best-effort on top.
		slog.Warn("could not list device tokens", "user_id", userID, "err", err)
		return nil
	}
	if len(devices) == 0 {
		return nil
	}

	tokens := make([]string, len(devices))
	byToken := make(map[string]string, len(devices))
	for i, d := range devices {
		tokens[i] = d.Token
		byToken[d.Token] = d.DeviceID
	}

	results, err := s.push.Send(ctx, tokens, msg)
	if err != nil {
		slog.Warn("push send failed", "user_id", userID, "err", err)
		return nil
	}
	for _, r := range results {
		if r.Invalid {
			// Token is permanently dead; prune it so we stop sending to it.
			if err := s.tokens.Delete(ctx, byToken[r.Token]); err != nil {
				slog.Warn("could not prune invalid token", "device_id", byToken[r.Token], "err", err)
			}
		} else if r.Err != nil {
			slog.Warn("push delivery failed", "user_id", userID, "err", r.Err)
		}
	}
	return nil
}

func (s *service) SendToUsers(ctx context.Context, userIDs []string, msg domain.PushMessage) {
	if len(userIDs) == 0 {
		return
	}
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for _, uid := range userIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(uid string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := s.SendToUser(ctx, uid, msg); err != nil {
				slog.Warn("notification dispatch failed", "user_id", uid, "err", err)
			}
		}(uid)
	}
	wg.Wait()
}

func (s *service) SendToRole(ctx context.Context, role string, msg domain.PushMessage) error {
	userIDs, err := s.users.ListIDsByRole(ctx, role)
	if err != nil {
		return fmt.Errorf("resolve role %s: %w", role, err)
	}
	s.SendToUsers(ctx, userIDs, msg)
	return nil
}

func (s *service) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.repo.ListByUser(ctx, userID, false)
}

func (s *service) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.repo.ListByUser(ctx, userID, true)
}

func (s *service) MarkAsRead(ctx context.Context, notificationID, userID string) error {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return fmt.Errorf("notification belongs to another user: %w", domain.ErrForbidden)
	}
	return s.repo.MarkAsRead(ctx, notificationID)
}

func (s *service) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}
