package fcm

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/civic-issue-api/internal/config"
	"github.com/civic-issue-api/internal/domain"
	"google.golang.org/api/option"
)

// PushResult is the per-token outcome of a multicast send. Invalid marks
// tokens FCM reports as permanently dead, so callers can prune them.
type PushResult struct {
	Token   string
	Err     error
	Invalid bool
}

// PushSender delivers a push message to a set of device tokens.
type PushSender interface {
	Send(ctx context.Context, tokens []string, msg domain.PushMessage) ([]PushResult, error)
}

type sender struct {
	client *messaging.Client
}

// NewSender initializes the Firebase messaging client from a service account
// credentials file.
func NewSender(ctx context.Context, cfg *config.Config) (PushSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.FCMCredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	return &sender{client: client}, nil
}

func (s *sender) Send(ctx context.Context, tokens []string, msg domain.PushMessage) ([]PushResult, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	data := map[string]string{
		"type": msg.Type,
	}
	if msg.IssueID != "" {
		data["issue_id"] = msg.IssueID
	}
	if msg.Priority != "" {
		data["priority"] = msg.Priority
	}
	for k, v := range msg.Data {
		data[k] = v
	}

	multicast := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "civic_issues",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
					Badge: intPtr(1),
				},
			},
		},
	}

	resp, err := s.client.SendEachForMulticast(ctx, multicast)
	if err != nil {
		return nil, fmt.Errorf("multicast send: %w", err)
	}

	results := make([]PushResult, len(tokens))
	for i, r := range resp.Responses {
		results[i] = PushResult{Token: tokens[i]}
		if r.Error != nil {
			results[i].Err = r.Error
			results[i].Invalid = messaging.IsRegistrationTokenNotRegistered(r.Error)
		}
	}
	return results, nil
}

func intPtr(n int) *int { return &n }

type noopSender struct{}

// NewNoopSender returns a PushSender that drops everything. Used when no FCM
// credentials are configured; in-app notification history still works.
func NewNoopSender() PushSender { return noopSender{} }

func (noopSender) Send(_ context.Context, tokens []string, _ domain.PushMessage) ([]PushResult, error) {
	if len(tokens) > 0 {
		slog.Debug("push disabled, dropping message", "tokens", len(tokens))
	}
	return nil, nil
}
