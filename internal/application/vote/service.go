package vote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/civic-issue-api/internal/domain"
)

type Service interface {
	// Cast records one voter's upvote on an issue. The vote is unique per
	// (issue, voter); the returned result carries the post-vote counter and
	// whether this vote triggered the escalation to critical.
	Cast(ctx context.Context, issueID, voterID string) (*domain.VoteResult, error)
	HasVoted(ctx context.Context, issueID, voterID string) (bool, error)
}

type issueStore interface {
	Get(ctx context.Context, issueID string) (*domain.Issue, error)
	AddUpvote(ctx context.Context, issueID string) (int, error)
	TryEscalate(ctx context.Context, issueID string) (bool, error)
}

type voteStore interface {
	PutUnique(ctx context.Context, v *domain.Vote) error
	Exists(ctx context.Context, issueID, voterID string) (bool, error)
}

type notifier interface {
	SendToRole(ctx context.Context, role string, msg domain.PushMessage) error
}

type alertDirectory interface {
	ListByRole(ctx context.Context, role string) ([]domain.User, error)
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type emailSender interface {
	SendEmail(to, subject, body string) error
}

type service struct {
	issues    issueStore
	votes     voteStore
	notifier  notifier
	directory alertDirectory
	sms       smsSender
	email     emailSender
	threshold int
}

func NewService(issues issueStore, votes voteStore, n notifier, directory alertDirectory, sms smsSender, email emailSender, threshold int) Service {
	return &service{
		issues:    issues,
		votes:     votes,
		notifier:  n,
		directory: directory,
		sms:       sms,
		email:     email,
		threshold: threshold,
	}
}

func (s *service) Cast(ctx context.Context, issueID, voterID string) (*domain.VoteResult, error) {
	issue, err := s.issues.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if !issue.Open() {
		return nil, fmt.Errorf("issue is %s: %w", issue.Status, domain.ErrConflict)
	}

	// The conditional write IS the uniqueness check: two concurrent votes from
	// the same voter race on the store, and exactly one wins.
	v := &domain.Vote{IssueID: issueID, VoterID: voterID, CreatedAt: time.Now().UTC()}
	if err := s.votes.PutUnique(ctx, v); err != nil {
		return nil, err
	}

	count, err := s.issues.AddUpvote(ctx, issueID)
	if err != nil {
		return nil, err
	}

	result := &domain.VoteResult{Upvotes: count, Priority: issue.Priority}
	if count >= s.threshold {
		escalated, err := s.issues.TryEscalate(ctx, issueID)
		if err != nil {
			return nil, err
		}
		if escalated {
			result.Escalated = true
			result.Priority = domain.PriorityCritical
			go s.alertEscalation(issue, count)
		} else {
			// Already critical — either escalated earlier or submitted critical.
			result.Priority = domain.PriorityCritical
		}
	}
	return result, nil
}

func (s *service) HasVoted(ctx context.Context, issueID, voterID string) (bool, error) {
	return s.votes.Exists(ctx, issueID, voterID)
}

// alertEscalation notifies admins in-app and by SMS/email. Runs detached from
// the request: the vote already succeeded, alert failures only get logged.
func (s *service) alertEscalation(issue *domain.Issue, upvotes int) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	category := domain.Categories[issue.Category].Name
	if category == "" {
		category = issue.Category
	}
	title := "Issue escalated to critical"
	body := fmt.Sprintf("%s issue reached %d upvotes and was escalated to critical priority.", category, upvotes)

	if err := s.notifier.SendToRole(ctx, domain.RoleAdmin, domain.PushMessage{
		Type:     domain.NotificationEscalated,
		Title:    title,
		Body:     body,
		IssueID:  issue.IssueID,
		Priority: domain.PriorityCritical,
	}); err != nil {
		slog.Warn("escalation broadcast failed", "issue_id", issue.IssueID, "err", err)
	}

	admins, err := s.directory.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		slog.Warn("could not resolve admins for escalation alerts", "issue_id", issue.IssueID, "err", err)
		return
	}
	for _, admin := range admins {
		if s.sms != nil && admin.Phone != nil && *admin.Phone != "" {
			if err := s.sms.SendSMS(ctx, *admin.Phone, body); err != nil {
				slog.Warn("escalation SMS failed", "user_id", admin.UserID, "err", err)
			}
		}
		if s.email != nil && admin.Email != "" {
			if err := s.email.SendEmail(admin.Email, title, body); err != nil {
				slog.Warn("escalation email failed", "user_id", admin.UserID, "err", err)
			}
		}
	}
}
