package issue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/civic-issue-api/internal/domain"
	"github.com/civic-issue-api/internal/pkg/geo"
	"github.com/civic-issue-api/internal/pkg/id"
	"github.com/civic-issue-api/internal/pkg/validate"
)

type Service interface {
	// Submit runs the intake pipeline: duplicate suppression, classification
	// with explicit-category override, priority derivation, persistence, and
	// an async heads-up to the engineering role. A duplicate hit returns the
	// existing issue — expected outcome, not an error.
	Submit(ctx context.Context, submitterID string, req domain.SubmitIssueRequest) (*domain.SubmitIssueResult, error)
	// Transition moves an issue through its lifecycle. Only
	// pending→assigned, assigned→resolved and pending→rejected are legal.
	Transition(ctx context.Context, issueID, actorID string, req domain.TransitionIssueRequest) (*domain.Issue, error)
	Get(ctx context.Context, issueID string) (*domain.Issue, error)
	List(ctx context.Context, f domain.IssueFilter, limit int32, cursor string) ([]domain.Issue, string, error)
	Nearby(ctx context.Context, lat, lng, radiusMeters float64) ([]domain.Issue, error)
}

type issueStore interface {
	Put(ctx context.Context, i *domain.Issue) error
	Get(ctx context.Context, issueID string) (*domain.Issue, error)
	Update(ctx context.Context, issueID string, updates map[string]interface{}) error
	ListByStatusSince(ctx context.Context, status string, since time.Time) ([]domain.Issue, error)
	ListPage(ctx context.Context, f domain.IssueFilter, limit int32, cursor string) ([]domain.Issue, string, error)
	IncrementReportCount(ctx context.Context, issueID string) error
}

type classifier interface {
	Classify(ctx context.Context, imageBase64 string) domain.Classification
}

type photoStore interface {
	UploadBase64(ctx context.Context, key, b64Data string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type notifier interface {
	SendToUser(ctx context.Context, userID string, msg domain.PushMessage) error
	SendToRole(ctx context.Context, role string, msg domain.PushMessage) error
}

type service struct {
	issues       issueStore
	classifier   classifier
	photos       photoStore
	notifier     notifier
	radiusMeters float64
	windowDays   int
}

func NewService(issues issueStore, c classifier, photos photoStore, n notifier, radiusMeters float64, windowDays int) Service {
	return &service{
		issues:       issues,
		classifier:   c,
		photos:       photos,
		notifier:     n,
		radiusMeters: radiusMeters,
		windowDays:   windowDays,
	}
}

func (s *service) Submit(ctx context.Context, submitterID string, req domain.SubmitIssueRequest) (*domain.SubmitIssueResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	if !geo.ValidCoordinates(req.Latitude, req.Longitude) {
		return nil, fmt.Errorf("invalid coordinates: %w", domain.ErrBadRequest)
	}

	// Classification never blocks intake: a degraded result just means we
	// fall back to the operator's category or the catalog default.
	classification := s.classifier.Classify(ctx, req.ImageBase64)

	category := req.Category
	var confidence *float64
	if category == "" {
		if classification.Degraded() {
			// No operator category and no usable classifier answer. Default
			// to the dominant road-survey class rather than rejecting.
			category = domain.CategoryPothole
		} else {
			category = classification.Category
			c := classification.Confidence
			confidence = &c
		}
	}

	dup, err := s.findDuplicate(ctx, req.Latitude, req.Longitude, category)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		if err := s.issues.IncrementReportCount(ctx, dup.IssueID); err != nil {
			slog.Warn("could not bump report count", "issue_id", dup.IssueID, "err", err)
		}
		dup.ReportCount++
		return &domain.SubmitIssueResult{Issue: dup, Duplicate: true}, nil
	}

	issueID := id.New()
	imageKey := fmt.Sprintf("issues/%s/%s.jpg", issueID, id.New())
	if _, err := s.photos.UploadBase64(ctx, imageKey, req.ImageBase64); err != nil {
		return nil, fmt.Errorf("store photo: %w", err)
	}

	conf := 0.0
	if confidence != nil {
		conf = *confidence
	}
	now := time.Now().UTC()
	issue := &domain.Issue{
		IssueID:      issueID,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Category:     category,
		Description:  req.Description,
		Images:       []string{imageKey},
		Status:       domain.StatusPending,
		Priority:     derivePriority(category, conf),
		SubmitterID:  submitterID,
		AIConfidence: confidence,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.issues.Put(ctx, issue); err != nil {
		return nil, fmt.Errorf("persist issue: %w", err)
	}

	go s.notifyNewIssue(issue)

	return &domain.SubmitIssueResult{Issue: issue, Duplicate: false}, nil
}

// notifyNewIssue tells the engineering role about fresh work. Detached from
// the request; a dispatch failure is logged, never surfaced to the submitter.
func (s *service) notifyNewIssue(issue *domain.Issue) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	info := domain.Categories[issue.Category]
	err := s.notifier.SendToRole(ctx, domain.RoleEngineer, domain.PushMessage{
		Type:     domain.NotificationSystem,
		Title:    "New issue reported",
		Body:     fmt.Sprintf("%s reported for %s department (%s priority)", info.Name, info.Department, issue.Priority),
		IssueID:  issue.IssueID,
		Priority: issue.Priority,
		Data:     map[string]string{"department": info.Department},
	})
	if err != nil {
		slog.Warn("new-issue notification failed", "issue_id", issue.IssueID, "err", err)
	}
}

// legalTransitions is the issue lifecycle. Terminal states have no exits.
var legalTransitions = map[string][]string{
	domain.StatusPending:  {domain.StatusAssigned, domain.StatusRejected},
	domain.StatusAssigned: {domain.StatusResolved},
}

func canTransition(from, to string) bool {
	for _, t := range legalTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

func (s *service) Transition(ctx context.Context, issueID, actorID string, req domain.TransitionIssueRequest) (*domain.Issue, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}

	issue, err := s.issues.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if !canTransition(issue.Status, req.Status) {
		return nil, fmt.Errorf("cannot move %s issue to %s: %w", issue.Status, req.Status, domain.ErrInvalidTransition)
	}

	updates := map[string]interface{}{"status": req.Status}
	switch req.Status {
	case domain.StatusAssigned:
		if req.AssigneeID == "" {
			return nil, fmt.Errorf("assignee required: %w", domain.ErrBadRequest)
		}
		updates["assignee_id"] = req.AssigneeID
	case domain.StatusResolved:
		updates["resolved_at"] = time.Now().UTC()
	}
	if err := s.issues.Update(ctx, issueID, updates); err != nil {
		return nil, err
	}

	updated, err := s.issues.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}

	go s.notifyTransition(updated, req)

	return updated, nil
}

// notifyTransition pushes the lifecycle change to whoever it concerns:
// the new assignee on assignment, the submitter on resolution or rejection.
func (s *service) notifyTransition(issue *domain.Issue, req domain.TransitionIssueRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	info := domain.Categories[issue.Category]
	var userID string
	msg := domain.PushMessage{IssueID: issue.IssueID, Priority: issue.Priority}
	switch req.Status {
	case domain.StatusAssigned:
		userID = req.AssigneeID
		msg.Type = domain.NotificationAssigned
		msg.Title = "Issue assigned to you"
		msg.Body = fmt.Sprintf("A %s issue has been assigned to you.", info.Name)
	case domain.StatusResolved:
		userID = issue.SubmitterID
		msg.Type = domain.NotificationResolved
		msg.Title = "Your reported issue was resolved"
		msg.Body = fmt.Sprintf("The %s issue you reported has been marked resolved.", info.Name)
	case domain.StatusRejected:
		userID = issue.SubmitterID
		msg.Type = domain.NotificationRejected
		msg.Title = "Your reported issue was rejected"
		msg.Body = fmt.Sprintf("The %s issue you reported was rejected. %s", info.Name, req.Remarks)
	default:
		return
	}
	if err := s.notifier.SendToUser(ctx, userID, msg); err != nil {
		slog.Warn("transition notification failed", "issue_id", issue.IssueID, "err", err)
	}
}

func (s *service) Get(ctx context.Context, issueID string) (*domain.Issue, error) {
	issue, err := s.issues.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	// Swap stored object keys for presigned URLs the client can fetch.
	for i, key := range issue.Images {
		url, err := s.photos.PresignedURL(ctx, key, 15*time.Minute)
		if err != nil {
			slog.Warn("could not presign image", "issue_id", issueID, "key", key, "err", err)
			continue
		}
		issue.Images[i] = url
	}
	return issue, nil
}

func (s *service) List(ctx context.Context, f domain.IssueFilter, limit int32, cursor string) ([]domain.Issue, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.issues.ListPage(ctx, f, limit, cursor)
}

// Nearby returns open issues within radiusMeters of the given point.
func (s *service) Nearby(ctx context.Context, lat, lng, radiusMeters float64) ([]domain.Issue, error) {
	if !geo.ValidCoordinates(lat, lng) {
		return nil, fmt.Errorf("invalid coordinates: %w", domain.ErrBadRequest)
	}
	if radiusMeters <= 0 {
		radiusMeters = 1000
	}

	var nearby []domain.Issue
	for _, status := range []string{domain.StatusPending, domain.StatusAssigned} {
		issues, err := s.issues.ListByStatusSince(ctx, status, time.Time{})
		if err != nil {
			return nil, err
		}
		for _, i := range issues {
			if geo.WithinRadius(lat, lng, i.Latitude, i.Longitude, radiusMeters) {
				nearby = append(nearby, i)
			}
		}
	}
	return nearby, nil
}
