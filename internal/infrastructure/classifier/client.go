package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/civic-issue-api/internal/config"
	"github.com/civic-issue-api/internal/domain"
)

// Classifier labels an issue photo. Classify never returns an error for
// upstream failures: any failure mode collapses into a degraded
// domain.Classification so the intake pipeline always proceeds.
type Classifier interface {
	Classify(ctx context.Context, imageBase64 string) domain.Classification
}

type client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient builds a Classifier talking to the external classification service.
func NewClient(cfg *config.Config) Classifier {
	return &client{
		baseURL:    cfg.ClassifierURL,
		httpClient: &http.Client{Timeout: cfg.ClassifierTimeout},
		timeout:    cfg.ClassifierTimeout,
	}
}

type classifyRequest struct {
	Image string `json:"image"`
}

type classifyResponse struct {
	Success       bool           `json:"success"`
	IssueType     string         `json:"issue_type"`
	Confidence    float64        `json:"confidence"`
	IssueCounts   map[string]int `json:"issue_counts"`
	TotalIssues   int            `json:"total_issues"`
	SeverityScore float64        `json:"severity_score"`
	Message       string         `json:"message"`
}

func (c *client) Classify(ctx context.Context, imageBase64 string) domain.Classification {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(classifyRequest{Image: imageBase64})
	if err != nil {
		return degraded(domain.ClassifyBadResponse, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/classify-base64", bytes.NewReader(payload))
	if err != nil {
		return degraded(domain.ClassifyUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return degraded(domain.ClassifyTimeout, err)
		}
		return degraded(domain.ClassifyUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return degraded(domain.ClassifyRejected, fmt.Errorf("classifier returned %d", resp.StatusCode))
	}

	var cr classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return degraded(domain.ClassifyBadResponse, err)
	}
	if !cr.Success {
		return degraded(domain.ClassifyRejected, fmt.Errorf("classifier rejected image: %s", cr.Message))
	}

	category := domain.CategoryForAIClass(cr.IssueType)
	if category == "" {
		return degraded(domain.ClassifyBadResponse, fmt.Errorf("unknown issue type %q", cr.IssueType))
	}

	counts := make(map[string]int, len(domain.Categories))
	for code := range domain.Categories {
		counts[code] = 0
	}
	for label, n := range cr.IssueCounts {
		if code := domain.CategoryForAIClass(label); code != "" {
			counts[code] += n
		}
	}

	return domain.Classification{
		Category:   category,
		Confidence: cr.Confidence,
		Counts:     counts,
		Total:      cr.TotalIssues,
		Severity:   cr.SeverityScore,
	}
}

func degraded(reason string, err error) domain.Classification {
	slog.Warn("classification degraded", "reason", reason, "err", err)
	return domain.DegradedClassification(reason)
}
