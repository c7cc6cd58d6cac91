package issue

import (
	"context"
	"time"

	"github.com/civic-issue-api/internal/domain"
	"github.com/civic-issue-api/internal/pkg/geo"
)

// findDuplicate looks for an existing open issue that represents the same
// real-world defect: same category, within the proximity radius, created
// inside the recency window. The closest match wins; distance ties go to the
// most recently created. Returns nil when nothing qualifies — that is the
// common case, not an error.
func (s *service) findDuplicate(ctx context.Context, lat, lng float64, category string) (*domain.Issue, error) {
	since := time.Now().UTC().AddDate(0, 0, -s.windowDays)

	var candidates []domain.Issue
	for _, status := range []string{domain.StatusPending, domain.StatusAssigned} {
		issues, err := s.issues.ListByStatusSince(ctx, status, since)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, issues...)
	}

	var best *domain.Issue
	var bestDist float64
	for i := range candidates {
		c := &candidates[i]
		if c.Category != category {
			continue
		}
		dist := geo.Distance(lat, lng, c.Latitude, c.Longitude)
		if dist > s.radiusMeters {
			continue
		}
		if best == nil || dist < bestDist || (dist == bestDist && c.CreatedAt.After(best.CreatedAt)) {
			best = c
			bestDist = dist
		}
	}
	return best, nil
}
