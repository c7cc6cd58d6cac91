package issue

import "github.com/civic-issue-api/internal/domain"

// confidence thresholds that nudge the priority score up or down.
const (
	highConfidence = 0.8
	lowConfidence  = 0.4
)

// derivePriority computes the initial priority from the category's default,
// adjusted by classifier confidence. High-confidence detections bump the score
// up half a level, low-confidence ones pull it down; the score maps back to
// the discrete scale. confidence <= 0 (degraded or explicit submission) leaves
// the category default untouched.
func derivePriority(category string, confidence float64) string {
	info, ok := domain.Categories[category]
	if !ok {
		return domain.PriorityMedium
	}
	score := domain.PriorityScore[info.DefaultPriority]
	if confidence > highConfidence {
		score += 0.5
	} else if confidence > 0 && confidence < lowConfidence {
		score -= 0.5
	}
	switch {
	case score >= 4:
		return domain.PriorityCritical
	case score >= 3:
		return domain.PriorityHigh
	case score >= 2:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}
