package domain

// Degraded-result reason codes returned by the classifier gateway.
const (
	ClassifyTimeout     = "timeout"
	ClassifyUnreachable = "unreachable"
	ClassifyBadResponse = "bad_response"
	ClassifyRejected    = "rejected"
)

// Classification is the total result of a classifier call. Reason is empty on
// success; a non-empty Reason marks the degraded fallback (all counts zero,
// severity zero) so callers have a single code path regardless of upstream
// health.
type Classification struct {
	Category   string         `json:"category"`
	Confidence float64        `json:"confidence"`
	Counts     map[string]int `json:"counts"`
	Total      int            `json:"total"`
	Severity   float64        `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// Degraded reports whether this result is the failure fallback.
func (c Classification) Degraded() bool { return c.Reason != "" }

// DegradedClassification builds the well-defined fallback result for a failed
// classifier call.
func DegradedClassification(reason string) Classification {
	counts := make(map[string]int, len(Categories))
	for code := range Categories {
		counts[code] = 0
	}
	return Classification{Counts: counts, Reason: reason}
}
