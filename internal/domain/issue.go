package domain

import "time"

// Issue status lifecycle: pending -> assigned -> resolved, or pending -> rejected.
// Issues are never hard-deleted; terminal states are soft.
const (
	StatusPending  = "pending"
	StatusAssigned = "assigned"
	StatusResolved = "resolved"
	StatusRejected = "rejected"
)

// Priority levels, ordered. Vote-driven escalation only ever raises priority.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// PriorityScore maps each priority to its ordinal, used for priority
// derivation and monotonicity checks.
var PriorityScore = map[string]float64{
	PriorityLow:      1,
	PriorityMedium:   2,
	PriorityHigh:     3,
	PriorityCritical: 4,
}

// Issue categories.
const (
	CategoryPothole     = "pothole"
	CategoryGarbage     = "garbage"
	CategoryDebris      = "debris"
	CategoryStrayCattle = "stray_cattle"
	CategoryBrokenRoad  = "broken_road"
	CategoryOpenManhole = "open_manhole"
)

// CategoryInfo describes a category's routing and default priority.
type CategoryInfo struct {
	Name            string
	Department      string
	DefaultPriority string
	// AIClasses are the classifier labels that map onto this category.
	AIClasses []string
}

// Categories is the category catalog. The classifier's labels are resolved
// against AIClasses; the department decides which engineering role to notify.
var Categories = map[string]CategoryInfo{
	CategoryPothole:     {Name: "Pothole", Department: "Roads", DefaultPriority: PriorityHigh, AIClasses: []string{"pothole", "road_damage"}},
	CategoryGarbage:     {Name: "Garbage Accumulation", Department: "Sanitation", DefaultPriority: PriorityMedium, AIClasses: []string{"garbage", "trash", "waste"}},
	CategoryDebris:      {Name: "Debris", Department: "Sanitation", DefaultPriority: PriorityMedium, AIClasses: []string{"debris", "rubble", "construction_waste"}},
	CategoryStrayCattle: {Name: "Stray Cattle", Department: "AnimalControl", DefaultPriority: PriorityMedium, AIClasses: []string{"cow", "cattle", "buffalo", "animal"}},
	CategoryBrokenRoad:  {Name: "Broken Road", Department: "Roads", DefaultPriority: PriorityHigh, AIClasses: []string{"broken_road", "road_crack", "damaged_road"}},
	CategoryOpenManhole: {Name: "Open Manhole", Department: "Drainage", DefaultPriority: PriorityCritical, AIClasses: []string{"manhole", "open_drain", "uncovered_drain"}},
}

// ValidCategory reports whether code is a known category.
func ValidCategory(code string) bool {
	_, ok := Categories[code]
	return ok
}

// CategoryForAIClass maps a raw classifier label to a category code.
// Returns "" when the label matches no category.
func CategoryForAIClass(aiClass string) string {
	for code, info := range Categories {
		for _, c := range info.AIClasses {
			if c == aiClass {
				return code
			}
		}
	}
	return ""
}

type Issue struct {
	IssueID      string     `json:"id" dynamodbav:"issue_id"`
	Latitude     float64    `json:"latitude" dynamodbav:"latitude"`
	Longitude    float64    `json:"longitude" dynamodbav:"longitude"`
	Category     string     `json:"category" dynamodbav:"category"`
	Description  string     `json:"description" dynamodbav:"description"`
	Images       []string   `json:"images" dynamodbav:"images"`
	Status       string     `json:"status" dynamodbav:"status"`
	Priority     string     `json:"priority" dynamodbav:"priority"`
	Upvotes      int        `json:"upvotes" dynamodbav:"upvotes"`
	ReportCount  int        `json:"report_count" dynamodbav:"report_count"`
	SubmitterID  string     `json:"submitter_id" dynamodbav:"submitter_id"`
	AssigneeID   *string    `json:"assignee_id,omitempty" dynamodbav:"assignee_id"`
	AIConfidence *float64   `json:"ai_confidence,omitempty" dynamodbav:"ai_confidence"`
	CreatedAt    time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time  `json:"updated" dynamodbav:"updated_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty" dynamodbav:"resolved_at"`
}

// Open reports whether the issue is still actionable (not resolved/rejected).
func (i *Issue) Open() bool {
	return i.Status == StatusPending || i.Status == StatusAssigned
}

type SubmitIssueRequest struct {
	// No `required` on the coordinates: zero is a legal value for both
	// (equator, prime meridian) and the range checks already bound them.
	Latitude    float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64 `json:"longitude" validate:"gte=-180,lte=180"`
	ImageBase64 string  `json:"image_base64" validate:"required"`
	Description string  `json:"description"`
	// Category is optional: when set by the operator it overrides the classifier.
	Category string `json:"category" validate:"omitempty,oneof=pothole garbage debris stray_cattle broken_road open_manhole"`
}

// SubmitIssueResult is the orchestrator's answer to a submission. Exactly one
// of the two outcomes holds: a freshly created issue, or the existing open
// issue the submission duplicates.
type SubmitIssueResult struct {
	Issue     *Issue `json:"issue"`
	Duplicate bool   `json:"duplicate"`
}

type TransitionIssueRequest struct {
	Status string `json:"status" validate:"required,oneof=assigned resolved rejected"`
	// AssigneeID is required when transitioning to assigned.
	AssigneeID string `json:"assignee_id"`
	Remarks    string `json:"remarks"`
}

// IssueFilter narrows List queries. Zero-valued fields are ignored.
type IssueFilter struct {
	Status      string
	Priority    string
	Category    string
	AssigneeID  string
	SubmitterID string
}
