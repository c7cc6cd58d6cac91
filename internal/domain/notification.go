package domain

import "time"

// Notification types.
const (
	NotificationAssigned  = "assigned"
	NotificationResolved  = "resolved"
	NotificationRejected  = "rejected"
	NotificationEscalated = "escalated"
	NotificationBroadcast = "broadcast"
	NotificationSystem    = "system"
)

// Notification is the persisted in-app record of a message. It is written at
// send time regardless of whether the push transport succeeded, so the in-app
// history stays authoritative even when delivery silently fails.
type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	UserID         string    `json:"user_id" dynamodbav:"user_id"`
	IssueID        *string   `json:"issue_id,omitempty" dynamodbav:"issue_id"`
	Type           string    `json:"type" dynamodbav:"type"`
	Title          string    `json:"title" dynamodbav:"title"`
	Body           string    `json:"body" dynamodbav:"body"`
	Read           bool      `json:"read" dynamodbav:"read"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
}

// PushMessage is the transport-agnostic payload handed to the push gateway.
// Data is an opaque key/value map surfaced to the client application.
type PushMessage struct {
	Type     string
	Title    string
	Body     string
	IssueID  string
	Priority string
	Data     map[string]string
}
