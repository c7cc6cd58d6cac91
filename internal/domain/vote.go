package domain

import "time"

// Vote is one voter's endorsement of an issue. The (issue, voter) pair is
// unique — enforced by the store's conditional write, not checked-then-inserted.
type Vote struct {
	IssueID   string    `json:"issue_id" dynamodbav:"issue_id"`
	VoterID   string    `json:"voter_id" dynamodbav:"voter_id"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

// VoteResult reports the post-vote counter and whether this vote was the one
// that escalated the issue to critical.
type VoteResult struct {
	Upvotes   int    `json:"upvotes"`
	Priority  string `json:"priority"`
	Escalated bool   `json:"escalated"`
}
