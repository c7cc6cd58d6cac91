package handler

import (
	"encoding/json"
	"net/http"

	"github.com/civic-issue-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SubmitEnvelope wraps issue-submission responses. Duplicate submissions get
// the existing issue back with a hint message.
type SubmitEnvelope struct {
	Issue     *domain.Issue `json:"issue"`
	Duplicate bool          `json:"duplicate"`
	Message   string        `json:"message,omitempty"`
}

// PaginatedIssuesEnvelope wraps cursor-paginated issue lists.
type PaginatedIssuesEnvelope struct {
	Data       []domain.Issue `json:"data"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
