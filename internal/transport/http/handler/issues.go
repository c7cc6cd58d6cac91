package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/civic-issue-api/internal/application/issue"
	"github.com/civic-issue-api/internal/application/vote"
	"github.com/civic-issue-api/internal/domain"
	"github.com/civic-issue-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// IssueHandler handles issue intake, lookup, and lifecycle endpoints.
type IssueHandler struct {
	svc     issue.Service
	voteSvc vote.Service
}

func NewIssueHandler(svc issue.Service, voteSvc vote.Service) *IssueHandler {
	return &IssueHandler{svc: svc, voteSvc: voteSvc}
}

func (h *IssueHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.SubmitIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.svc.Submit(r.Context(), claims.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	if result.Duplicate {
		writeJSON(w, http.StatusOK, SubmitEnvelope{
			Issue:     result.Issue,
			Duplicate: true,
			Message:   "a similar issue was already reported nearby",
		})
		return
	}
	writeJSON(w, http.StatusCreated, SubmitEnvelope{Issue: result.Issue})
}

func (h *IssueHandler) Get(w http.ResponseWriter, r *http.Request) {
	i, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, i)
}

func (h *IssueHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.IssueFilter{
		Status:      q.Get("status"),
		Priority:    q.Get("priority"),
		Category:    q.Get("category"),
		AssigneeID:  q.Get("assignee_id"),
		SubmitterID: q.Get("submitter_id"),
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	issues, next, err := h.svc.List(r.Context(), f, int32(limit), q.Get("cursor"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PaginatedIssuesEnvelope{Data: issues, NextCursor: next})
}

func (h *IssueHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}
	radius, _ := strconv.ParseFloat(q.Get("radius"), 64)
	issues, err := h.svc.Nearby(r.Context(), lat, lng, radius)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

func (h *IssueHandler) Transition(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.TransitionIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	i, err := h.svc.Transition(r.Context(), chi.URLParam(r, "id"), claims.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, i)
}

func (h *IssueHandler) Vote(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	result, err := h.voteSvc.Cast(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
