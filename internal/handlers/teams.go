package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/upstream"
)

// TeamDirectory is the upstream team API.
type TeamDirectory interface {
	ListTeams(ctx context.Context) ([]upstream.Team, error)
	CreateTeam(ctx context.Context, name string) (*upstream.Team, error)
	DeleteTeam(ctx context.Context, id string) error
}

// TeamHandler relays team management to upstream. Teams are not stored locally.
type TeamHandler struct {
	teams TeamDirectory
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(teams TeamDirectory) *TeamHandler {
	return &TeamHandler{teams: teams}
}

// CreateTeamRequest names a new team.
//
// swagger:model CreateTeamRequest
type CreateTeamRequest struct {
	Name string `json:"name"`
}

// List handles GET /api/teams.
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teams, err := h.teams.ListTeams(ctx)
	if err != nil {
		h.handleUpstreamError(w, ctx, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, teams)
}

// Create handles POST /api/teams.
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "Team name is required")
		return
	}

	team, err := h.teams.CreateTeam(ctx, name)
	if err != nil {
		h.handleUpstreamError(w, ctx, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, team)
}

// Delete handles DELETE /api/teams/{teamID}.
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.teams.DeleteTeam(ctx, chi.URLParam(r, "teamID")); err != nil {
		h.handleUpstreamError(w, ctx, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUpstreamError passes upstream 404s through and reports everything else as 502.
func (h *TeamHandler) handleUpstreamError(w http.ResponseWriter, ctx context.Context, err error) {
	contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "team request failed", "error", err)

	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
		writeError(w, http.StatusNotFound, "Resource not found")
		return
	}
	writeError(w, http.StatusBadGateway, "External service error")
}
