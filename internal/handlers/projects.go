package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/service"
)

// ProjectHandler handles HTTP requests for projects.
type ProjectHandler struct {
	projects service.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// ProjectRequest is the payload for creating a project.
//
// swagger:model ProjectRequest
type ProjectRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Color       int      `json:"color"`
	Tags        []string `json:"tags"`
}

// ProjectPatch is the payload for updating a project. Absent fields are left unchanged.
//
// swagger:model ProjectPatch
type ProjectPatch struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Color       *int     `json:"color,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// List handles GET /api/projects?q=&sort=.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	order, ok := sortOrder(w, r)
	if !ok {
		return
	}

	projects, err := h.projects.List(ctx, service.ProjectListQuery{
		Query:    r.URL.Query().Get("q"),
		Sort:     order,
		Language: requestLanguage(r),
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list projects")
		return
	}
	writeJSON(ctx, w, http.StatusOK, projects)
}

// Get handles GET /api/projects/{projectID}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	detail, err := h.projects.Get(ctx, chi.URLParam(r, "projectID"))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to get project")
		return
	}
	writeJSON(ctx, w, http.StatusOK, detail)
}

// Create handles POST /api/projects.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req ProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.projects.Create(ctx, service.CreateProjectRequest{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Tags:        req.Tags,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to create project")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, p)
}

// Update handles PATCH /api/projects/{projectID}.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ProjectPatch
	if err := decodeJSON(r, &req); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.projects.Update(ctx, chi.URLParam(r, "projectID"), service.UpdateProjectRequest{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Tags:        req.Tags,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to update project")
		return
	}
	writeJSON(ctx, w, http.StatusOK, p)
}

// Delete handles DELETE /api/projects/{projectID}. Content, conversations and
// flashcards of the project go with it.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.projects.Delete(ctx, chi.URLParam(r, "projectID")); err != nil {
		handleServiceError(w, ctx, err, "Failed to delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
