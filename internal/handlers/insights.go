package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/repository"
	"moonscribe/internal/service"
	"moonscribe/internal/views"
)

// InsightHandler handles HTTP requests for saved insights.
type InsightHandler struct {
	insights service.InsightService
	pages    *InsightRenderer
}

// NewInsightHandler creates a new InsightHandler.
func NewInsightHandler(insights service.InsightService) *InsightHandler {
	return &InsightHandler{
		insights: insights,
		pages:    NewInsightRenderer(),
	}
}

// SaveInsightRequest saves an assistant answer.
//
// swagger:model SaveInsightRequest
type SaveInsightRequest struct {
	Title         string                     `json:"title,omitempty"`
	OriginalQuery string                     `json:"originalQuery"`
	Content       string                     `json:"content"`
	Sources       []repository.InsightSource `json:"sources,omitempty"`
	Tags          []string                   `json:"tags,omitempty"`
	ProjectID     string                     `json:"projectId,omitempty"`
}

// InsightPatch edits an insight. Absent fields are left unchanged.
//
// swagger:model InsightPatch
type InsightPatch struct {
	Title   *string  `json:"title,omitempty"`
	Content *string  `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// List handles GET /api/insights?q=&tag=&projectId=&starred=&archive=&sort=.
// tag may repeat; every listed tag must be present.
func (h *InsightHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	order, ok := sortOrder(w, r)
	if !ok {
		return
	}
	archive, err := views.ParseArchiveMode(params.Get("archive"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	insights, err := h.insights.List(ctx, service.InsightQuery{
		Query:       params.Get("q"),
		Tags:        params["tag"],
		ProjectID:   params.Get("projectId"),
		StarredOnly: params.Get("starred") == "true",
		Archive:     archive,
		Sort:        order,
		Language:    requestLanguage(r),
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list insights")
		return
	}
	writeJSON(ctx, w, http.StatusOK, insights)
}

// Tags handles GET /api/insights/tags.
func (h *InsightHandler) Tags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tags, err := h.insights.Tags(ctx)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list tags")
		return
	}
	writeJSON(ctx, w, http.StatusOK, tags)
}

// Get handles GET /api/insights/{insightID}.
func (h *InsightHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := h.insights.Get(ctx, chi.URLParam(r, "insightID"))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to get insight")
		return
	}
	writeJSON(ctx, w, http.StatusOK, in)
}

// Save handles POST /api/insights.
func (h *InsightHandler) Save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SaveInsightRequest
	if err := decodeJSON(r, &req); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, err := h.insights.Save(ctx, service.SaveInsightRequest{
		Title:         req.Title,
		OriginalQuery: req.OriginalQuery,
		Content:       req.Content,
		Sources:       req.Sources,
		Tags:          req.Tags,
		ProjectID:     req.ProjectID,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to save insight")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, in)
}

// Update handles PATCH /api/insights/{insightID}.
func (h *InsightHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req InsightPatch
	if err := decodeJSON(r, &req); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, err := h.insights.Update(ctx, chi.URLParam(r, "insightID"), service.UpdateInsightRequest{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to update insight")
		return
	}
	writeJSON(ctx, w, http.StatusOK, in)
}

type flagSetter func(ctx context.Context, id string, v bool) (repository.Insight, error)

// setFlag applies one boolean setter to the insight named in the path.
func setFlag(w http.ResponseWriter, r *http.Request, set flagSetter) {
	ctx := r.Context()
	v, ok := readFlag(w, r)
	if !ok {
		return
	}
	in, err := set(ctx, chi.URLParam(r, "insightID"), v)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to update insight")
		return
	}
	writeJSON(ctx, w, http.StatusOK, in)
}

// SetStarred handles PUT /api/insights/{insightID}/starred with {"value": bool}.
func (h *InsightHandler) SetStarred(w http.ResponseWriter, r *http.Request) {
	setFlag(w, r, h.insights.SetStarred)
}

// SetArchived handles PUT /api/insights/{insightID}/archived with {"value": bool}.
func (h *InsightHandler) SetArchived(w http.ResponseWriter, r *http.Request) {
	setFlag(w, r, h.insights.SetArchived)
}

// SetPublic handles PUT /api/insights/{insightID}/public with {"value": bool}.
// Publishing sets the share link; unpublishing clears it.
func (h *InsightHandler) SetPublic(w http.ResponseWriter, r *http.Request) {
	setFlag(w, r, h.insights.SetPublic)
}

// Delete handles DELETE /api/insights/{insightID}.
func (h *InsightHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.insights.Delete(ctx, chi.URLParam(r, "insightID")); err != nil {
		handleServiceError(w, ctx, err, "Failed to delete insight")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTML handles GET /api/insights/{insightID}/html, the insight rendered as a page.
func (h *InsightHandler) HTML(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := h.insights.Get(ctx, chi.URLParam(r, "insightID"))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to get insight")
		return
	}
	h.render(w, r, in)
}

// Shared handles GET /share/{insightID}. Only public insights are served.
func (h *InsightHandler) Shared(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimSpace(chi.URLParam(r, "insightID"))
	in, err := h.insights.Shared(ctx, id)
	if err != nil {
		contextutil.LoggerFromContext(ctx).InfoContext(ctx, "shared insight unavailable", "insight_id", id, "error", err)
		http.Error(w, "insight not found", http.StatusNotFound)
		return
	}
	h.render(w, r, in)
}

func (h *InsightHandler) render(w http.ResponseWriter, r *http.Request, in repository.Insight) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	page, err := h.pages.Render(in)
	if err != nil {
		logger.ErrorContext(ctx, "failed to render insight", "insight_id", in.ID, "error", err)
		http.Error(w, "failed to render insight", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}
