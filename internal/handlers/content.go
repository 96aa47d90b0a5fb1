package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/service"
)

// maxUploadBytes bounds multipart uploads.
const maxUploadBytes = 64 << 20

// ContentHandler handles HTTP requests for the inbox and project content.
type ContentHandler struct {
	content service.ContentService
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(content service.ContentService) *ContentHandler {
	return &ContentHandler{content: content}
}

// ContentRequest is the payload for capturing a source.
//
// swagger:model ContentRequest
type ContentRequest struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	URL       string `json:"url,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// MoveContentRequest moves an item between the inbox and projects. An empty
// project id names the inbox.
//
// swagger:model MoveContentRequest
type MoveContentRequest struct {
	ItemID        string `json:"itemId"`
	FromProjectID string `json:"fromProjectId"`
	ToProjectID   string `json:"toProjectId"`
}

func (h *ContentHandler) query(w http.ResponseWriter, r *http.Request) (service.ContentQuery, bool) {
	order, ok := sortOrder(w, r)
	if !ok {
		return service.ContentQuery{}, false
	}
	return service.ContentQuery{
		Query:    r.URL.Query().Get("q"),
		Sort:     order,
		Language: requestLanguage(r),
	}, true
}

func (h *ContentHandler) decode(w http.ResponseWriter, r *http.Request) (service.AddContentRequest, bool) {
	var req ContentRequest
	if err := decodeJSON(r, &req); err != nil {
		ctx := r.Context()
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return service.AddContentRequest{}, false
	}
	return service.AddContentRequest{
		Type:      req.Type,
		Title:     req.Title,
		URL:       req.URL,
		Thumbnail: req.Thumbnail,
	}, true
}

// Inbox handles GET /api/inbox.
func (h *ContentHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	items, err := h.content.Inbox(ctx, q)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to load inbox")
		return
	}
	writeJSON(ctx, w, http.StatusOK, items)
}

// AddToInbox handles POST /api/inbox.
func (h *ContentHandler) AddToInbox(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	item, err := h.content.AddToInbox(ctx, req)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to add content")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, item)
}

// RemoveFromInbox handles DELETE /api/inbox/{itemID}.
func (h *ContentHandler) RemoveFromInbox(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.content.RemoveFromInbox(ctx, chi.URLParam(r, "itemID")); err != nil {
		handleServiceError(w, ctx, err, "Failed to remove content")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProjectContent handles GET /api/projects/{projectID}/content.
func (h *ContentHandler) ProjectContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	items, err := h.content.ProjectContent(ctx, chi.URLParam(r, "projectID"), q)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to load project content")
		return
	}
	writeJSON(ctx, w, http.StatusOK, items)
}

// AddToProject handles POST /api/projects/{projectID}/content.
func (h *ContentHandler) AddToProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	item, err := h.content.AddToProject(ctx, chi.URLParam(r, "projectID"), req)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to add content")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, item)
}

// RemoveFromProject handles DELETE /api/projects/{projectID}/content/{itemID}.
func (h *ContentHandler) RemoveFromProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.content.RemoveFromProject(ctx, chi.URLParam(r, "projectID"), chi.URLParam(r, "itemID")); err != nil {
		handleServiceError(w, ctx, err, "Failed to remove content")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Move handles POST /api/content/move.
func (h *ContentHandler) Move(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req MoveContentRequest
	if err := decodeJSON(r, &req); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.content.Move(ctx, service.MoveRequest{
		ItemID:        req.ItemID,
		FromProjectID: req.FromProjectID,
		ToProjectID:   req.ToProjectID,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to move content")
		return
	}
	writeJSON(ctx, w, http.StatusOK, item)
}

// Upload handles POST /api/upload as multipart form data with a "file" part and an
// optional "project_id" field. Without a project the item lands in the inbox.
func (h *ContentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		logger.WarnContext(ctx, "invalid upload", "error", err)
		writeError(w, http.StatusBadRequest, "A file part is required")
		return
	}
	defer file.Close()

	item, err := h.content.Upload(ctx, service.UploadRequest{
		ProjectID: r.FormValue("project_id"),
		Filename:  header.Filename,
		Body:      file,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to upload file")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, item)
}
