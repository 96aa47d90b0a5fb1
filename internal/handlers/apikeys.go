package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/service"
)

// KeyHandler handles HTTP requests for the caller's provider API keys. Keys are
// scoped by the X-User-ID header and never returned in plaintext.
type KeyHandler struct {
	keys service.KeyService
}

// NewKeyHandler creates a new KeyHandler.
func NewKeyHandler(keys service.KeyService) *KeyHandler {
	return &KeyHandler{keys: keys}
}

// AddKeyRequest stores a provider key.
//
// swagger:model AddKeyRequest
type AddKeyRequest struct {
	Provider string `json:"provider"`
	KeyName  string `json:"keyName"`
	Key      string `json:"key"`
	Activate bool   `json:"activate"`
}

// List handles GET /api/keys.
func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	keys, err := h.keys.List(ctx, userID(r))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list api keys")
		return
	}
	writeJSON(ctx, w, http.StatusOK, keys)
}

// Add handles POST /api/keys.
func (h *KeyHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AddKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := h.keys.Add(ctx, service.AddKeyRequest{
		UserID:   userID(r),
		Provider: req.Provider,
		KeyName:  req.KeyName,
		Key:      req.Key,
		Activate: req.Activate,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to add api key")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, view)
}

// Activate handles POST /api/keys/{keyID}/activate.
func (h *KeyHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.keys.Activate(ctx, userID(r), chi.URLParam(r, "keyID"))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to activate api key")
		return
	}
	writeJSON(ctx, w, http.StatusOK, view)
}

// Delete handles DELETE /api/keys/{keyID}.
func (h *KeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.keys.Delete(ctx, userID(r), chi.URLParam(r, "keyID")); err != nil {
		handleServiceError(w, ctx, err, "Failed to delete api key")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
