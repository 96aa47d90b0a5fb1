package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/service"
)

// FlashcardHandler handles HTTP requests for a project's study cards.
type FlashcardHandler struct {
	flashcards service.FlashcardService
}

// NewFlashcardHandler creates a new FlashcardHandler.
func NewFlashcardHandler(flashcards service.FlashcardService) *FlashcardHandler {
	return &FlashcardHandler{flashcards: flashcards}
}

// GenerateFlashcardsRequest asks for new cards. A zero count uses the default.
//
// swagger:model GenerateFlashcardsRequest
type GenerateFlashcardsRequest struct {
	Topic    string `json:"topic,omitempty"`
	Count    int    `json:"count,omitempty"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// List handles GET /api/projects/{projectID}/flashcards.
func (h *FlashcardHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cards, err := h.flashcards.List(ctx, chi.URLParam(r, "projectID"))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list flashcards")
		return
	}
	writeJSON(ctx, w, http.StatusOK, cards)
}

// Generate handles POST /api/projects/{projectID}/flashcards and returns the new cards.
func (h *FlashcardHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req GenerateFlashcardsRequest
	if err := decodeJSON(r, &req); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cards, err := h.flashcards.Generate(ctx, service.GenerateFlashcardsRequest{
		UserID:    userID(r),
		ProjectID: chi.URLParam(r, "projectID"),
		Topic:     req.Topic,
		Count:     req.Count,
		Provider:  req.Provider,
		Model:     req.Model,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to generate flashcards")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, cards)
}

// Delete handles DELETE /api/projects/{projectID}/flashcards/{cardID}.
func (h *FlashcardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.flashcards.Delete(ctx, chi.URLParam(r, "projectID"), chi.URLParam(r, "cardID")); err != nil {
		handleServiceError(w, ctx, err, "Failed to delete flashcard")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
