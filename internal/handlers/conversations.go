package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/repository"
	"moonscribe/internal/service"
)

// ConversationHandler handles HTTP requests for conversations. Routes without a
// project segment address the ungrouped chat.
type ConversationHandler struct {
	conversations service.ConversationService
}

// NewConversationHandler creates a new ConversationHandler.
func NewConversationHandler(conversations service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// AskRequest represents the HTTP request payload for a question.
//
// swagger:model AskRequest
type AskRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversationId,omitempty"`
	Provider       string `json:"provider,omitempty"`
	Model          string `json:"model,omitempty"`
}

// AskResponse is the conversation after the exchange plus the new assistant message.
//
// swagger:model AskResponse
type AskResponse struct {
	Conversation repository.Conversation `json:"conversation"`
	Reply        repository.Message      `json:"reply"`
}

// List handles GET /api/projects/{projectID}/conversations.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversations, err := h.conversations.List(ctx, chi.URLParam(r, "projectID"))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list conversations")
		return
	}
	writeJSON(ctx, w, http.StatusOK, conversations)
}

// Get handles GET /api/projects/{projectID}/conversations/{conversationID}.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conv, err := h.conversations.Get(ctx, chi.URLParam(r, "projectID"), chi.URLParam(r, "conversationID"))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to get conversation")
		return
	}
	writeJSON(ctx, w, http.StatusOK, conv)
}

// Create handles POST /api/projects/{projectID}/conversations.
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conv, err := h.conversations.Create(ctx, chi.URLParam(r, "projectID"))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to create conversation")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, conv)
}

// Delete handles DELETE /api/projects/{projectID}/conversations/{conversationID}.
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.conversations.Delete(ctx, chi.URLParam(r, "projectID"), chi.URLParam(r, "conversationID")); err != nil {
		handleServiceError(w, ctx, err, "Failed to delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Ask handles POST /api/projects/{projectID}/ask.
//
// The question is appended before upstream is called. When upstream fails the
// response is 502 and the question stays in the conversation.
//
// responses:
//
//	'200': AskResponse
//	'400': validation error
//	'404': project or conversation not found
//	'502': upstream unavailable or failed
func (h *ConversationHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req AskRequest
	if err := decodeJSON(r, &req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.conversations.Ask(ctx, service.AskRequest{
		UserID:         userID(r),
		ProjectID:      chi.URLParam(r, "projectID"),
		ConversationID: req.ConversationID,
		Question:       req.Question,
		Provider:       req.Provider,
		Model:          req.Model,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to process question")
		return
	}

	writeJSON(ctx, w, http.StatusOK, AskResponse{
		Conversation: result.Conversation,
		Reply:        result.Reply,
	})
}
