// Package handlers adapts the workspace services to HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/service"
	"moonscribe/internal/views"
)

// UserIDHeader carries the caller's identity. Requests without it use the anonymous namespace.
const UserIDHeader = "X-User-ID"

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
	// Field names the offending request field for validation errors.
	Field string `json:"field,omitempty"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}

// decodeJSON reads a JSON body into v. Unknown fields are rejected.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// handleServiceError maps service errors to appropriate HTTP status codes and responses.
func handleServiceError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		logger.WarnContext(ctx, "validation error", "field", validationErr.Field, "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ErrorResponse{
			Error: fmt.Sprintf("Validation error: %s", validationErr.Message),
			Field: validationErr.Field,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		logger.WarnContext(ctx, "invalid input", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, service.ErrNotFound):
		logger.InfoContext(ctx, "resource not found", "error", err)
		writeError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, service.ErrConflict):
		logger.WarnContext(ctx, "write conflict", "error", err)
		writeError(w, http.StatusConflict, "The resource was modified concurrently, retry the request")
	case errors.Is(err, service.ErrStorageFull):
		logger.ErrorContext(ctx, "storage full", "error", err)
		writeError(w, http.StatusInsufficientStorage, "Storage quota exceeded")
	case errors.Is(err, service.ErrExternalService):
		logger.ErrorContext(ctx, "external service error", "error", err)
		writeError(w, http.StatusBadGateway, "External service error")
	case errors.Is(err, service.ErrUnavailable):
		logger.ErrorContext(ctx, "storage unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable")
	default:
		logger.ErrorContext(ctx, "service error", "error", err)
		writeError(w, http.StatusInternalServerError, defaultMsg)
	}
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserIDHeader))
}

func requestLanguage(r *http.Request) language.Tag {
	return views.LanguageFromHeader(r.Header.Get("Accept-Language"))
}

// sortOrder reads the sort query parameter, writing a 400 on an unknown order.
func sortOrder(w http.ResponseWriter, r *http.Request) (views.SortOrder, bool) {
	order, err := views.ParseSortOrder(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return order, true
}

// boolBody is the payload of the flag endpoints.
type boolBody struct {
	Value *bool `json:"value"`
}

func readFlag(w http.ResponseWriter, r *http.Request) (bool, bool) {
	var body boolBody
	if err := decodeJSON(r, &body); err != nil || body.Value == nil {
		writeError(w, http.StatusBadRequest, `Request body must be {"value": true|false}`)
		return false, false
	}
	return *body.Value, true
}
