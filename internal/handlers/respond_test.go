package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"moonscribe/internal/events"
	"moonscribe/internal/repository"
	"moonscribe/internal/service"
	"moonscribe/internal/storage"
)

func init() {
	// Set default logger to discard output for cleaner test output
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// newTestRepos returns repositories over an in-memory store and the bus they publish on.
func newTestRepos(t *testing.T) (*repository.Repositories, *events.Bus) {
	t.Helper()
	bus := events.NewBus(nil)
	return repository.New(storage.NewMemoryStore(storage.Quota{}), repository.Options{Bus: bus}), bus
}

func decodeError(t *testing.T, body io.Reader) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantField  string
	}{
		{
			name:       "validation error",
			err:        &service.ValidationError{Field: "name", Message: "must not be blank"},
			wantStatus: http.StatusBadRequest,
			wantField:  "name",
		},
		{
			name:       "invalid input",
			err:        fmt.Errorf("count: %w", service.ErrInvalidInput),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not found",
			err:        fmt.Errorf("project p1: %w", service.ErrNotFound),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "conflict",
			err:        service.ErrConflict,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "storage full",
			err:        service.ErrStorageFull,
			wantStatus: http.StatusInsufficientStorage,
		},
		{
			name:       "external service",
			err:        fmt.Errorf("ask: %w", service.ErrExternalService),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "unavailable",
			err:        service.ErrUnavailable,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handleServiceError(w, context.Background(), tt.err, "Failed")

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			resp := decodeError(t, w.Body)
			if resp.Field != tt.wantField {
				t.Errorf("field = %q, want %q", resp.Field, tt.wantField)
			}
			if tt.wantStatus == http.StatusInternalServerError && resp.Error != "Failed" {
				t.Errorf("error = %q, want default message", resp.Error)
			}
		})
	}
}

func TestReadFlag(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   bool
		wantOK bool
	}{
		{name: "true", body: `{"value":true}`, want: true, wantOK: true},
		{name: "false", body: `{"value":false}`, want: false, wantOK: true},
		{name: "missing value", body: `{}`, wantOK: false},
		{name: "unknown field", body: `{"value":true,"extra":1}`, wantOK: false},
		{name: "not json", body: `yes`, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			got, ok := readFlag(w, r)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("readFlag() = %v, %v, want %v, %v", got, ok, tt.want, tt.wantOK)
			}
			if !ok && w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestSortOrder_Unknown(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?sort=sideways", nil)
	w := httptest.NewRecorder()

	if _, ok := sortOrder(w, r); ok {
		t.Fatal("sortOrder() ok = true for unknown order")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
