package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"moonscribe/internal/storage"
)

type failingProbe struct{}

func (failingProbe) Get(context.Context, string) (storage.Entry, error) {
	return storage.Entry{}, fmt.Errorf("read: %w", storage.ErrStorageUnavailable)
}

type fixedState string

func (s fixedState) State() string { return string(s) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		store      StoreProbe
		upstream   BreakerState
		method     string
		wantStatus int
		wantState  string
	}{
		{
			name:       "healthy",
			store:      storage.NewMemoryStore(storage.Quota{}),
			upstream:   fixedState("closed"),
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name:       "no upstream configured",
			store:      storage.NewMemoryStore(storage.Quota{}),
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name:       "breaker open",
			store:      storage.NewMemoryStore(storage.Quota{}),
			upstream:   fixedState("open"),
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			wantState:  "degraded",
		},
		{
			name:       "storage down",
			store:      failingProbe{},
			upstream:   fixedState("closed"),
			method:     http.MethodGet,
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
		},
		{
			name:       "method not allowed",
			store:      storage.NewMemoryStore(storage.Quota{}),
			method:     http.MethodPost,
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.store, tt.upstream)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, "/api/health", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantState == "" {
				return
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantState {
				t.Errorf("status field = %q, want %q (issues %v)", resp.Status, tt.wantState, resp.Issues)
			}
		})
	}
}
