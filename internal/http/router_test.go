package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"moonscribe/internal/events"
	"moonscribe/internal/metrics"
	"moonscribe/internal/repository"
	"moonscribe/internal/secrets"
	"moonscribe/internal/service"
	"moonscribe/internal/service/mocks"
	"moonscribe/internal/storage"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestDeps(t *testing.T, ctrl *gomock.Controller) *Deps {
	t.Helper()
	store := storage.NewMemoryStore(storage.Quota{})
	bus := events.NewBus(nil)
	repos := repository.New(store, repository.Options{Bus: bus})
	sealer, err := secrets.NewSealer("router test secret")
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}
	up := mocks.NewMockUpstream(ctrl)
	keys := service.NewKeyService(repos, sealer)
	defaults := service.AIDefaults{Provider: "ollama", Model: "llama3.1"}

	return &Deps{
		Projects:      service.NewProjectService(repos),
		Content:       service.NewContentService(repos, up),
		Conversations: service.NewConversationService(repos, up, keys, defaults),
		Insights:      service.NewInsightService(repos),
		Flashcards:    service.NewFlashcardService(repos, up, keys, defaults),
		Keys:          keys,
		Dashboard:     service.NewDashboardService(repos),
		Bus:           bus,
		Commands:      events.NewCommands(),
		Store:         store,
		Metrics:       metrics.NewCollector("moonscribe_test"),
	}
}

func TestNewRouter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	if router := NewRouter(newTestDeps(t, ctrl)); router == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouter_Routes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := NewRouter(newTestDeps(t, ctrl))

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/api/health", wantStatus: http.StatusOK},
		{name: "dashboard", method: http.MethodGet, path: "/api/dashboard", wantStatus: http.StatusOK},
		{name: "list projects", method: http.MethodGet, path: "/api/projects", wantStatus: http.StatusOK},
		{name: "create project", method: http.MethodPost, path: "/api/projects", body: `{"name":"Biology"}`, wantStatus: http.StatusCreated},
		{name: "unknown project", method: http.MethodGet, path: "/api/projects/missing", wantStatus: http.StatusNotFound},
		{name: "inbox", method: http.MethodGet, path: "/api/inbox", wantStatus: http.StatusOK},
		{name: "add to inbox", method: http.MethodPost, path: "/api/inbox", body: `{"type":"note","title":"Idea"}`, wantStatus: http.StatusCreated},
		{name: "ungrouped conversations", method: http.MethodGet, path: "/api/conversations", wantStatus: http.StatusOK},
		{name: "insights", method: http.MethodGet, path: "/api/insights", wantStatus: http.StatusOK},
		{name: "insight tags", method: http.MethodGet, path: "/api/insights/tags", wantStatus: http.StatusOK},
		{name: "keys", method: http.MethodGet, path: "/api/keys", wantStatus: http.StatusOK},
		{name: "ask with bad body", method: http.MethodPost, path: "/api/ask", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "share of unknown insight", method: http.MethodGet, path: "/share/missing", wantStatus: http.StatusNotFound},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "teams disabled", method: http.MethodGet, path: "/api/teams", wantStatus: http.StatusNotFound},
		{name: "method not allowed", method: http.MethodPut, path: "/api/projects", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Router %s %s status = %v, want %v (body %s)", tt.method, tt.path, w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestRouter_MiddlewareApplied(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := NewRouter(newTestDeps(t, ctrl))

	req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %v, want %v", w.Code, http.StatusNoContent)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Error("Router should apply CORS middleware")
	}
}
