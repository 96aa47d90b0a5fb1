package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"moonscribe/internal/repository"
	"moonscribe/internal/service"
)

func projectRouter(t *testing.T) http.Handler {
	t.Helper()
	repos, _ := newTestRepos(t)
	h := NewProjectHandler(service.NewProjectService(repos))

	r := chi.NewRouter()
	r.Get("/api/projects", h.List)
	r.Post("/api/projects", h.Create)
	r.Get("/api/projects/{projectID}", h.Get)
	r.Patch("/api/projects/{projectID}", h.Update)
	r.Delete("/api/projects/{projectID}", h.Delete)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestProjectHandler_Lifecycle(t *testing.T) {
	router := projectRouter(t)

	w := do(t, router, http.MethodPost, "/api/projects", `{"name":"Biology","color":2,"tags":["science"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created repository.Project
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	if created.ID == "" || created.Name != "Biology" {
		t.Fatalf("created = %+v", created)
	}

	w = do(t, router, http.MethodPatch, "/api/projects/"+created.ID, `{"name":"Cell Biology"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/api/projects/"+created.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var detail service.ProjectDetail
	if err := json.NewDecoder(w.Body).Decode(&detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.Project.Name != "Cell Biology" {
		t.Errorf("detail name = %q, want Cell Biology", detail.Project.Name)
	}

	w = do(t, router, http.MethodGet, "/api/projects?q=cell", "")
	var listed []repository.Project
	if err := json.NewDecoder(w.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("list len = %d, want 1", len(listed))
	}

	if w = do(t, router, http.MethodDelete, "/api/projects/"+created.ID, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w = do(t, router, http.MethodGet, "/api/projects/"+created.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
}

func TestProjectHandler_CreateErrors(t *testing.T) {
	router := projectRouter(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{name: "blank name", body: `{"name":"  "}`, wantStatus: http.StatusBadRequest, wantField: "name"},
		{name: "color outside palette", body: `{"name":"Art","color":12}`, wantStatus: http.StatusBadRequest, wantField: "color"},
		{name: "unknown field", body: `{"name":"Art","owner":"me"}`, wantStatus: http.StatusBadRequest},
		{name: "malformed", body: `{`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/projects", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if resp := decodeError(t, w.Body); resp.Field != tt.wantField {
				t.Errorf("field = %q, want %q", resp.Field, tt.wantField)
			}
		})
	}
}

func TestProjectHandler_ListBadSort(t *testing.T) {
	router := projectRouter(t)
	if w := do(t, router, http.MethodGet, "/api/projects?sort=sideways", ""); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
