package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"moonscribe/internal/metrics"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *metrics.Collector) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	m := metrics.NewCollector("moonscribe_test")
	return NewClient(Config{BaseURL: server.URL, APIKey: "test-key", Timeout: 5 * time.Second}, m), m
}

func TestClient_Ask(t *testing.T) {
	tests := []struct {
		name       string
		serverResp func(w http.ResponseWriter, r *http.Request)
		wantAnswer string
		wantErr    bool
		wantStatus int
	}{
		{
			name: "successful ask",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/api/ask" {
					t.Errorf("expected /api/ask, got %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
					t.Errorf("Authorization = %q", got)
				}
				var req AskRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("failed to decode request: %v", err)
				}
				if req.Question != "What is RAG?" || req.ProjectID != "p1" || len(req.History) != 1 {
					t.Errorf("unexpected request %+v", req)
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(AskResponse{
					Answer:  "Retrieval augmented generation.",
					Sources: []Source{{Number: 1, Title: "notes.pdf", Relevance: 92}},
				})
			},
			wantAnswer: "Retrieval augmented generation.",
		},
		{
			name: "server error",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("boom"))
			},
			wantErr:    true,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "invalid json",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.serverResp)

			resp, err := client.Ask(context.Background(), AskRequest{
				Question:  "What is RAG?",
				ProjectID: "p1",
				History:   []HistoryMessage{{Role: "user", Content: "hi"}},
			})
			if tt.wantErr {
				if err == nil {
					t.Fatal("Ask() expected error")
				}
				if tt.wantStatus != 0 {
					var statusErr *StatusError
					if !errors.As(err, &statusErr) || statusErr.Code != tt.wantStatus {
						t.Errorf("Ask() error = %v, want status %d", err, tt.wantStatus)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("Ask() error = %v", err)
			}
			if resp.Answer != tt.wantAnswer {
				t.Errorf("Answer = %q, want %q", resp.Answer, tt.wantAnswer)
			}
			if len(resp.Sources) != 1 || resp.Sources[0].Title != "notes.pdf" {
				t.Errorf("Sources = %+v", resp.Sources)
			}
		})
	}
}

func TestClient_Upload(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/upload" {
			t.Errorf("expected /api/upload, got %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}
		if got := r.FormValue("project_id"); got != "p1" {
			t.Errorf("project_id = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile() error = %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "notes.md" || string(data) != "# Notes" {
			t.Errorf("uploaded %q = %q", header.Filename, data)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"chunks_processed": 3})
	})

	resp, err := client.Upload(context.Background(), "p1", "notes.md", strings.NewReader("# Notes"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if resp.Filename != "notes.md" || resp.Chunks != 3 {
		t.Errorf("Upload() = %+v", resp)
	}
}

func TestClient_UploadResponseFields(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantChunks int
		wantFile   string
		wantReject bool
	}{
		{name: "chunks", body: `{"success":true,"filename":"a.pdf","chunks":12}`, wantChunks: 12, wantFile: "a.pdf"},
		{name: "older chunk field", body: `{"success":true,"chunks_processed":4}`, wantChunks: 4, wantFile: "upload.bin"},
		{name: "image analysis", body: `{"success":true,"filename":"cat.png","analysis":"a cat"}`, wantFile: "cat.png"},
		{name: "rejected", body: `{"success":false,"error":"unsupported file type"}`, wantReject: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			resp, err := client.Upload(context.Background(), "", "upload.bin", strings.NewReader("x"))
			if tt.wantReject {
				var rejected *RejectedError
				if !errors.As(err, &rejected) || rejected.Reason != "unsupported file type" {
					t.Fatalf("Upload() error = %v, want RejectedError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Upload() error = %v", err)
			}
			if resp.Chunks != tt.wantChunks || resp.Filename != tt.wantFile {
				t.Errorf("Upload() = %+v, want chunks %d file %q", resp, tt.wantChunks, tt.wantFile)
			}
		})
	}
}

func TestClient_DeleteSuccessFlag(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{name: "success true", status: http.StatusOK, body: `{"success":true}`},
		{name: "empty body", status: http.StatusNoContent},
		{name: "success false", status: http.StatusOK, body: `{"success":false}`, wantErr: true},
		{name: "success false with message", status: http.StatusOK, body: `{"success":false,"message":"file not found"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := client.Delete(context.Background(), "a.pdf")
			if !tt.wantErr {
				if err != nil {
					t.Errorf("Delete() error = %v", err)
				}
				return
			}
			var rejected *RejectedError
			if !errors.As(err, &rejected) {
				t.Errorf("Delete() error = %v, want RejectedError", err)
			}
		})
	}
}

func TestClient_RejectionsDoNotTrip(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	})

	for i := 0; i < 10; i++ {
		if err := client.Delete(context.Background(), "a.pdf"); err == nil {
			t.Fatalf("call %d: Delete() expected error", i)
		}
	}
	if client.State() != "closed" {
		t.Errorf("State() = %q, want closed", client.State())
	}
}

func TestClient_SendsSourceFilenames(t *testing.T) {
	bodies := map[string]map[string]any{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies[r.URL.Path] = body
		switch r.URL.Path {
		case "/api/ask":
			_, _ = w.Write([]byte(`{"answer":"a"}`))
		default:
			_, _ = w.Write([]byte(`{"flashcards":[]}`))
		}
	})

	ctx := context.Background()
	sources := []string{"cells.pdf", "lecture.mp4"}
	if _, err := client.Ask(ctx, AskRequest{Question: "q", SourceFilenames: sources}); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if _, err := client.GenerateFlashcards(ctx, FlashcardRequest{SourceFilenames: sources, Count: 5}); err != nil {
		t.Fatalf("GenerateFlashcards() error = %v", err)
	}

	for _, path := range []string{"/api/ask", "/api/study/flashcards"} {
		got, ok := bodies[path]["sourceFilenames"].([]any)
		if !ok || len(got) != 2 || got[0] != "cells.pdf" || got[1] != "lecture.mp4" {
			t.Errorf("%s sourceFilenames = %v", path, bodies[path]["sourceFilenames"])
		}
	}
}

func TestClient_DeleteAndFlashcards(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/delete":
			var req deleteRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Filename != "old.pdf" {
				t.Errorf("delete filename = %q", req.Filename)
			}
			w.WriteHeader(http.StatusNoContent)
		case "/api/study/flashcards":
			var req FlashcardRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.ProjectID != "p1" || req.Count != 2 {
				t.Errorf("flashcard request = %+v", req)
			}
			_ = json.NewEncoder(w).Encode(flashcardResponse{Flashcards: []GeneratedFlashcard{
				{Front: "Q1", Back: "A1", Source: "notes.pdf"},
				{Front: "Q2", Back: "A2"},
			}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	ctx := context.Background()
	if err := client.Delete(ctx, "old.pdf"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	cards, err := client.GenerateFlashcards(ctx, FlashcardRequest{ProjectID: "p1", Count: 2})
	if err != nil {
		t.Fatalf("GenerateFlashcards() error = %v", err)
	}
	if len(cards) != 2 || cards[0].Front != "Q1" {
		t.Errorf("GenerateFlashcards() = %+v", cards)
	}
}

func TestClient_Teams(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/teams":
			_ = json.NewEncoder(w).Encode(teamsResponse{Teams: []Team{{ID: "t1", Name: "Lab"}}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/teams":
			var req createTeamRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			_ = json.NewEncoder(w).Encode(Team{ID: "t2", Name: req.Name})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/teams/t2":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	teams, err := client.ListTeams(ctx)
	if err != nil || len(teams) != 1 || teams[0].ID != "t1" {
		t.Fatalf("ListTeams() = %+v, %v", teams, err)
	}
	team, err := client.CreateTeam(ctx, "Study group")
	if err != nil || team.ID != "t2" || team.Name != "Study group" {
		t.Fatalf("CreateTeam() = %+v, %v", team, err)
	}
	if err := client.DeleteTeam(ctx, "t2"); err != nil {
		t.Fatalf("DeleteTeam() error = %v", err)
	}
	if err := client.DeleteTeam(ctx, "missing"); err == nil {
		t.Error("DeleteTeam() on missing team expected error")
	}
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	calls := 0
	client, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := client.Ask(ctx, AskRequest{Question: "q"}); err == nil {
			t.Fatal("Ask() expected error")
		}
	}

	_, err := client.Ask(ctx, AskRequest{Question: "q"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Ask() after repeated failures error = %v, want ErrUnavailable", err)
	}
	if calls != 5 {
		t.Errorf("server saw %d calls, want 5 (no retries, no calls while open)", calls)
	}
	if client.State() != "open" {
		t.Errorf("State() = %q, want open", client.State())
	}
	if got := testutil.ToFloat64(m.UpstreamCalls.WithLabelValues("ask", "error")); got != 6 {
		t.Errorf("upstream error counter = %v, want 6", got)
	}
}

func TestClient_ClientErrorsDoNotTrip(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	for i := 0; i < 10; i++ {
		_, err := client.Ask(context.Background(), AskRequest{})
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("call %d: error = %v, want *StatusError", i, err)
		}
	}
	if client.State() != "closed" {
		t.Errorf("State() = %q, want closed", client.State())
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.Ask(ctx, AskRequest{Question: "slow"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Ask() error = %v, want context.Canceled", err)
	}
}
