// Package upstream talks to the retrieval and generation service over HTTP.
// Every call goes through a circuit breaker and is never retried.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/metrics"
)

// ErrUnavailable is returned while the circuit breaker is rejecting calls.
var ErrUnavailable = errors.New("upstream temporarily unavailable")

// Config holds the connection settings for the upstream service.
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout bounds a single call including reading the response body.
	Timeout time.Duration

	// Breaker tuning. Zero values take the defaults below.
	MaxHalfOpenRequests uint32
	Interval            time.Duration
	OpenTimeout         time.Duration
	FailureThreshold    float64
	MinRequests         uint32
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxHalfOpenRequests == 0 {
		c.MaxHalfOpenRequests = 5
	}
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 60 * time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 0.8
	}
	if c.MinRequests == 0 {
		c.MinRequests = 5
	}
	return c
}

// Client is a client for the upload, ask, delete, flashcard and team endpoints.
type Client struct {
	BaseURL string
	APIKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Collector
}

// NewClient creates a new upstream client.
func NewClient(cfg Config, m *metrics.Collector) *Client {
	cfg = cfg.withDefaults()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "upstream",
		MaxRequests: cfg.MaxHalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		IsSuccessful: isSuccessful,
	})

	return &Client{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		metrics: m,
	}
}

// isSuccessful decides what counts against the breaker. Client errors and caller
// cancellation say nothing about the health of the service.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code < http.StatusInternalServerError
	}
	return false
}

// State reports the breaker state, for health output.
func (c *Client) State() string {
	return c.breaker.State().String()
}

// Ask sends a question with the conversation history and returns the answer.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	return execute(ctx, c, "ask", func() (*AskResponse, error) {
		var resp AskResponse
		if err := c.doJSON(ctx, http.MethodPost, "/api/ask", req, &resp); err != nil {
			return nil, err
		}
		if resp.Sources == nil {
			resp.Sources = []Source{}
		}
		return &resp, nil
	})
}

// Upload sends a file to be chunked and indexed for a project.
func (c *Client) Upload(ctx context.Context, projectID, filename string, r io.Reader) (*UploadResponse, error) {
	return execute(ctx, c, "upload", func() (*UploadResponse, error) {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		if projectID != "" {
			if err := w.WriteField("project_id", projectID); err != nil {
				return nil, fmt.Errorf("failed to write form field: %w", err)
			}
		}
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(part, r); err != nil {
			return nil, fmt.Errorf("failed to copy upload: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to finish form: %w", err)
		}

		req, err := c.newRequest(ctx, http.MethodPost, "/api/upload", &body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())

		var resp UploadResponse
		if err := c.do(req, "upload", &resp); err != nil {
			return nil, err
		}
		if resp.Filename == "" {
			resp.Filename = filename
		}
		if resp.Chunks == 0 {
			resp.Chunks = resp.LegacyChunks
		}
		return &resp, nil
	})
}

// Delete removes an indexed file. An empty 2xx body counts as success.
func (c *Client) Delete(ctx context.Context, filename string) error {
	_, err := execute(ctx, c, "delete", func() (struct{}, error) {
		var resp deleteResponse
		return struct{}{}, c.doJSON(ctx, http.MethodPost, "/api/delete", deleteRequest{Filename: filename}, &resp)
	})
	return err
}

// GenerateFlashcards asks the service for study cards.
func (c *Client) GenerateFlashcards(ctx context.Context, req FlashcardRequest) ([]GeneratedFlashcard, error) {
	return execute(ctx, c, "flashcards", func() ([]GeneratedFlashcard, error) {
		var resp flashcardResponse
		if err := c.doJSON(ctx, http.MethodPost, "/api/study/flashcards", req, &resp); err != nil {
			return nil, err
		}
		if resp.Flashcards == nil {
			return []GeneratedFlashcard{}, nil
		}
		return resp.Flashcards, nil
	})
}

// ListTeams returns the teams visible to the configured key.
func (c *Client) ListTeams(ctx context.Context) ([]Team, error) {
	return execute(ctx, c, "teams.list", func() ([]Team, error) {
		var resp teamsResponse
		if err := c.doJSON(ctx, http.MethodGet, "/api/teams", nil, &resp); err != nil {
			return nil, err
		}
		if resp.Teams == nil {
			return []Team{}, nil
		}
		return resp.Teams, nil
	})
}

// CreateTeam creates a team and returns it.
func (c *Client) CreateTeam(ctx context.Context, name string) (*Team, error) {
	return execute(ctx, c, "teams.create", func() (*Team, error) {
		var team Team
		if err := c.doJSON(ctx, http.MethodPost, "/api/teams", createTeamRequest{Name: name}, &team); err != nil {
			return nil, err
		}
		return &team, nil
	})
}

// DeleteTeam deletes a team by id.
func (c *Client) DeleteTeam(ctx context.Context, id string) error {
	_, err := execute(ctx, c, "teams.delete", func() (struct{}, error) {
		return struct{}{}, c.doJSON(ctx, http.MethodDelete, "/api/teams/"+url.PathEscape(id), nil, nil)
	})
	return err
}

// execute runs fn through the breaker and records the outcome.
func execute[T any](ctx context.Context, c *Client, endpoint string, fn func() (T, error)) (T, error) {
	var zero T
	start := time.Now()

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	c.metrics.Upstream(endpoint, err)

	logger := contextutil.LoggerFromContext(ctx)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logger.WarnContext(ctx, "upstream call rejected by circuit breaker", "endpoint", endpoint, "state", c.breaker.State().String())
			return zero, fmt.Errorf("%s: %w", endpoint, ErrUnavailable)
		}
		logger.ErrorContext(ctx, "upstream call failed", "endpoint", endpoint, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return zero, err
	}

	logger.DebugContext(ctx, "upstream call completed", "endpoint", endpoint, "duration_ms", time.Since(start).Milliseconds())
	v, _ := out.(T)
	return v, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, endpoint string, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if _, statusOnly := out.(*deleteResponse); statusOnly && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if ack, ok := out.(interface{ rejection() (string, bool) }); ok {
		if reason, rejected := ack.rejection(); rejected {
			return &RejectedError{Endpoint: endpoint, Reason: reason}
		}
	}
	return nil
}
