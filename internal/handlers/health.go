package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/repository"
	"moonscribe/internal/storage"
)

// StoreProbe is the read the health check uses to reach storage.
type StoreProbe interface {
	Get(ctx context.Context, key string) (storage.Entry, error)
}

// BreakerState reports the upstream circuit breaker state.
type BreakerState interface {
	State() string
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	store              StoreProbe
	upstream           BreakerState
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler. upstream may be nil.
func NewHealthHandler(store StoreProbe, upstream BreakerState) *HealthHandler {
	return &HealthHandler{
		store:              store,
		upstream:           upstream,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy", "degraded", or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is degraded or unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// Storage is required; an open upstream breaker only degrades the service.
// Returns 200 OK if healthy or degraded, 503 Service Unavailable if unhealthy.
//
// swagger:route GET /api/health healthCheck
//
// # Health check endpoint
//
// Returns the health status of local storage and the upstream AI service.
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: System is healthy or degraded
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
//	'503':
//	  description: System is unhealthy
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string
	status := "healthy"
	httpStatus := http.StatusOK

	if h.checkStore(checkCtx, logger) {
		checks["storage"] = "ok"
	} else {
		checks["storage"] = "error"
		issues = append(issues, "storage_unavailable")
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	if h.upstream != nil {
		state := h.upstream.State()
		checks["upstream"] = state
		if state != "closed" {
			issues = append(issues, "upstream_breaker_"+state)
			if status == "healthy" {
				status = "degraded"
			}
		}
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}

// checkStore reads the project index. A missing key still proves the store answers.
func (h *HealthHandler) checkStore(ctx context.Context, logger *slog.Logger) bool {
	_, err := h.store.Get(ctx, repository.Key(repository.FamilyProjects, ""))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.WarnContext(ctx, "storage health check failed", "error", err)
		return false
	}
	return true
}
