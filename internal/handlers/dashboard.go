package handlers

import (
	"net/http"

	"moonscribe/internal/service"
)

// DashboardHandler serves the workspace summary.
type DashboardHandler struct {
	dashboard service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboard service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// ServeHTTP handles GET /api/dashboard.
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := h.dashboard.Summary(ctx)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to build dashboard")
		return
	}
	writeJSON(ctx, w, http.StatusOK, summary)
}
