package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/events"
	"moonscribe/internal/service"
	"moonscribe/internal/viewsync"
)

// ViewServices are the read sides the streamed views are built from.
type ViewServices struct {
	Projects  service.ProjectService
	Content   service.ContentService
	Insights  service.InsightService
	Dashboard service.DashboardService
}

// ViewHandler streams the state of a workspace view. A binding is mounted for the
// lifetime of the request and every reload is pushed as a "state" event.
type ViewHandler struct {
	bus       viewsync.Subscriber
	services  ViewServices
	heartbeat time.Duration
}

// NewViewHandler creates a new ViewHandler. A zero heartbeat uses 25s.
func NewViewHandler(bus viewsync.Subscriber, services ViewServices, heartbeat time.Duration) *ViewHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &ViewHandler{bus: bus, services: services, heartbeat: heartbeat}
}

// options returns the binding options for a named view, or false for an unknown view.
func (h *ViewHandler) options(view, projectID string) (viewsync.Options[any], bool) {
	switch view {
	case "dashboard":
		return viewsync.Options[any]{
			Name: view,
			Topics: []events.Topic{
				events.ProjectsChanged, events.ContentAdded, events.ContentChanged, events.InboxChanged,
				events.ConversationsChanged, events.InsightsChanged, events.StorageChanged,
			},
			Load: func(ctx context.Context) (any, error) {
				return h.services.Dashboard.Summary(ctx)
			},
		}, true
	case "projects":
		return viewsync.Options[any]{
			Name: view,
			Topics: []events.Topic{
				events.ProjectsChanged, events.ContentAdded, events.ContentChanged,
				events.ConversationsChanged, events.InsightsChanged, events.StorageChanged,
			},
			Load: func(ctx context.Context) (any, error) {
				return h.services.Projects.List(ctx, service.ProjectListQuery{})
			},
			Fallback: []any{},
		}, true
	case "inbox":
		return viewsync.Options[any]{
			Name:   view,
			Topics: []events.Topic{events.InboxChanged, events.StorageChanged},
			Load: func(ctx context.Context) (any, error) {
				return h.services.Content.Inbox(ctx, service.ContentQuery{})
			},
			Fallback: []any{},
		}, true
	case "insights":
		return viewsync.Options[any]{
			Name:   view,
			Topics: []events.Topic{events.InsightsChanged, events.StorageChanged},
			Load: func(ctx context.Context) (any, error) {
				return h.services.Insights.List(ctx, service.InsightQuery{})
			},
			Fallback: []any{},
		}, true
	case "project":
		if projectID == "" {
			return viewsync.Options[any]{}, false
		}
		return viewsync.Options[any]{
			Name: view,
			Topics: []events.Topic{
				events.ProjectsChanged, events.ContentAdded, events.ContentChanged,
				events.ConversationsChanged, events.InsightsChanged, events.FlashcardsChanged, events.StorageChanged,
			},
			Load: func(ctx context.Context) (any, error) {
				return h.services.Projects.Get(ctx, projectID)
			},
			ProjectID: projectID,
		}, true
	default:
		return viewsync.Options[any]{}, false
	}
}

// Stream handles GET /api/views/{view}/stream?projectId=. view is one of dashboard,
// projects, inbox, insights or project; project needs projectId. A failed load
// sends the view's empty fallback.
func (h *ViewHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := chi.URLParam(r, "view")
	projectID := r.URL.Query().Get("projectId")
	logger := contextutil.LoggerFromContext(ctx).With("view", view, "project_id", projectID)
	ctx = contextutil.WithLogger(ctx, logger)

	opts, ok := h.options(view, projectID)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown view")
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		logger.ErrorContext(ctx, "streaming not supported", "error", err)
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	// Only the newest state matters; an unread older one is replaced
	latest := make(chan any, 1)
	binding := viewsync.New(h.bus, opts)
	binding.OnChange(func(state any) {
		for {
			select {
			case latest <- state:
				return
			default:
			}
			select {
			case <-latest:
			default:
			}
		}
	})

	if err := binding.Mount(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to mount view", "error", err)
		return
	}
	defer binding.Unmount()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case state := <-latest:
			if err := sse.event("state", state); err != nil {
				logger.DebugContext(ctx, "view stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := sse.comment("keep-alive"); err != nil {
				return
			}
		}
	}
}
