package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/events"
)

const (
	defaultHeartbeat = 25 * time.Second
	// streamBuffer is how many events a slow client may fall behind before events are dropped.
	streamBuffer = 64
)

// EventHandler streams bus events and UI commands to browsers and accepts commands.
type EventHandler struct {
	bus       *events.Bus
	commands  *events.Commands
	heartbeat time.Duration
}

// NewEventHandler creates a new EventHandler. A zero heartbeat uses 25s.
func NewEventHandler(bus *events.Bus, commands *events.Commands, heartbeat time.Duration) *EventHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &EventHandler{bus: bus, commands: commands, heartbeat: heartbeat}
}

// CommandRequest sends a UI command.
//
// swagger:model CommandRequest
type CommandRequest struct {
	Command   string `json:"command"`
	ProjectID string `json:"projectId,omitempty"`
}

// CommandResponse reports how many connected views received the command.
//
// swagger:model CommandResponse
type CommandResponse struct {
	Delivered int `json:"delivered"`
}

// streamItem is an event or a command queued for one client.
type streamItem struct {
	name    string
	payload any
}

// Stream handles GET /api/events?topic=&projectId=.
//
// Each data-change event is sent with its topic name as the SSE event name; commands
// are sent as "command" events. topic may repeat; none means every topic. projectId
// drops events scoped to other projects.
func (h *EventHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	topics := make([]events.Topic, 0)
	for _, name := range r.URL.Query()["topic"] {
		t, err := events.ParseTopic(strings.TrimSpace(name))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		topics = append(topics, t)
	}
	if len(topics) == 0 {
		topics = events.Topics()
	}
	projectID := r.URL.Query().Get("projectId")

	sse, err := newSSEWriter(w)
	if err != nil {
		logger.ErrorContext(ctx, "streaming not supported", "error", err)
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	queue := make(chan streamItem, streamBuffer)
	enqueue := func(item streamItem) {
		select {
		case queue <- item:
		default:
			logger.WarnContext(ctx, "event stream client is behind, dropping event", "event", item.name)
		}
	}

	unsubscribe := h.bus.SubscribeMany(topics, func(_ context.Context, e events.Event) {
		if projectID != "" && e.ProjectID != "" && e.ProjectID != projectID {
			return
		}
		enqueue(streamItem{name: e.Topic.String(), payload: e})
	})
	defer unsubscribe()
	if h.commands != nil {
		stopCommands := h.commands.Subscribe(func(_ context.Context, c events.CommandEvent) {
			enqueue(streamItem{name: "command", payload: c})
		})
		defer stopCommands()
	}

	logger.InfoContext(ctx, "event stream opened", "topics", len(topics), "project_id", projectID)
	defer logger.InfoContext(ctx, "event stream closed")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case item := <-queue:
			if err := sse.event(item.name, item.payload); err != nil {
				logger.DebugContext(ctx, "event stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := sse.comment("keep-alive"); err != nil {
				return
			}
		}
	}
}

// SendCommand handles POST /api/commands.
func (h *EventHandler) SendCommand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CommandRequest
	if err := decodeJSON(r, &req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	cmd, err := events.ParseCommand(req.Command)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	delivered := h.commands.Send(ctx, events.CommandEvent{Command: cmd, ProjectID: req.ProjectID})
	logger.InfoContext(ctx, "command sent", "command", cmd.String(), "delivered", delivered)
	writeJSON(ctx, w, http.StatusAccepted, CommandResponse{Delivered: delivered})
}
