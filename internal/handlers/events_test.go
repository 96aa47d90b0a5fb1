package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"moonscribe/internal/events"
)

// sseEvent is one parsed Server-Sent Event.
type sseEvent struct {
	name string
	data string
}

// openStream starts a GET against url and returns a channel of parsed events.
func openStream(t *testing.T, ctx context.Context, url string) (<-chan sseEvent, *http.Response) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	out := make(chan sseEvent, 16)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(resp.Body)
		var current sseEvent
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				current.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				current.data = strings.TrimPrefix(line, "data: ")
			case line == "" && current.name != "":
				out <- current
				current = sseEvent{}
			}
		}
	}()
	return out, resp
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func nextEvent(t *testing.T, stream <-chan sseEvent) sseEvent {
	t.Helper()
	select {
	case e, ok := <-stream:
		if !ok {
			t.Fatal("stream closed")
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event before deadline")
	}
	return sseEvent{}
}

func eventServer(t *testing.T) (*httptest.Server, *events.Bus, *events.Commands) {
	t.Helper()
	bus := events.NewBus(nil)
	commands := events.NewCommands()
	h := NewEventHandler(bus, commands, time.Minute)

	r := chi.NewRouter()
	r.Get("/api/events", h.Stream)
	r.Post("/api/commands", h.SendCommand)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, bus, commands
}

func TestEventHandler_Stream(t *testing.T) {
	srv, bus, _ := eventServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, resp := openStream(t, ctx, srv.URL+"/api/events?topic=content-changed&projectId=p1")
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	waitFor(t, func() bool { return bus.Subscribers() == 1 })

	bus.Publish(ctx, events.Event{Topic: events.ContentChanged, ProjectID: "p2"})
	bus.Publish(ctx, events.Event{Topic: events.InboxChanged})
	bus.Publish(ctx, events.Event{Topic: events.ContentChanged, ProjectID: "p1", Key: "moonscribe:content:p1"})

	e := nextEvent(t, stream)
	if e.name != "content-changed" {
		t.Fatalf("event name = %q, want content-changed", e.name)
	}
	var got events.Event
	if err := json.Unmarshal([]byte(e.data), &got); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if got.ProjectID != "p1" || got.Key != "moonscribe:content:p1" {
		t.Errorf("event = %+v", got)
	}

	cancel()
	waitFor(t, func() bool { return bus.Subscribers() == 0 })
}

func TestEventHandler_StreamUnknownTopic(t *testing.T) {
	srv, _, _ := eventServer(t)

	resp, err := http.Get(srv.URL + "/api/events?topic=weather-changed")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestEventHandler_SendCommand(t *testing.T) {
	srv, bus, commands := eventServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	post := func(body string) (*http.Response, CommandResponse) {
		t.Helper()
		resp, err := http.Post(srv.URL+"/api/commands", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		defer resp.Body.Close()
		var out CommandResponse
		if resp.StatusCode == http.StatusAccepted {
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				t.Fatalf("decode: %v", err)
			}
		}
		return resp, out
	}

	if resp, out := post(`{"command":"open-add-content"}`); resp.StatusCode != http.StatusAccepted || out.Delivered != 0 {
		t.Fatalf("send without listeners = %d, %+v", resp.StatusCode, out)
	}
	if resp, _ := post(`{"command":"self-destruct"}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown command status = %d, want 400", resp.StatusCode)
	}

	stream, _ := openStream(t, ctx, srv.URL+"/api/events")
	waitFor(t, func() bool { return bus.Subscribers() == 1 && commands.Subscribers() == 1 })

	if _, out := post(`{"command":"open-add-content","projectId":"p1"}`); out.Delivered != 1 {
		t.Errorf("delivered = %d, want 1", out.Delivered)
	}
	e := nextEvent(t, stream)
	if e.name != "command" || !strings.Contains(e.data, `"command":"open-add-content"`) {
		t.Errorf("event = %+v", e)
	}
}
