// Package events is the process-wide change notification bus.
//
// Delivery is synchronous: every handler subscribed when Publish is called runs on the
// publisher's goroutine, in subscription order, before Publish returns.
package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/metrics"
)

// Handler receives data-change events.
type Handler func(ctx context.Context, e Event)

// CommandHandler receives UI commands.
type CommandHandler func(ctx context.Context, c CommandEvent)

type subscription[T any] struct {
	match  func(T) bool
	fn     func(context.Context, T)
	active atomic.Bool
}

// fanout is an ordered list of subscriptions shared by Bus and Commands.
type fanout[T any] struct {
	mu   sync.Mutex
	subs []*subscription[T]
}

func (f *fanout[T]) add(match func(T) bool, fn func(context.Context, T)) func() {
	sub := &subscription[T]{match: match, fn: fn}
	sub.active.Store(true)

	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			f.mu.Lock()
			defer f.mu.Unlock()
			for i, s := range f.subs {
				if s == sub {
					f.subs = append(f.subs[:i:i], f.subs[i+1:]...)
					break
				}
			}
		})
	}
}

func (f *fanout[T]) deliver(ctx context.Context, v T, name string) int {
	f.mu.Lock()
	snapshot := make([]*subscription[T], len(f.subs))
	copy(snapshot, f.subs)
	f.mu.Unlock()

	delivered := 0
	for _, sub := range snapshot {
		// A handler may unsubscribe a later one during delivery
		if !sub.active.Load() || !sub.match(v) {
			continue
		}
		invoke(ctx, sub.fn, v, name)
		delivered++
	}
	return delivered
}

func (f *fanout[T]) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func invoke[T any](ctx context.Context, fn func(context.Context, T), v T, name string) {
	defer func() {
		if r := recover(); r != nil {
			contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "event handler panicked", "event", name, "panic", r)
		}
	}()
	fn(ctx, v)
}

// Bus fans data-change events out to subscribers.
type Bus struct {
	events  fanout[Event]
	metrics *metrics.Collector
	now     func() time.Time
}

// NewBus creates a bus. A nil collector is allowed.
func NewBus(m *metrics.Collector) *Bus {
	return &Bus{metrics: m, now: time.Now}
}

// Publish delivers e to every current subscriber of e.Topic and returns the number of handlers run.
func (b *Bus) Publish(ctx context.Context, e Event) int {
	if e.At.IsZero() {
		e.At = b.now().UTC()
	}
	if e.Origin == "" {
		e.Origin = OriginLocal
	}
	b.metrics.Published(e.Topic.String())
	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "publishing event",
		"topic", e.Topic.String(), "project_id", e.ProjectID, "key", e.Key, "origin", e.Origin)
	return b.events.deliver(ctx, e, e.Topic.String())
}

// Subscribe registers h for topic. The returned function unsubscribes and is safe to call twice.
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	return b.events.add(func(e Event) bool { return e.Topic == topic }, h)
}

// SubscribeMany registers h for several topics as one subscription.
func (b *Bus) SubscribeMany(topics []Topic, h Handler) func() {
	set := make(map[Topic]struct{}, len(topics))
	for _, t := range topics {
		set[t] = struct{}{}
	}
	return b.events.add(func(e Event) bool {
		_, ok := set[e.Topic]
		return ok
	}, h)
}

// SubscribeAll registers h for every topic.
func (b *Bus) SubscribeAll(h Handler) func() {
	return b.events.add(func(Event) bool { return true }, h)
}

// Subscribers reports the number of live subscriptions.
func (b *Bus) Subscribers() int {
	return b.events.len()
}

// Commands is the UI command channel. It shares nothing with Bus.
type Commands struct {
	commands fanout[CommandEvent]
	now      func() time.Time
}

// NewCommands creates a command channel.
func NewCommands() *Commands {
	return &Commands{now: time.Now}
}

// Send delivers c to every current command subscriber.
func (c *Commands) Send(ctx context.Context, ce CommandEvent) int {
	if ce.At.IsZero() {
		ce.At = c.now().UTC()
	}
	return c.commands.deliver(ctx, ce, ce.Command.String())
}

// Subscribe registers h for all commands.
func (c *Commands) Subscribe(h CommandHandler) func() {
	return c.commands.add(func(CommandEvent) bool { return true }, h)
}

// Subscribers reports the number of live command subscriptions.
func (c *Commands) Subscribers() int {
	return c.commands.len()
}
