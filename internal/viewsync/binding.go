// Package viewsync keeps a view's state in step with the repositories: load on mount,
// reload whenever a subscribed topic is published, stop on unmount.
package viewsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/events"
)

var (
	// ErrAlreadyMounted is returned by Mount on a mounted binding.
	ErrAlreadyMounted = errors.New("binding already mounted")
)

// Subscriber is the part of the event bus a binding needs.
type Subscriber interface {
	SubscribeMany(topics []events.Topic, h events.Handler) func()
}

// Loader builds view state from the repositories.
type Loader[S any] func(ctx context.Context) (S, error)

// Options configures a Binding.
type Options[S any] struct {
	// Name identifies the view in logs.
	Name   string
	Topics []events.Topic
	Load   Loader[S]
	// Fallback is served before the first load completes and whenever a load fails.
	Fallback S
	// ProjectID, when set, ignores events scoped to other projects. Global events always reload.
	ProjectID string
}

// Binding holds the state of one mounted view.
type Binding[S any] struct {
	bus  Subscriber
	opts Options[S]

	mu          sync.Mutex
	state       S
	ready       bool
	missed      bool
	mounted     bool
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	listeners   []func(S)
}

// New creates an unmounted binding.
func New[S any](bus Subscriber, opts Options[S]) *Binding[S] {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return &Binding[S]{
		bus:   bus,
		opts:  opts,
		state: opts.Fallback,
		ctx:   ctx,
	}
}

// Mount subscribes to the configured topics and loads the initial state. Events
// published while that load runs trigger one more reload once it completes.
// The binding context derives from ctx and lives until Unmount.
func (b *Binding[S]) Mount(ctx context.Context) error {
	b.mu.Lock()
	if b.mounted {
		b.mu.Unlock()
		return fmt.Errorf("%s: %w", b.opts.Name, ErrAlreadyMounted)
	}
	b.mounted = true
	b.ready = false
	b.missed = false
	b.state = b.opts.Fallback
	b.ctx, b.cancel = context.WithCancel(ctx)
	bindingCtx := b.ctx
	b.mu.Unlock()

	unsubscribe := b.bus.SubscribeMany(b.opts.Topics, b.handle)

	b.mu.Lock()
	if !b.mounted || b.ctx != bindingCtx {
		b.mu.Unlock()
		unsubscribe()
		return nil
	}
	b.unsubscribe = unsubscribe
	b.mu.Unlock()

	state := b.load(bindingCtx)

	b.mu.Lock()
	if !b.mounted || b.ctx != bindingCtx {
		// Unmounted while loading
		b.mu.Unlock()
		return nil
	}
	b.state = state
	b.ready = true
	missed := b.missed
	b.missed = false
	b.mu.Unlock()

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "view mounted", "view", b.opts.Name, "missed_events", missed)
	b.notify(state)
	if missed {
		b.Reload()
	}
	return nil
}

func (b *Binding[S]) handle(ctx context.Context, e events.Event) {
	if b.opts.ProjectID != "" && e.ProjectID != "" && e.ProjectID != b.opts.ProjectID {
		return
	}
	b.mu.Lock()
	if b.mounted && !b.ready {
		b.missed = true
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	b.Reload()
}

// Reload re-runs the loader and replaces the state. It does nothing while unmounted.
func (b *Binding[S]) Reload() {
	b.mu.Lock()
	if !b.mounted {
		b.mu.Unlock()
		return
	}
	ctx := b.ctx
	b.mu.Unlock()

	state := b.load(ctx)

	b.mu.Lock()
	if !b.mounted || b.ctx != ctx {
		b.mu.Unlock()
		return
	}
	b.state = state
	b.ready = true
	b.mu.Unlock()

	b.notify(state)
}

// load runs the loader, converting errors and panics into the fallback.
func (b *Binding[S]) load(ctx context.Context) (state S) {
	logger := contextutil.LoggerFromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "view loader panicked", "view", b.opts.Name, "panic", r)
			state = b.opts.Fallback
		}
	}()

	loaded, err := b.opts.Load(ctx)
	if err != nil {
		logger.WarnContext(ctx, "view load failed, serving fallback", "view", b.opts.Name, "error", err)
		return b.opts.Fallback
	}
	return loaded
}

// Apply updates the state locally after the caller's own repository write, without
// waiting for the reload its event triggers.
func (b *Binding[S]) Apply(fn func(S) S) {
	b.mu.Lock()
	if !b.mounted || !b.ready {
		b.mu.Unlock()
		return
	}
	b.state = fn(b.state)
	state := b.state
	b.mu.Unlock()

	b.notify(state)
}

// Snapshot returns the current state and whether the initial load has completed.
// Until then the state is the fallback.
func (b *Binding[S]) Snapshot() (S, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return b.opts.Fallback, false
	}
	return b.state, true
}

// Context is cancelled on Unmount. Work started on behalf of the view should use it.
func (b *Binding[S]) Context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx
}

// OnChange registers fn to run after every load, reload and apply.
func (b *Binding[S]) OnChange(fn func(S)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

func (b *Binding[S]) notify(state S) {
	b.mu.Lock()
	listeners := make([]func(S), len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

// Unmount unsubscribes, cancels the binding context and resets the state to the fallback.
// It is safe to call more than once.
func (b *Binding[S]) Unmount() {
	b.mu.Lock()
	if !b.mounted {
		b.mu.Unlock()
		return
	}
	b.mounted = false
	b.ready = false
	b.state = b.opts.Fallback
	unsubscribe := b.unsubscribe
	cancel := b.cancel
	b.unsubscribe = nil
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
}
