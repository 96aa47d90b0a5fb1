// Package repository persists the workspace entity families as versioned JSON collections
// on top of a storage.Store, and publishes a change event after every successful write.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/events"
	"moonscribe/internal/metrics"
	"moonscribe/internal/storage"
)

// SchemaVersion is the envelope version written for every collection.
// Version 0 is the legacy bare-array layout.
const SchemaVersion = 1

const defaultMutateRetries = 3

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrMissingParent is returned when a scoped family is used without a parent id.
	ErrMissingParent = errors.New("missing parent id")
)

// Publisher receives change events after successful writes.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) int
}

// Options configures the repositories.
type Options struct {
	// Bus may be nil, in which case writes publish nothing.
	Bus     Publisher
	Metrics *metrics.Collector
	// MutateRetries bounds how often a conflicting Mutate reloads and re-applies its updater.
	MutateRetries int
	Now           func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MutateRetries <= 0 {
		o.MutateRetries = defaultMutateRetries
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type envelope[T any] struct {
	Version int `json:"version"`
	Items   []T `json:"items"`
}

// snapshot is a decoded collection with the revision it was read at.
type snapshot[T any] struct {
	items    []T
	revision int64
	// stale is set when the stored layout is older than SchemaVersion.
	stale bool
}

// collection is the shared load/save/mutate machinery for one entity family.
type collection[T any] struct {
	family string
	scoped bool
	// defaultParent is used when a scoped family is addressed with an empty parent id.
	defaultParent string
	topic         events.Topic
	normalize     func(*T)

	store storage.Store
	opts  Options
}

func (c *collection[T]) key(parentID string) (string, error) {
	if !c.scoped {
		return Key(c.family, ""), nil
	}
	if parentID == "" {
		parentID = c.defaultParent
	}
	if parentID == "" {
		return "", fmt.Errorf("%s: %w", c.family, ErrMissingParent)
	}
	return Key(c.family, parentID), nil
}

// read decodes the collection at key. Absent and malformed values decode to the empty seed;
// only store failures are returned as errors.
func (c *collection[T]) read(ctx context.Context, key string) (snapshot[T], error) {
	logger := contextutil.LoggerFromContext(ctx)

	entry, err := c.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return snapshot[T]{items: []T{}}, nil
	}
	if err != nil {
		return snapshot[T]{items: []T{}}, fmt.Errorf("failed to read %s: %w", key, err)
	}

	items, version, err := decodeCollection[T](entry.Value)
	if err != nil {
		logger.WarnContext(ctx, "discarding malformed collection", "key", key, "error", err)
		c.opts.Metrics.Migrated(c.family, "reset")
		return snapshot[T]{items: []T{}, revision: entry.Revision}, nil
	}
	if version > SchemaVersion {
		logger.WarnContext(ctx, "collection written by a newer schema", "key", key, "version", version)
	}

	if c.normalize != nil {
		for i := range items {
			c.normalize(&items[i])
		}
	}
	return snapshot[T]{items: items, revision: entry.Revision, stale: version < SchemaVersion}, nil
}

func decodeCollection[T any](raw string) ([]T, int, error) {
	trimmed := strings.TrimSpace(raw)

	var items []T
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return nil, 0, fmt.Errorf("failed to decode legacy array: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		return items, 0, nil
	}

	var env envelope[T]
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return nil, 0, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if env.Version == 0 && env.Items == nil {
		return nil, 0, fmt.Errorf("value is not a collection")
	}
	if env.Items == nil {
		env.Items = []T{}
	}
	return env.Items, env.Version, nil
}

func encodeCollection[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(envelope[T]{Version: SchemaVersion, Items: items})
	if err != nil {
		return "", fmt.Errorf("failed to encode collection: %w", err)
	}
	return string(data), nil
}

// Load returns the collection for parentID, migrating and writing back older layouts.
// On store failure it returns the empty seed together with the error.
func (c *collection[T]) Load(ctx context.Context, parentID string) ([]T, error) {
	key, err := c.key(parentID)
	if err != nil {
		return []T{}, err
	}

	snap, err := c.read(ctx, key)
	if err != nil {
		return snap.items, err
	}
	if snap.stale {
		c.writeBack(ctx, key, snap)
	}
	return snap.items, nil
}

// writeBack persists a migrated collection. Failure leaves the stored value untouched.
func (c *collection[T]) writeBack(ctx context.Context, key string, snap snapshot[T]) {
	logger := contextutil.LoggerFromContext(ctx)

	value, err := encodeCollection(snap.items)
	if err == nil {
		err = c.store.Apply(ctx, storage.PutIf(key, value, snap.revision))
	}
	if err != nil {
		logger.WarnContext(ctx, "failed to persist migrated collection", "key", key, "error", err)
		c.opts.Metrics.Migrated(c.family, "unpersisted")
		return
	}

	logger.InfoContext(ctx, "migrated collection", "key", key, "items", len(snap.items))
	c.opts.Metrics.Migrated(c.family, "migrated")
}

// Save writes items as the full collection. Concurrent writers are last-writer-wins.
func (c *collection[T]) Save(ctx context.Context, parentID string, items []T) error {
	key, err := c.key(parentID)
	if err != nil {
		return err
	}

	value, err := encodeCollection(items)
	if err != nil {
		return err
	}
	if _, err := c.store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}

	c.publish(ctx, c.topic, parentID, key)
	return nil
}

// Mutate loads the collection, applies fn, and writes the result if the key has not
// changed in between. Conflicts reload and re-apply fn.
func (c *collection[T]) Mutate(ctx context.Context, parentID string, fn func([]T) ([]T, error)) ([]T, error) {
	return c.mutate(ctx, parentID, c.topic, fn)
}

func (c *collection[T]) mutate(ctx context.Context, parentID string, topic events.Topic, fn func([]T) ([]T, error)) ([]T, error) {
	key, err := c.key(parentID)
	if err != nil {
		return nil, err
	}
	logger := contextutil.LoggerFromContext(ctx)

	for attempt := 0; attempt <= c.opts.MutateRetries; attempt++ {
		snap, err := c.read(ctx, key)
		if err != nil {
			// Never overwrite a collection we could not read
			return nil, err
		}

		next, err := fn(snap.items)
		if err != nil {
			return nil, err
		}

		value, err := encodeCollection(next)
		if err != nil {
			return nil, err
		}

		err = c.store.Apply(ctx, storage.PutIf(key, value, snap.revision))
		if errors.Is(err, storage.ErrRevisionConflict) {
			c.opts.Metrics.Conflict(c.family)
			logger.DebugContext(ctx, "retrying mutate after conflict", "key", key, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", key, err)
		}

		c.publish(ctx, topic, parentID, key)
		return next, nil
	}

	return nil, fmt.Errorf("failed to write %s after %d attempts: %w", key, c.opts.MutateRetries+1, storage.ErrRevisionConflict)
}

func (c *collection[T]) publish(ctx context.Context, topic events.Topic, parentID, key string) {
	if c.opts.Bus == nil {
		return
	}
	projectID := ""
	if c.scoped && c.family != FamilyAPIKeys {
		projectID = parentID
	}
	c.opts.Bus.Publish(ctx, events.Event{Topic: topic, ProjectID: projectID, Key: key})
}

// indexOf returns the index of the first item matching pred, or -1.
func indexOf[T any](items []T, pred func(T) bool) int {
	for i, item := range items {
		if pred(item) {
			return i
		}
	}
	return -1
}

// removeAt returns a copy of items without index i.
func removeAt[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}
