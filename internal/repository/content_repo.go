package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/events"
	"moonscribe/internal/storage"
)

// ContentRepo owns each project's content partition. Rows still stored under the legacy
// per-project documents key are merged into the partition on first access.
type ContentRepo struct {
	coll  *collection[ContentItem]
	store storage.Store
	opts  Options
}

// Load returns the project's content, merging legacy documents first.
func (r *ContentRepo) Load(ctx context.Context, projectID string) ([]ContentItem, error) {
	if projectID == "" {
		return []ContentItem{}, fmt.Errorf("content: %w", ErrMissingParent)
	}

	merged, ok, err := r.mergeLegacy(ctx, projectID)
	if err != nil {
		return []ContentItem{}, err
	}
	if ok {
		return merged, nil
	}
	return r.coll.Load(ctx, projectID)
}

// mergeLegacy folds moonscribe:documents:{id} into the content partition and removes the
// legacy key in the same batch. Items already present by id are not merged twice.
// ok is false when there is no legacy key.
func (r *ContentRepo) mergeLegacy(ctx context.Context, projectID string) ([]ContentItem, bool, error) {
	logger := contextutil.LoggerFromContext(ctx)
	legacyKey := Key(FamilyDocuments, projectID)
	contentKey := Key(FamilyContent, projectID)

	legacyEntry, err := r.store.Get(ctx, legacyKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", legacyKey, err)
	}

	snap, err := r.coll.read(ctx, contentKey)
	if err != nil {
		return nil, false, err
	}

	legacy, _, err := decodeCollection[ContentItem](legacyEntry.Value)
	if err != nil {
		logger.WarnContext(ctx, "discarding malformed legacy documents", "key", legacyKey, "error", err)
		legacy = nil
	}

	merged := snap.items
	for _, doc := range legacy {
		if doc.ID == "" {
			doc.ID = uuid.New().String()
		}
		if indexOf(merged, func(c ContentItem) bool { return c.ID == doc.ID }) >= 0 {
			continue
		}
		merged = append(merged, doc)
	}

	value, err := encodeCollection(merged)
	if err == nil {
		err = r.store.Apply(ctx,
			storage.PutIf(contentKey, value, snap.revision),
			storage.DeleteIf(legacyKey, legacyEntry.Revision),
		)
	}
	if err != nil {
		logger.WarnContext(ctx, "failed to persist merged legacy documents", "project_id", projectID, "error", err)
		r.opts.Metrics.Migrated(FamilyDocuments, "unpersisted")
		return merged, true, nil
	}

	logger.InfoContext(ctx, "merged legacy documents", "project_id", projectID, "documents", len(legacy))
	r.opts.Metrics.Migrated(FamilyDocuments, "migrated")
	return merged, true, nil
}

// Save replaces the project's content partition.
func (r *ContentRepo) Save(ctx context.Context, projectID string, items []ContentItem) error {
	if projectID == "" {
		return fmt.Errorf("content: %w", ErrMissingParent)
	}
	return r.coll.Save(ctx, projectID, items)
}

// Mutate applies fn to the project's content partition.
func (r *ContentRepo) Mutate(ctx context.Context, projectID string, fn func([]ContentItem) ([]ContentItem, error)) ([]ContentItem, error) {
	if _, err := r.Load(ctx, projectID); err != nil {
		return nil, err
	}
	return r.coll.Mutate(ctx, projectID, fn)
}

// Add appends an item to the project and publishes ContentAdded.
func (r *ContentRepo) Add(ctx context.Context, projectID string, item ContentItem) (ContentItem, error) {
	if _, err := r.Load(ctx, projectID); err != nil {
		return ContentItem{}, err
	}
	item = prepareContent(item, r.opts)

	_, err := r.coll.mutate(ctx, projectID, events.ContentAdded, func(items []ContentItem) ([]ContentItem, error) {
		return append(items, item), nil
	})
	if err != nil {
		return ContentItem{}, err
	}
	return item, nil
}

// Update applies fn to one item in the project.
func (r *ContentRepo) Update(ctx context.Context, projectID, itemID string, fn func(*ContentItem) error) (ContentItem, error) {
	var updated ContentItem
	_, err := r.Mutate(ctx, projectID, func(items []ContentItem) ([]ContentItem, error) {
		i := indexOf(items, func(c ContentItem) bool { return c.ID == itemID })
		if i < 0 {
			return nil, fmt.Errorf("content %s: %w", itemID, ErrNotFound)
		}
		if err := fn(&items[i]); err != nil {
			return nil, err
		}
		items[i].ID = itemID
		updated = items[i]
		return items, nil
	})
	return updated, err
}

// Remove deletes one item from the project.
func (r *ContentRepo) Remove(ctx context.Context, projectID, itemID string) error {
	_, err := r.Mutate(ctx, projectID, func(items []ContentItem) ([]ContentItem, error) {
		i := indexOf(items, func(c ContentItem) bool { return c.ID == itemID })
		if i < 0 {
			return nil, fmt.Errorf("content %s: %w", itemID, ErrNotFound)
		}
		return removeAt(items, i), nil
	})
	return err
}

func prepareContent(item ContentItem, opts Options) ContentItem {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Type == "" {
		item.Type = TypeDocument
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = At(opts.Now())
	}
	return item
}

// InboxRepo owns the unassigned content partition.
type InboxRepo struct {
	coll *collection[ContentItem]
	opts Options
}

// Load returns the inbox.
func (r *InboxRepo) Load(ctx context.Context) ([]ContentItem, error) {
	return r.coll.Load(ctx, "")
}

// Save replaces the inbox.
func (r *InboxRepo) Save(ctx context.Context, items []ContentItem) error {
	return r.coll.Save(ctx, "", items)
}

// Mutate applies fn to the inbox.
func (r *InboxRepo) Mutate(ctx context.Context, fn func([]ContentItem) ([]ContentItem, error)) ([]ContentItem, error) {
	return r.coll.Mutate(ctx, "", fn)
}

// Add appends an item to the inbox.
func (r *InboxRepo) Add(ctx context.Context, item ContentItem) (ContentItem, error) {
	item = prepareContent(item, r.opts)
	_, err := r.Mutate(ctx, func(items []ContentItem) ([]ContentItem, error) {
		return append(items, item), nil
	})
	if err != nil {
		return ContentItem{}, err
	}
	return item, nil
}

// Remove deletes one item from the inbox.
func (r *InboxRepo) Remove(ctx context.Context, itemID string) error {
	_, err := r.Mutate(ctx, func(items []ContentItem) ([]ContentItem, error) {
		i := indexOf(items, func(c ContentItem) bool { return c.ID == itemID })
		if i < 0 {
			return nil, fmt.Errorf("inbox item %s: %w", itemID, ErrNotFound)
		}
		return removeAt(items, i), nil
	})
	return err
}
