package repository

import (
	"context"
	"errors"
	"fmt"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/events"
	"moonscribe/internal/storage"
)

// Workspace performs operations that span more than one key. Each one commits as a
// single storage batch guarded by the revisions it read.
type Workspace struct {
	store    storage.Store
	opts     Options
	projects *collection[Project]
	content  *ContentRepo
	inbox    *collection[ContentItem]
}

// DeleteProject removes the project record and every key derived from its id.
// Derived keys are removed even when the record itself is already gone, in which case
// ErrNotFound is returned after the cleanup.
func (w *Workspace) DeleteProject(ctx context.Context, projectID string) error {
	if projectID == "" {
		return fmt.Errorf("project: %w", ErrMissingParent)
	}
	logger := contextutil.LoggerFromContext(ctx)
	projectsKey := Key(FamilyProjects, "")
	derived := ProjectKeys(projectID)

	found := false
	committed := false
	for attempt := 0; attempt <= w.opts.MutateRetries; attempt++ {
		snap, err := w.projects.read(ctx, projectsKey)
		if err != nil {
			return err
		}

		ops := make([]storage.Op, 0, len(derived)+1)
		i := indexOf(snap.items, func(p Project) bool { return p.ID == projectID })
		found = i >= 0
		if found {
			value, err := encodeCollection(removeAt(snap.items, i))
			if err != nil {
				return err
			}
			ops = append(ops, storage.PutIf(projectsKey, value, snap.revision))
		}
		for _, key := range derived {
			ops = append(ops, storage.Delete(key))
		}

		err = w.store.Apply(ctx, ops...)
		if errors.Is(err, storage.ErrRevisionConflict) {
			w.opts.Metrics.Conflict(FamilyProjects)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to delete project %s: %w", projectID, err)
		}
		committed = true
		break
	}
	if !committed {
		return fmt.Errorf("failed to delete project %s: %w", projectID, storage.ErrRevisionConflict)
	}

	if err := w.verifyDeleted(ctx, projectID, derived); err != nil {
		logger.ErrorContext(ctx, "cascade delete incomplete", "project_id", projectID, "error", err)
		return err
	}

	w.publish(ctx, events.Event{Topic: events.ProjectsChanged, Key: projectsKey})
	for _, key := range derived {
		if topic, _, ok := TopicForKey(key); ok {
			w.publish(ctx, events.Event{Topic: topic, ProjectID: projectID, Key: key})
		}
	}
	logger.InfoContext(ctx, "deleted project", "project_id", projectID, "record_found", found)

	if !found {
		return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	return nil
}

func (w *Workspace) verifyDeleted(ctx context.Context, projectID string, derived []string) error {
	for _, key := range derived {
		_, err := w.store.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to verify %s: %w", key, err)
		}
		return fmt.Errorf("cascade delete of project %s left %s behind", projectID, key)
	}

	projects, err := w.projects.read(ctx, Key(FamilyProjects, ""))
	if err != nil {
		return fmt.Errorf("failed to verify projects: %w", err)
	}
	if indexOf(projects.items, func(p Project) bool { return p.ID == projectID }) >= 0 {
		return fmt.Errorf("cascade delete of project %s left the record behind", projectID)
	}
	return nil
}

// partition is one side of a content move: the inbox or a project's content.
type partition struct {
	coll     *collection[ContentItem]
	parentID string
	// added is published on the destination side, removed on the source side.
	added   events.Topic
	removed events.Topic
}

func (w *Workspace) inboxPartition() partition {
	return partition{coll: w.inbox, added: events.InboxChanged, removed: events.InboxChanged}
}

func (w *Workspace) projectPartition(projectID string) partition {
	return partition{coll: w.content.coll, parentID: projectID, added: events.ContentAdded, removed: events.ContentChanged}
}

// MoveToProject transfers an inbox item into a project's content, preserving its id.
func (w *Workspace) MoveToProject(ctx context.Context, itemID, projectID string) (ContentItem, error) {
	if err := w.requireProject(ctx, projectID); err != nil {
		return ContentItem{}, err
	}
	return w.move(ctx, itemID, w.inboxPartition(), w.projectPartition(projectID))
}

// MoveToInbox returns a project item to the inbox.
func (w *Workspace) MoveToInbox(ctx context.Context, projectID, itemID string) (ContentItem, error) {
	if projectID == "" {
		return ContentItem{}, fmt.Errorf("content: %w", ErrMissingParent)
	}
	return w.move(ctx, itemID, w.projectPartition(projectID), w.inboxPartition())
}

// MoveBetweenProjects reassigns an item from one project to another.
func (w *Workspace) MoveBetweenProjects(ctx context.Context, itemID, fromProjectID, toProjectID string) (ContentItem, error) {
	if fromProjectID == "" {
		return ContentItem{}, fmt.Errorf("content: %w", ErrMissingParent)
	}
	if err := w.requireProject(ctx, toProjectID); err != nil {
		return ContentItem{}, err
	}
	if fromProjectID == toProjectID {
		items, err := w.content.Load(ctx, fromProjectID)
		if err != nil {
			return ContentItem{}, err
		}
		i := indexOf(items, func(c ContentItem) bool { return c.ID == itemID })
		if i < 0 {
			return ContentItem{}, fmt.Errorf("content %s: %w", itemID, ErrNotFound)
		}
		return items[i], nil
	}
	return w.move(ctx, itemID, w.projectPartition(fromProjectID), w.projectPartition(toProjectID))
}

func (w *Workspace) requireProject(ctx context.Context, projectID string) error {
	if projectID == "" {
		return fmt.Errorf("project: %w", ErrMissingParent)
	}
	snap, err := w.projects.read(ctx, Key(FamilyProjects, ""))
	if err != nil {
		return err
	}
	if indexOf(snap.items, func(p Project) bool { return p.ID == projectID }) < 0 {
		return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	return nil
}

// move removes the item from src and appends it to dst in one batch. If dst already holds
// an item with the same id it is replaced rather than duplicated.
func (w *Workspace) move(ctx context.Context, itemID string, src, dst partition) (ContentItem, error) {
	// Legacy documents must be folded in before revisions are read
	for _, p := range []partition{src, dst} {
		if p.parentID != "" {
			if _, err := w.content.Load(ctx, p.parentID); err != nil {
				return ContentItem{}, err
			}
		}
	}

	srcKey, err := src.coll.key(src.parentID)
	if err != nil {
		return ContentItem{}, err
	}
	dstKey, err := dst.coll.key(dst.parentID)
	if err != nil {
		return ContentItem{}, err
	}

	for attempt := 0; attempt <= w.opts.MutateRetries; attempt++ {
		from, err := src.coll.read(ctx, srcKey)
		if err != nil {
			return ContentItem{}, err
		}
		to, err := dst.coll.read(ctx, dstKey)
		if err != nil {
			return ContentItem{}, err
		}

		i := indexOf(from.items, func(c ContentItem) bool { return c.ID == itemID })
		if i < 0 {
			return ContentItem{}, fmt.Errorf("content %s: %w", itemID, ErrNotFound)
		}
		item := from.items[i]

		remaining := removeAt(from.items, i)
		destination := to.items
		if j := indexOf(destination, func(c ContentItem) bool { return c.ID == itemID }); j >= 0 {
			destination[j] = item
		} else {
			destination = append(destination, item)
		}

		srcValue, err := encodeCollection(remaining)
		if err != nil {
			return ContentItem{}, err
		}
		dstValue, err := encodeCollection(destination)
		if err != nil {
			return ContentItem{}, err
		}

		err = w.store.Apply(ctx,
			storage.PutIf(srcKey, srcValue, from.revision),
			storage.PutIf(dstKey, dstValue, to.revision),
		)
		if errors.Is(err, storage.ErrRevisionConflict) {
			w.opts.Metrics.Conflict(FamilyContent)
			continue
		}
		if err != nil {
			return ContentItem{}, fmt.Errorf("failed to move %s: %w", itemID, err)
		}

		w.publish(ctx, events.Event{Topic: src.removed, ProjectID: src.parentID, Key: srcKey})
		w.publish(ctx, events.Event{Topic: dst.added, ProjectID: dst.parentID, Key: dstKey})
		contextutil.LoggerFromContext(ctx).InfoContext(ctx, "moved content",
			"item_id", itemID, "from", srcKey, "to", dstKey)
		return item, nil
	}

	return ContentItem{}, fmt.Errorf("failed to move %s: %w", itemID, storage.ErrRevisionConflict)
}

func (w *Workspace) publish(ctx context.Context, e events.Event) {
	if w.opts.Bus != nil {
		w.opts.Bus.Publish(ctx, e)
	}
}
