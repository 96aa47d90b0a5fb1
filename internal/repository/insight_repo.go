package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// InsightRepo owns the global insights collection. Duplicates are kept as stored;
// display-time dedupe lives in package views.
type InsightRepo struct {
	coll *collection[Insight]
	opts Options
}

// normalizeInsight fills fields older rows lack. isArchived already decodes to false.
func normalizeInsight(in *Insight) {
	if in.Tags == nil {
		in.Tags = []string{}
	}
	if in.Sources == nil {
		in.Sources = []InsightSource{}
	}
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = in.CreatedAt
	}
}

// Load returns all insights in stored order.
func (r *InsightRepo) Load(ctx context.Context) ([]Insight, error) {
	return r.coll.Load(ctx, "")
}

// Save replaces the insights collection.
func (r *InsightRepo) Save(ctx context.Context, insights []Insight) error {
	return r.coll.Save(ctx, "", insights)
}

// Mutate applies fn to the insights collection.
func (r *InsightRepo) Mutate(ctx context.Context, fn func([]Insight) ([]Insight, error)) ([]Insight, error) {
	return r.coll.Mutate(ctx, "", fn)
}

// Get returns one insight, or ErrNotFound.
func (r *InsightRepo) Get(ctx context.Context, id string) (Insight, error) {
	insights, err := r.Load(ctx)
	if err != nil {
		return Insight{}, err
	}
	i := indexOf(insights, func(in Insight) bool { return in.ID == id })
	if i < 0 {
		return Insight{}, fmt.Errorf("insight %s: %w", id, ErrNotFound)
	}
	return insights[i], nil
}

// Add appends an insight, assigning an ID and timestamps when unset.
func (r *InsightRepo) Add(ctx context.Context, in Insight) (Insight, error) {
	now := At(r.opts.Now())
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	in.UpdatedAt = now
	normalizeInsight(&in)

	_, err := r.Mutate(ctx, func(insights []Insight) ([]Insight, error) {
		return append(insights, in), nil
	})
	if err != nil {
		return Insight{}, err
	}
	return in, nil
}

// Update applies fn to one insight and bumps UpdatedAt.
func (r *InsightRepo) Update(ctx context.Context, id string, fn func(*Insight) error) (Insight, error) {
	var updated Insight
	_, err := r.Mutate(ctx, func(insights []Insight) ([]Insight, error) {
		i := indexOf(insights, func(in Insight) bool { return in.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("insight %s: %w", id, ErrNotFound)
		}
		if err := fn(&insights[i]); err != nil {
			return nil, err
		}
		insights[i].ID = id
		insights[i].UpdatedAt = At(r.opts.Now())
		updated = insights[i]
		return insights, nil
	})
	if err != nil {
		return Insight{}, err
	}
	return updated, nil
}

// Delete removes one insight.
func (r *InsightRepo) Delete(ctx context.Context, id string) error {
	_, err := r.Mutate(ctx, func(insights []Insight) ([]Insight, error) {
		i := indexOf(insights, func(in Insight) bool { return in.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("insight %s: %w", id, ErrNotFound)
		}
		return removeAt(insights, i), nil
	})
	return err
}
