package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ProjectRepo owns the global projects collection.
type ProjectRepo struct {
	coll *collection[Project]
	opts Options
}

func normalizeProject(p *Project) {
	if p.Tags == nil {
		p.Tags = []string{}
	}
}

// Load returns all projects in stored order.
func (r *ProjectRepo) Load(ctx context.Context) ([]Project, error) {
	return r.coll.Load(ctx, "")
}

// Save replaces the projects collection.
func (r *ProjectRepo) Save(ctx context.Context, projects []Project) error {
	return r.coll.Save(ctx, "", projects)
}

// Mutate applies fn to the projects collection.
func (r *ProjectRepo) Mutate(ctx context.Context, fn func([]Project) ([]Project, error)) ([]Project, error) {
	return r.coll.Mutate(ctx, "", fn)
}

// Get returns the project with id, or ErrNotFound.
func (r *ProjectRepo) Get(ctx context.Context, id string) (Project, error) {
	projects, err := r.Load(ctx)
	if err != nil {
		return Project{}, err
	}
	i := indexOf(projects, func(p Project) bool { return p.ID == id })
	if i < 0 {
		return Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return projects[i], nil
}

// Create appends p, assigning an ID and timestamps when unset.
func (r *ProjectRepo) Create(ctx context.Context, p Project) (Project, error) {
	now := At(r.opts.Now())
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	normalizeProject(&p)

	_, err := r.Mutate(ctx, func(projects []Project) ([]Project, error) {
		return append(projects, p), nil
	})
	if err != nil {
		return Project{}, err
	}
	return p, nil
}

// Update applies fn to the project with id and bumps UpdatedAt.
func (r *ProjectRepo) Update(ctx context.Context, id string, fn func(*Project) error) (Project, error) {
	var updated Project
	_, err := r.Mutate(ctx, func(projects []Project) ([]Project, error) {
		i := indexOf(projects, func(p Project) bool { return p.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		if err := fn(&projects[i]); err != nil {
			return nil, err
		}
		projects[i].ID = id
		projects[i].UpdatedAt = At(r.opts.Now())
		updated = projects[i]
		return projects, nil
	})
	if err != nil {
		return Project{}, err
	}
	return updated, nil
}
