package service

import (
	"context"

	"golang.org/x/text/language"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/repository"
	"moonscribe/internal/views"
)

// CreateProjectRequest represents a project creation request in the domain layer.
type CreateProjectRequest struct {
	Name        string   `validate:"notblank,max=100"`
	Description string   `validate:"max=500"`
	Color       int      `validate:"min=0,max=7"`
	Tags        []string `validate:"dive,notblank,max=40"`
}

// UpdateProjectRequest changes the fields that are set. A nil Tags leaves tags unchanged.
type UpdateProjectRequest struct {
	Name        *string  `validate:"omitnil,notblank,max=100"`
	Description *string  `validate:"omitnil,max=500"`
	Color       *int     `validate:"omitnil,min=0,max=7"`
	Tags        []string `validate:"omitempty,dive,notblank,max=40"`
}

// ProjectListQuery selects and orders the project list.
type ProjectListQuery struct {
	Query    string
	Sort     views.SortOrder
	Language language.Tag
}

// ProjectDetail is everything the project workspace view shows.
type ProjectDetail struct {
	Project       repository.Project        `json:"project"`
	Content       []repository.ContentItem  `json:"content"`
	Categories    views.CategoryCounts      `json:"categories"`
	Conversations []repository.Conversation `json:"conversations"`
	Flashcards    []repository.Flashcard    `json:"flashcards"`
	Insights      []repository.Insight      `json:"insights"`
}

// ProjectService manages projects. Counters on returned projects are always recomputed
// from the child collections.
type ProjectService interface {
	List(ctx context.Context, q ProjectListQuery) ([]repository.Project, error)
	Get(ctx context.Context, id string) (ProjectDetail, error)
	Create(ctx context.Context, req CreateProjectRequest) (repository.Project, error)
	Update(ctx context.Context, id string, req UpdateProjectRequest) (repository.Project, error)
	// Delete removes the project and all of its content, conversations and flashcards.
	Delete(ctx context.Context, id string) error
}

type projectService struct {
	repos *repository.Repositories
}

// NewProjectService creates a new ProjectService.
func NewProjectService(repos *repository.Repositories) ProjectService {
	return &projectService{repos: repos}
}

func (s *projectService) List(ctx context.Context, q ProjectListQuery) ([]repository.Project, error) {
	projects, err := s.repos.Projects.Load(ctx)
	if err != nil {
		return nil, classify(err, "failed to load projects")
	}
	insights, err := s.repos.Insights.Load(ctx)
	if err != nil {
		return nil, classify(err, "failed to load insights")
	}
	insightCounts := views.InsightCountsByProject(views.DedupeInsights(insights))

	out := make([]repository.Project, 0, len(projects))
	for _, p := range projects {
		withStats, err := s.withStats(ctx, p, insightCounts[p.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, withStats)
	}

	out = views.SearchProjects(out, q.Query)
	order := q.Sort
	if order == "" {
		order = views.SortNewest
	}
	return views.SortProjects(out, order, q.Language), nil
}

func (s *projectService) withStats(ctx context.Context, p repository.Project, insightCount int) (repository.Project, error) {
	content, err := s.repos.Content.Load(ctx, p.ID)
	if err != nil {
		return repository.Project{}, classify(err, "failed to load project content")
	}
	conversations, err := s.repos.Conversations.Load(ctx, p.ID)
	if err != nil {
		return repository.Project{}, classify(err, "failed to load project conversations")
	}
	return views.ProjectStats(p, content, conversations, insightCount), nil
}

func (s *projectService) Get(ctx context.Context, id string) (ProjectDetail, error) {
	p, err := s.repos.Projects.Get(ctx, id)
	if err != nil {
		return ProjectDetail{}, classify(err, "failed to get project")
	}

	content, err := s.repos.Content.Load(ctx, id)
	if err != nil {
		return ProjectDetail{}, classify(err, "failed to load project content")
	}
	conversations, err := s.repos.Conversations.Load(ctx, id)
	if err != nil {
		return ProjectDetail{}, classify(err, "failed to load project conversations")
	}
	flashcards, err := s.repos.Flashcards.Load(ctx, id)
	if err != nil {
		return ProjectDetail{}, classify(err, "failed to load flashcards")
	}
	insights, err := s.repos.Insights.Load(ctx)
	if err != nil {
		return ProjectDetail{}, classify(err, "failed to load insights")
	}
	insights = views.DedupeInsights(insights)
	insightCount := views.InsightCountsByProject(insights)[id]

	listed := views.DedupeContent(content)
	return ProjectDetail{
		Project:       views.ProjectStats(p, content, conversations, insightCount),
		Content:       listed,
		Categories:    views.CountByCategory(listed),
		Conversations: conversations,
		Flashcards:    flashcards,
		Insights:      views.FilterInsights(insights, views.InsightFilter{ProjectID: id, Archive: views.ArchiveActive}),
	}, nil
}

func (s *projectService) Create(ctx context.Context, req CreateProjectRequest) (repository.Project, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateRequest(req); err != nil {
		logger.WarnContext(ctx, "invalid project create request", "error", err)
		return repository.Project{}, err
	}

	p, err := s.repos.Projects.Create(ctx, repository.Project{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Tags:        req.Tags,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to create project", "error", err)
		return repository.Project{}, classify(err, "failed to create project")
	}

	logger.InfoContext(ctx, "project created", "project_id", p.ID)
	return p, nil
}

func (s *projectService) Update(ctx context.Context, id string, req UpdateProjectRequest) (repository.Project, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateRequest(req); err != nil {
		logger.WarnContext(ctx, "invalid project update request", "error", err)
		return repository.Project{}, err
	}

	current, err := s.repos.Projects.Get(ctx, id)
	if err != nil {
		return repository.Project{}, classify(err, "failed to get project")
	}
	insights, err := s.repos.Insights.Load(ctx)
	if err != nil {
		return repository.Project{}, classify(err, "failed to load insights")
	}
	// The stored counters are a snapshot taken whenever the project is saved
	stats, err := s.withStats(ctx, current, views.InsightCountsByProject(views.DedupeInsights(insights))[id])
	if err != nil {
		return repository.Project{}, err
	}

	updated, err := s.repos.Projects.Update(ctx, id, func(p *repository.Project) error {
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Color != nil {
			p.Color = *req.Color
		}
		if req.Tags != nil {
			p.Tags = req.Tags
		}
		p.DocumentCount = stats.DocumentCount
		p.ConversationCount = stats.ConversationCount
		p.InsightCount = stats.InsightCount
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to update project", "project_id", id, "error", err)
		return repository.Project{}, classify(err, "failed to update project")
	}
	return updated, nil
}

func (s *projectService) Delete(ctx context.Context, id string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := s.repos.Workspace.DeleteProject(ctx, id); err != nil {
		logger.ErrorContext(ctx, "failed to delete project", "project_id", id, "error", err)
		return classify(err, "failed to delete project")
	}

	logger.InfoContext(ctx, "project deleted", "project_id", id)
	return nil
}
