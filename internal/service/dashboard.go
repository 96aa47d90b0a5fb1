package service

import (
	"context"

	"moonscribe/internal/repository"
	"moonscribe/internal/views"
)

// DashboardService computes the dashboard summary.
type DashboardService interface {
	Summary(ctx context.Context) (views.DashboardSummary, error)
}

type dashboardService struct {
	repos *repository.Repositories
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repos *repository.Repositories) DashboardService {
	return &dashboardService{repos: repos}
}

func (s *dashboardService) Summary(ctx context.Context) (views.DashboardSummary, error) {
	projects, err := s.repos.Projects.Load(ctx)
	if err != nil {
		return views.DashboardSummary{}, classify(err, "failed to load projects")
	}
	inbox, err := s.repos.Inbox.Load(ctx)
	if err != nil {
		return views.DashboardSummary{}, classify(err, "failed to load inbox")
	}
	insights, err := s.repos.Insights.Load(ctx)
	if err != nil {
		return views.DashboardSummary{}, classify(err, "failed to load insights")
	}

	in := views.DashboardInput{
		Projects: projects,
		Inbox:    inbox,
		Content:  make(map[string][]repository.ContentItem, len(projects)),
		Insights: insights,
	}
	for _, p := range projects {
		content, err := s.repos.Content.Load(ctx, p.ID)
		if err != nil {
			return views.DashboardSummary{}, classify(err, "failed to load project content")
		}
		in.Content[p.ID] = content

		conversations, err := s.repos.Conversations.Load(ctx, p.ID)
		if err != nil {
			return views.DashboardSummary{}, classify(err, "failed to load conversations")
		}
		in.Conversations += len(conversations)
	}
	ungrouped, err := s.repos.Conversations.Load(ctx, "")
	if err != nil {
		return views.DashboardSummary{}, classify(err, "failed to load conversations")
	}
	in.Conversations += len(ungrouped)

	return views.Dashboard(in), nil
}
