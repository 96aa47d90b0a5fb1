package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_insight_service.go -package=mocks -mock_names=InsightService=MockInsightService moonscribe/internal/service InsightService

import (
	"context"
	"strings"

	"golang.org/x/text/language"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/repository"
	"moonscribe/internal/views"
)

// ShareLinkPrefix is the path public insights are shared under.
const ShareLinkPrefix = "/share/"

// InsightQuery selects and orders the insight list. Dedupe always applies.
type InsightQuery struct {
	Query       string
	Tags        []string
	ProjectID   string
	StarredOnly bool
	Archive     views.ArchiveMode
	Sort        views.SortOrder
	Language    language.Tag
}

// SaveInsightRequest saves an answer as an insight. An empty Title is derived from the query.
type SaveInsightRequest struct {
	Title         string `validate:"max=200"`
	OriginalQuery string `validate:"max=8000"`
	Content       string `validate:"notblank"`
	Sources       []repository.InsightSource
	Tags          []string `validate:"dive,notblank,max=40"`
	ProjectID     string
}

// UpdateInsightRequest changes the fields that are set. A nil Tags leaves tags unchanged.
type UpdateInsightRequest struct {
	Title   *string  `validate:"omitnil,notblank,max=200"`
	Content *string  `validate:"omitnil,notblank"`
	Tags    []string `validate:"omitempty,dive,notblank,max=40"`
}

// InsightService manages saved insights.
type InsightService interface {
	List(ctx context.Context, q InsightQuery) ([]repository.Insight, error)
	Get(ctx context.Context, id string) (repository.Insight, error)
	// Shared returns an insight only while it is public.
	Shared(ctx context.Context, id string) (repository.Insight, error)
	Save(ctx context.Context, req SaveInsightRequest) (repository.Insight, error)
	Update(ctx context.Context, id string, req UpdateInsightRequest) (repository.Insight, error)
	SetStarred(ctx context.Context, id string, starred bool) (repository.Insight, error)
	SetArchived(ctx context.Context, id string, archived bool) (repository.Insight, error)
	// SetPublic publishes or unpublishes an insight, generating or clearing its share link.
	SetPublic(ctx context.Context, id string, public bool) (repository.Insight, error)
	Delete(ctx context.Context, id string) error
	// Tags lists every tag in use, for the tag filter.
	Tags(ctx context.Context) ([]string, error)
}

type insightService struct {
	repos *repository.Repositories
}

// NewInsightService creates a new InsightService.
func NewInsightService(repos *repository.Repositories) InsightService {
	return &insightService{repos: repos}
}

func (s *insightService) List(ctx context.Context, q InsightQuery) ([]repository.Insight, error) {
	insights, err := s.repos.Insights.Load(ctx)
	if err != nil {
		return nil, classify(err, "failed to load insights")
	}

	filtered := views.FilterInsights(views.DedupeInsights(insights), views.InsightFilter{
		Query:       q.Query,
		Tags:        q.Tags,
		ProjectID:   q.ProjectID,
		StarredOnly: q.StarredOnly,
		Archive:     q.Archive,
	})
	order := q.Sort
	if order == "" {
		order = views.SortNewest
	}
	return views.SortInsights(filtered, order, q.Language), nil
}

func (s *insightService) Get(ctx context.Context, id string) (repository.Insight, error) {
	in, err := s.repos.Insights.Get(ctx, id)
	if err != nil {
		return repository.Insight{}, classify(err, "failed to get insight")
	}
	return in, nil
}

func (s *insightService) Shared(ctx context.Context, id string) (repository.Insight, error) {
	in, err := s.Get(ctx, id)
	if err != nil {
		return repository.Insight{}, err
	}
	if !in.IsPublic {
		return repository.Insight{}, WrapError(ErrNotFound, "insight is not shared")
	}
	return in, nil
}

func (s *insightService) Save(ctx context.Context, req SaveInsightRequest) (repository.Insight, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateRequest(req); err != nil {
		logger.WarnContext(ctx, "invalid insight request", "error", err)
		return repository.Insight{}, err
	}

	in := repository.Insight{
		Title:         strings.TrimSpace(req.Title),
		OriginalQuery: req.OriginalQuery,
		Content:       req.Content,
		Sources:       req.Sources,
		Tags:          req.Tags,
	}
	if in.Title == "" {
		in.Title = repository.ConversationTitle(req.OriginalQuery)
	}
	if in.Title == "" {
		in.Title = repository.ConversationTitle(views.PlainText(req.Content))
	}

	if req.ProjectID != "" {
		p, err := s.repos.Projects.Get(ctx, req.ProjectID)
		if err != nil {
			return repository.Insight{}, classify(err, "failed to get project")
		}
		// Snapshot of the project at save time
		color := p.Color
		in.ProjectID = p.ID
		in.ProjectName = p.Name
		in.ProjectColor = &color
	}

	saved, err := s.repos.Insights.Add(ctx, in)
	if err != nil {
		logger.ErrorContext(ctx, "failed to save insight", "error", err)
		return repository.Insight{}, classify(err, "failed to save insight")
	}

	logger.InfoContext(ctx, "insight saved", "insight_id", saved.ID, "project_id", saved.ProjectID)
	return saved, nil
}

func (s *insightService) Update(ctx context.Context, id string, req UpdateInsightRequest) (repository.Insight, error) {
	if err := validateRequest(req); err != nil {
		return repository.Insight{}, err
	}
	return s.update(ctx, id, func(in *repository.Insight) {
		if req.Title != nil {
			in.Title = strings.TrimSpace(*req.Title)
		}
		if req.Content != nil {
			in.Content = *req.Content
		}
		if req.Tags != nil {
			in.Tags = req.Tags
		}
	})
}

// SetStarred only touches the star flag; an archived insight stays archived.
func (s *insightService) SetStarred(ctx context.Context, id string, starred bool) (repository.Insight, error) {
	return s.update(ctx, id, func(in *repository.Insight) {
		in.IsStarred = starred
	})
}

func (s *insightService) SetArchived(ctx context.Context, id string, archived bool) (repository.Insight, error) {
	return s.update(ctx, id, func(in *repository.Insight) {
		in.IsArchived = archived
	})
}

func (s *insightService) SetPublic(ctx context.Context, id string, public bool) (repository.Insight, error) {
	return s.update(ctx, id, func(in *repository.Insight) {
		in.IsPublic = public
		if public {
			in.ShareLink = ShareLinkPrefix + in.ID
		} else {
			in.ShareLink = ""
		}
	})
}

func (s *insightService) update(ctx context.Context, id string, fn func(*repository.Insight)) (repository.Insight, error) {
	updated, err := s.repos.Insights.Update(ctx, id, func(in *repository.Insight) error {
		fn(in)
		return nil
	})
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to update insight", "insight_id", id, "error", err)
		return repository.Insight{}, classify(err, "failed to update insight")
	}
	return updated, nil
}

func (s *insightService) Delete(ctx context.Context, id string) error {
	if err := s.repos.Insights.Delete(ctx, id); err != nil {
		return classify(err, "failed to delete insight")
	}
	return nil
}

func (s *insightService) Tags(ctx context.Context) ([]string, error) {
	insights, err := s.repos.Insights.Load(ctx)
	if err != nil {
		return nil, classify(err, "failed to load insights")
	}
	return views.Tags(insights), nil
}
