package service

import (
	"context"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/repository"
	"moonscribe/internal/upstream"
)

const defaultFlashcardCount = 10

// GenerateFlashcardsRequest asks for new cards for a project.
type GenerateFlashcardsRequest struct {
	UserID    string
	ProjectID string `validate:"notblank"`
	Topic     string `validate:"max=200"`
	Count     int    `validate:"min=0,max=50"`
	Provider  string `validate:"omitempty,provider"`
	Model     string `validate:"max=100"`
}

// FlashcardService manages per-project study cards.
type FlashcardService interface {
	List(ctx context.Context, projectID string) ([]repository.Flashcard, error)
	// Generate asks upstream for cards and appends them to the project's deck.
	Generate(ctx context.Context, req GenerateFlashcardsRequest) ([]repository.Flashcard, error)
	Delete(ctx context.Context, projectID, cardID string) error
}

type flashcardService struct {
	repos    *repository.Repositories
	upstream Upstream
	keys     KeyService
	defaults AIDefaults
}

// NewFlashcardService creates a new FlashcardService.
func NewFlashcardService(repos *repository.Repositories, up Upstream, keys KeyService, defaults AIDefaults) FlashcardService {
	return &flashcardService{repos: repos, upstream: up, keys: keys, defaults: defaults}
}

func (s *flashcardService) List(ctx context.Context, projectID string) ([]repository.Flashcard, error) {
	if _, err := s.repos.Projects.Get(ctx, projectID); err != nil {
		return nil, classify(err, "failed to get project")
	}
	cards, err := s.repos.Flashcards.Load(ctx, projectID)
	if err != nil {
		return nil, classify(err, "failed to load flashcards")
	}
	return cards, nil
}

func (s *flashcardService) Generate(ctx context.Context, req GenerateFlashcardsRequest) ([]repository.Flashcard, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateRequest(req); err != nil {
		logger.WarnContext(ctx, "invalid flashcard request", "error", err)
		return nil, err
	}
	if _, err := s.repos.Projects.Get(ctx, req.ProjectID); err != nil {
		return nil, classify(err, "failed to get project")
	}

	providerName := req.Provider
	if providerName == "" {
		providerName = s.defaults.Provider
	}
	provider, err := repository.ParseProvider(providerName)
	if err != nil {
		return nil, &ValidationError{Field: "provider", Message: err.Error()}
	}
	model := req.Model
	if model == "" {
		model = s.defaults.Model
	}
	count := req.Count
	if count == 0 {
		count = defaultFlashcardCount
	}

	sources, err := processedSources(ctx, s.repos, req.ProjectID)
	if err != nil {
		return nil, classify(err, "failed to load sources")
	}
	if len(sources) == 0 {
		return nil, &ValidationError{Field: "projectId", Message: "project has no processed content"}
	}

	apiKey, err := optionalKey(ctx, s.keys, req.UserID, provider)
	if err != nil {
		logger.WarnContext(ctx, "generating without a provider key", "provider", provider, "error", err)
	}

	generated, err := s.upstream.GenerateFlashcards(ctx, upstream.FlashcardRequest{
		SourceFilenames: sources,
		ProjectID:       req.ProjectID,
		Topic:           req.Topic,
		Count:           count,
		Provider:        string(provider),
		Model:           model,
		APIKey:          apiKey,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to generate flashcards", "project_id", req.ProjectID, "error", err)
		return nil, external(err, "failed to generate flashcards")
	}

	cards := make([]repository.Flashcard, 0, len(generated))
	for _, g := range generated {
		cards = append(cards, repository.Flashcard{Front: g.Front, Back: g.Back, Source: g.Source})
	}
	added, err := s.repos.Flashcards.Append(ctx, req.ProjectID, cards...)
	if err != nil {
		return nil, classify(err, "failed to store flashcards")
	}

	logger.InfoContext(ctx, "flashcards generated", "project_id", req.ProjectID, "count", len(added))
	return added, nil
}

func (s *flashcardService) Delete(ctx context.Context, projectID, cardID string) error {
	if err := s.repos.Flashcards.Delete(ctx, projectID, cardID); err != nil {
		return classify(err, "failed to delete flashcard")
	}
	return nil
}
