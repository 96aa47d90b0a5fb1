package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_conversation_service.go -package=mocks -mock_names=ConversationService=MockConversationService moonscribe/internal/service ConversationService

import (
	"context"
	"slices"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/repository"
	"moonscribe/internal/upstream"
)

// historyLimit is how many earlier messages accompany a question.
const historyLimit = 10

// AskRequest represents a question in the domain layer. An empty ConversationID starts a
// new conversation; an empty ProjectID uses the ungrouped chat.
type AskRequest struct {
	UserID         string
	ProjectID      string
	ConversationID string
	Question       string `validate:"notblank,max=8000"`
	Provider       string `validate:"omitempty,provider"`
	Model          string `validate:"max=100"`
}

// AskResult is the conversation after both turns were appended.
type AskResult struct {
	Conversation repository.Conversation
	Reply        repository.Message
}

// ConversationService manages conversations and relays questions upstream.
type ConversationService interface {
	// List returns the conversations of a project, most recently updated first.
	List(ctx context.Context, projectID string) ([]repository.Conversation, error)
	Get(ctx context.Context, projectID, conversationID string) (repository.Conversation, error)
	Create(ctx context.Context, projectID string) (repository.Conversation, error)
	Delete(ctx context.Context, projectID, conversationID string) error
	// Ask appends the question, asks upstream and appends the answer. When upstream
	// fails the question stays in the conversation.
	Ask(ctx context.Context, req AskRequest) (AskResult, error)
}

type conversationService struct {
	repos    *repository.Repositories
	upstream Upstream
	keys     KeyService
	defaults AIDefaults
}

// NewConversationService creates a new ConversationService.
func NewConversationService(repos *repository.Repositories, up Upstream, keys KeyService, defaults AIDefaults) ConversationService {
	return &conversationService{
		repos:    repos,
		upstream: up,
		keys:     keys,
		defaults: defaults,
	}
}

func (s *conversationService) requireProject(ctx context.Context, projectID string) error {
	if projectID == "" {
		return nil
	}
	if _, err := s.repos.Projects.Get(ctx, projectID); err != nil {
		return classify(err, "failed to get project")
	}
	return nil
}

func (s *conversationService) List(ctx context.Context, projectID string) ([]repository.Conversation, error) {
	conversations, err := s.repos.Conversations.Load(ctx, projectID)
	if err != nil {
		return nil, classify(err, "failed to load conversations")
	}
	slices.SortStableFunc(conversations, func(a, b repository.Conversation) int {
		return b.UpdatedAt.Compare(a.UpdatedAt.Time)
	})
	return conversations, nil
}

func (s *conversationService) Get(ctx context.Context, projectID, conversationID string) (repository.Conversation, error) {
	conv, err := s.repos.Conversations.Get(ctx, projectID, conversationID)
	if err != nil {
		return repository.Conversation{}, classify(err, "failed to get conversation")
	}
	return conv, nil
}

func (s *conversationService) Create(ctx context.Context, projectID string) (repository.Conversation, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return repository.Conversation{}, err
	}
	conv, err := s.repos.Conversations.Create(ctx, projectID, "")
	if err != nil {
		return repository.Conversation{}, classify(err, "failed to create conversation")
	}
	return conv, nil
}

func (s *conversationService) Delete(ctx context.Context, projectID, conversationID string) error {
	if err := s.repos.Conversations.Delete(ctx, projectID, conversationID); err != nil {
		return classify(err, "failed to delete conversation")
	}
	return nil
}

func (s *conversationService) Ask(ctx context.Context, req AskRequest) (AskResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateRequest(req); err != nil {
		logger.WarnContext(ctx, "invalid ask request", "error", err)
		return AskResult{}, err
	}
	if err := s.requireProject(ctx, req.ProjectID); err != nil {
		return AskResult{}, err
	}

	providerName := req.Provider
	if providerName == "" {
		providerName = s.defaults.Provider
	}
	provider, err := repository.ParseProvider(providerName)
	if err != nil {
		return AskResult{}, &ValidationError{Field: "provider", Message: err.Error()}
	}
	model := req.Model
	if model == "" {
		model = s.defaults.Model
	}

	conversationID := req.ConversationID
	var history []upstream.HistoryMessage
	if conversationID == "" {
		conv, err := s.repos.Conversations.Create(ctx, req.ProjectID, "")
		if err != nil {
			return AskResult{}, classify(err, "failed to create conversation")
		}
		conversationID = conv.ID
	} else {
		conv, err := s.repos.Conversations.Get(ctx, req.ProjectID, conversationID)
		if err != nil {
			return AskResult{}, classify(err, "failed to get conversation")
		}
		history = historyOf(conv.Messages)
	}

	if _, err := s.repos.Conversations.AppendMessage(ctx, req.ProjectID, conversationID, repository.Message{
		Role:    repository.RoleUser,
		Content: req.Question,
	}); err != nil {
		return AskResult{}, classify(err, "failed to record question")
	}

	sources, err := processedSources(ctx, s.repos, req.ProjectID)
	if err != nil {
		return AskResult{}, classify(err, "failed to load sources")
	}

	apiKey, err := optionalKey(ctx, s.keys, req.UserID, provider)
	if err != nil {
		logger.WarnContext(ctx, "asking without a provider key", "provider", provider, "error", err)
	}

	answer, err := s.upstream.Ask(ctx, upstream.AskRequest{
		Question:        req.Question,
		SourceFilenames: sources,
		ProjectID:       req.ProjectID,
		History:         history,
		Provider:        string(provider),
		Model:           model,
		APIKey:          apiKey,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to get answer", "conversation_id", conversationID, "error", err)
		return AskResult{}, external(err, "failed to get answer")
	}

	reply := repository.Message{
		Role:    repository.RoleAssistant,
		Content: answer.Answer,
		Sources: make([]repository.MessageSource, 0, len(answer.Sources)),
	}
	for _, src := range answer.Sources {
		reply.Sources = append(reply.Sources, repository.MessageSource{
			Number:      src.Number,
			SourceTitle: src.Title,
			Relevance:   src.Relevance,
		})
	}

	conv, err := s.repos.Conversations.AppendMessage(ctx, req.ProjectID, conversationID, reply)
	if err != nil {
		return AskResult{}, classify(err, "failed to record answer")
	}

	logger.InfoContext(ctx, "question answered", "conversation_id", conversationID, "question_length", len(req.Question), "answer_length", len(answer.Answer), "sources", len(reply.Sources))
	return AskResult{Conversation: conv, Reply: conv.Messages[len(conv.Messages)-1]}, nil
}

func historyOf(messages []repository.Message) []upstream.HistoryMessage {
	if len(messages) > historyLimit {
		messages = messages[len(messages)-historyLimit:]
	}
	out := make([]upstream.HistoryMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, upstream.HistoryMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}
