package service

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/repository"
	"moonscribe/internal/views"
)

// AddContentRequest represents a captured source in the domain layer.
type AddContentRequest struct {
	Type      string `validate:"contenttype"`
	Title     string `validate:"notblank,max=300"`
	URL       string `validate:"omitempty,url"`
	Thumbnail string `validate:"omitempty,url"`
}

// UploadRequest is a file to index and add as a content item.
// An empty ProjectID puts the item in the inbox.
type UploadRequest struct {
	ProjectID string
	Filename  string `validate:"notblank,max=255"`
	Body      io.Reader
}

// MoveRequest transfers an item between partitions. An empty project id names the inbox.
type MoveRequest struct {
	ItemID        string `validate:"notblank"`
	FromProjectID string
	ToProjectID   string
}

// ContentQuery selects and orders a content list.
type ContentQuery struct {
	Query    string
	Sort     views.SortOrder
	Language language.Tag
}

// ContentService manages the inbox and per-project content.
type ContentService interface {
	Inbox(ctx context.Context, q ContentQuery) ([]repository.ContentItem, error)
	AddToInbox(ctx context.Context, req AddContentRequest) (repository.ContentItem, error)
	RemoveFromInbox(ctx context.Context, itemID string) error
	ProjectContent(ctx context.Context, projectID string, q ContentQuery) ([]repository.ContentItem, error)
	AddToProject(ctx context.Context, projectID string, req AddContentRequest) (repository.ContentItem, error)
	RemoveFromProject(ctx context.Context, projectID, itemID string) error
	Move(ctx context.Context, req MoveRequest) (repository.ContentItem, error)
	Upload(ctx context.Context, req UploadRequest) (repository.ContentItem, error)
}

type contentService struct {
	repos    *repository.Repositories
	upstream Upstream
}

// NewContentService creates a new ContentService.
func NewContentService(repos *repository.Repositories, up Upstream) ContentService {
	return &contentService{repos: repos, upstream: up}
}

func arrange(items []repository.ContentItem, q ContentQuery) []repository.ContentItem {
	order := q.Sort
	if order == "" {
		order = views.SortNewest
	}
	items = views.SearchContent(views.DedupeContent(items), q.Query)
	return views.SortContent(items, order, q.Language)
}

func (s *contentService) Inbox(ctx context.Context, q ContentQuery) ([]repository.ContentItem, error) {
	items, err := s.repos.Inbox.Load(ctx)
	if err != nil {
		return nil, classify(err, "failed to load inbox")
	}
	return arrange(items, q), nil
}

func (s *contentService) AddToInbox(ctx context.Context, req AddContentRequest) (repository.ContentItem, error) {
	item, err := newContentItem(ctx, req)
	if err != nil {
		return repository.ContentItem{}, err
	}
	added, err := s.repos.Inbox.Add(ctx, item)
	if err != nil {
		return repository.ContentItem{}, classify(err, "failed to add to inbox")
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "content added to inbox", "item_id", added.ID, "type", added.Type)
	return added, nil
}

func (s *contentService) RemoveFromInbox(ctx context.Context, itemID string) error {
	if err := s.repos.Inbox.Remove(ctx, itemID); err != nil {
		return classify(err, "failed to remove inbox item")
	}
	return nil
}

func (s *contentService) ProjectContent(ctx context.Context, projectID string, q ContentQuery) ([]repository.ContentItem, error) {
	if _, err := s.repos.Projects.Get(ctx, projectID); err != nil {
		return nil, classify(err, "failed to get project")
	}
	items, err := s.repos.Content.Load(ctx, projectID)
	if err != nil {
		return nil, classify(err, "failed to load project content")
	}
	return arrange(items, q), nil
}

func (s *contentService) AddToProject(ctx context.Context, projectID string, req AddContentRequest) (repository.ContentItem, error) {
	item, err := newContentItem(ctx, req)
	if err != nil {
		return repository.ContentItem{}, err
	}
	if _, err := s.repos.Projects.Get(ctx, projectID); err != nil {
		return repository.ContentItem{}, classify(err, "failed to get project")
	}
	added, err := s.repos.Content.Add(ctx, projectID, item)
	if err != nil {
		return repository.ContentItem{}, classify(err, "failed to add project content")
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "content added to project", "project_id", projectID, "item_id", added.ID, "type", added.Type)
	return added, nil
}

// RemoveFromProject deletes the item locally, then asks upstream to drop its index.
// The local delete stands even if the upstream call fails.
func (s *contentService) RemoveFromProject(ctx context.Context, projectID, itemID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	items, err := s.repos.Content.Load(ctx, projectID)
	if err != nil {
		return classify(err, "failed to load project content")
	}
	var removed *repository.ContentItem
	for i := range items {
		if items[i].ID == itemID {
			removed = &items[i]
			break
		}
	}

	if err := s.repos.Content.Remove(ctx, projectID, itemID); err != nil {
		return classify(err, "failed to remove project content")
	}

	if removed != nil && removed.Processed && s.upstream != nil {
		if err := s.upstream.Delete(ctx, removed.Title); err != nil {
			logger.WarnContext(ctx, "failed to delete indexed file upstream", "item_id", itemID, "error", err)
		}
	}
	return nil
}

func (s *contentService) Move(ctx context.Context, req MoveRequest) (repository.ContentItem, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateRequest(req); err != nil {
		return repository.ContentItem{}, err
	}

	var (
		item repository.ContentItem
		err  error
	)
	switch {
	case req.FromProjectID == "" && req.ToProjectID == "":
		return repository.ContentItem{}, &ValidationError{Field: "toProjectID", Message: "item is already in the inbox"}
	case req.FromProjectID == "":
		item, err = s.repos.Workspace.MoveToProject(ctx, req.ItemID, req.ToProjectID)
	case req.ToProjectID == "":
		item, err = s.repos.Workspace.MoveToInbox(ctx, req.FromProjectID, req.ItemID)
	default:
		item, err = s.repos.Workspace.MoveBetweenProjects(ctx, req.ItemID, req.FromProjectID, req.ToProjectID)
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to move content", "item_id", req.ItemID, "from", req.FromProjectID, "to", req.ToProjectID, "error", err)
		return repository.ContentItem{}, classify(err, "failed to move content")
	}

	logger.InfoContext(ctx, "content moved", "item_id", item.ID, "from", req.FromProjectID, "to", req.ToProjectID)
	return item, nil
}

func (s *contentService) Upload(ctx context.Context, req UploadRequest) (repository.ContentItem, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateRequest(req); err != nil {
		return repository.ContentItem{}, err
	}
	if req.Body == nil {
		return repository.ContentItem{}, &ValidationError{Field: "file", Message: "cannot be empty"}
	}
	if req.ProjectID != "" {
		if _, err := s.repos.Projects.Get(ctx, req.ProjectID); err != nil {
			return repository.ContentItem{}, classify(err, "failed to get project")
		}
	}

	resp, err := s.upstream.Upload(ctx, req.ProjectID, req.Filename, req.Body)
	if err != nil {
		return repository.ContentItem{}, external(err, "failed to upload file")
	}

	item := repository.ContentItem{
		Type:            ContentTypeForFile(req.Filename),
		Title:           resp.Filename,
		Processed:       true,
		ChunksProcessed: resp.Chunks,
	}
	if req.ProjectID == "" {
		item, err = s.repos.Inbox.Add(ctx, item)
	} else {
		item, err = s.repos.Content.Add(ctx, req.ProjectID, item)
	}
	if err != nil {
		return repository.ContentItem{}, classify(err, "failed to record upload")
	}

	logger.InfoContext(ctx, "file uploaded", "project_id", req.ProjectID, "item_id", item.ID, "chunks", item.ChunksProcessed)
	return item, nil
}

// processedSources returns the titles of the processed items in a project, or in the
// inbox for an empty project id. Those titles are the filenames upstream indexed.
func processedSources(ctx context.Context, repos *repository.Repositories, projectID string) ([]string, error) {
	var (
		items []repository.ContentItem
		err   error
	)
	if projectID == "" {
		items, err = repos.Inbox.Load(ctx)
	} else {
		items, err = repos.Content.Load(ctx, projectID)
	}
	if err != nil {
		return nil, err
	}

	sources := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if !item.Processed || item.Title == "" {
			continue
		}
		if _, dup := seen[item.Title]; dup {
			continue
		}
		seen[item.Title] = struct{}{}
		sources = append(sources, item.Title)
	}
	return sources, nil
}

func newContentItem(ctx context.Context, req AddContentRequest) (repository.ContentItem, error) {
	if err := validateRequest(req); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid content request", "error", err)
		return repository.ContentItem{}, err
	}
	t, _ := repository.ParseContentType(req.Type)
	return repository.ContentItem{
		Type:      t,
		Title:     strings.TrimSpace(req.Title),
		URL:       req.URL,
		Thumbnail: req.Thumbnail,
	}, nil
}

// ContentTypeForFile guesses the content type from a file extension.
func ContentTypeForFile(filename string) repository.ContentType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return repository.TypePDF
	case ".md", ".markdown", ".txt":
		return repository.TypeNote
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg":
		return repository.TypeImage
	case ".mp3", ".wav", ".m4a", ".ogg", ".flac":
		return repository.TypeAudio
	case ".mp4", ".mov", ".webm", ".mkv":
		return repository.TypeVideo
	default:
		return repository.TypeDocument
	}
}
