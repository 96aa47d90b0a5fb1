package repository

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Timestamp is a time.Time persisted as an RFC 3339 string.
// Decoding also accepts the legacy layouts found in older stored data.
type Timestamp struct {
	time.Time
}

// At wraps t as a UTC Timestamp.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// MarshalJSON encodes the timestamp as RFC 3339 with nanoseconds, or null when zero.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts strings in any layout ParseTime understands, epoch milliseconds, or null.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*t = Timestamp{}
		return nil
	}

	if !strings.HasPrefix(s, `"`) {
		ms, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid timestamp %s", s)
		}
		*t = At(time.UnixMilli(int64(ms)))
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	parsed, err := ParseTime(str)
	if err != nil {
		return err
	}
	*t = At(parsed)
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses a stored timestamp string.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, nil
		}
	}
	// Some rows were written as stringified epoch millis
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Time{}, fmt.Errorf("failed to parse timestamp %q", s)
}

// Project groups content, conversations and flashcards.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Counters are a snapshot taken on save. Readers that need accurate numbers derive them.
	DocumentCount     int       `json:"documentCount"`
	ConversationCount int       `json:"conversationCount"`
	InsightCount      int       `json:"insightCount"`
	Color             int       `json:"color"`
	Tags              []string  `json:"tags"`
	CreatedAt         Timestamp `json:"createdAt"`
	UpdatedAt         Timestamp `json:"updatedAt"`
}

// ContentType is the closed vocabulary of content item kinds.
type ContentType string

const (
	TypeDocument ContentType = "document"
	TypePDF      ContentType = "pdf"
	TypeYouTube  ContentType = "youtube"
	TypeArticle  ContentType = "article"
	TypeURL      ContentType = "url"
	TypeNote     ContentType = "note"
	TypeImage    ContentType = "image"
	TypeAudio    ContentType = "audio"
	TypeVideo    ContentType = "video"
)

// ContentTypes lists every content type.
func ContentTypes() []ContentType {
	return []ContentType{TypeDocument, TypePDF, TypeYouTube, TypeArticle, TypeURL, TypeNote, TypeImage, TypeAudio, TypeVideo}
}

// ParseContentType resolves a stored or submitted type name.
func ParseContentType(s string) (ContentType, error) {
	t := ContentType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TypeDocument, TypePDF, TypeYouTube, TypeArticle, TypeURL, TypeNote, TypeImage, TypeAudio, TypeVideo:
		return t, nil
	default:
		return "", fmt.Errorf("unknown content type %q", s)
	}
}

// Category is the coarse grouping used by dashboard summaries.
type Category string

const (
	CategoryDocuments Category = "documents"
	CategoryMedia     Category = "media"
	CategoryWeb       Category = "web"
)

// Category maps the type to its dashboard category.
func (t ContentType) Category() Category {
	switch t {
	case TypeDocument, TypePDF, TypeNote:
		return CategoryDocuments
	case TypeYouTube, TypeImage, TypeAudio, TypeVideo:
		return CategoryMedia
	case TypeArticle, TypeURL:
		return CategoryWeb
	default:
		return CategoryDocuments
	}
}

// Label is the display name of the type.
func (t ContentType) Label() string {
	switch t {
	case TypeDocument:
		return "Document"
	case TypePDF:
		return "PDF"
	case TypeYouTube:
		return "YouTube"
	case TypeArticle:
		return "Article"
	case TypeURL:
		return "Link"
	case TypeNote:
		return "Note"
	case TypeImage:
		return "Image"
	case TypeAudio:
		return "Audio"
	case TypeVideo:
		return "Video"
	default:
		return "Unknown"
	}
}

// ContentItem is an uploaded or captured source. It lives in the inbox or in one project.
type ContentItem struct {
	ID              string      `json:"id"`
	Type            ContentType `json:"type"`
	Title           string      `json:"title"`
	URL             string      `json:"url,omitempty"`
	Thumbnail       string      `json:"thumbnail,omitempty"`
	Processed       bool        `json:"processed"`
	ChunksProcessed int         `json:"chunksProcessed"`
	AddedAt         Timestamp   `json:"addedAt"`
}

// UnmarshalJSON migrates legacy rows: "name" for title, "uploadedAt" for addedAt,
// and unknown types to document.
func (c *ContentItem) UnmarshalJSON(b []byte) error {
	type plain ContentItem
	var raw struct {
		plain
		Type       string     `json:"type"`
		Name       string     `json:"name"`
		UploadedAt *Timestamp `json:"uploadedAt"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*c = ContentItem(raw.plain)
	c.Type = TypeDocument
	if t, err := ParseContentType(raw.Type); err == nil {
		c.Type = t
	}
	if c.Title == "" {
		c.Title = raw.Name
	}
	if c.AddedAt.IsZero() && raw.UploadedAt != nil {
		c.AddedAt = *raw.UploadedAt
	}
	return nil
}

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageSource is a numbered citation attached to an assistant message.
type MessageSource struct {
	Number      int     `json:"number"`
	SourceTitle string  `json:"sourceTitle"`
	Relevance   float64 `json:"relevance"`
}

// Message is one turn of a conversation.
type Message struct {
	ID        string          `json:"id"`
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
	Sources   []MessageSource `json:"sources,omitempty"`
	Timestamp Timestamp       `json:"timestamp"`
}

// Conversation is an append-only message thread scoped to a project.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

const titleLimit = 50

// ConversationTitle derives a title from the first user message.
func ConversationTitle(firstMessage string) string {
	title := strings.Join(strings.Fields(firstMessage), " ")
	if utf8.RuneCountInString(title) <= titleLimit {
		return title
	}
	return string([]rune(title)[:titleLimit]) + "..."
}

// InsightSource references a content item an insight was drawn from.
type InsightSource struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Type      string  `json:"type"`
	Relevance float64 `json:"relevance"`
}

// Insight is a curated assistant answer.
// ProjectName and ProjectColor are copied when the insight is saved and are not kept in sync.
type Insight struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	OriginalQuery string          `json:"originalQuery"`
	Content       string          `json:"content"`
	Sources       []InsightSource `json:"sources"`
	Tags          []string        `json:"tags"`
	ProjectID     string          `json:"projectId,omitempty"`
	ProjectName   string          `json:"projectName,omitempty"`
	ProjectColor  *int            `json:"projectColor,omitempty"`
	IsStarred     bool            `json:"isStarred"`
	IsPublic      bool            `json:"isPublic"`
	IsArchived    bool            `json:"isArchived"`
	ShareLink     string          `json:"shareLink,omitempty"`
	CreatedAt     Timestamp       `json:"createdAt"`
	UpdatedAt     Timestamp       `json:"updatedAt"`
}

// Flashcard is a study card generated from a project's sources.
type Flashcard struct {
	ID        string    `json:"id"`
	Front     string    `json:"front"`
	Back      string    `json:"back"`
	Source    string    `json:"source"`
	CreatedAt Timestamp `json:"createdAt"`
}

// Provider is an AI provider an API key belongs to.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
	ProviderOllama    Provider = "ollama"
)

// ParseProvider resolves a provider name.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderOllama:
		return p, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// APIKeyConfig is a stored provider key. EncryptedKey is sealed; the plaintext never reaches the store.
type APIKeyConfig struct {
	ID           string    `json:"id"`
	Provider     Provider  `json:"provider"`
	KeyName      string    `json:"keyName"`
	EncryptedKey string    `json:"encryptedKey"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    Timestamp `json:"createdAt"`
}
