package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_upstream.go -package=mocks moonscribe/internal/service Upstream
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_key_sealer.go -package=mocks moonscribe/internal/service KeySealer

import (
	"context"
	"io"

	"moonscribe/internal/upstream"
)

// Upstream is the retrieval and generation service as the workspace services see it.
type Upstream interface {
	// Ask answers a question against a project's indexed content.
	Ask(ctx context.Context, req upstream.AskRequest) (*upstream.AskResponse, error)
	// Upload indexes a file for a project.
	Upload(ctx context.Context, projectID, filename string, r io.Reader) (*upstream.UploadResponse, error)
	// Delete removes an indexed file.
	Delete(ctx context.Context, filename string) error
	// GenerateFlashcards produces study cards from a project's content.
	GenerateFlashcards(ctx context.Context, req upstream.FlashcardRequest) ([]upstream.GeneratedFlashcard, error)
}

// KeySealer encrypts provider keys before they are stored.
type KeySealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// AIDefaults selects the provider and model used when a request names none.
type AIDefaults struct {
	Provider string
	Model    string
}
