package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"moonscribe/internal/contextutil"
	"moonscribe/internal/repository"
	"moonscribe/internal/secrets"
)

// AddKeyRequest stores a provider key for a user. An empty UserID is the anonymous namespace.
type AddKeyRequest struct {
	UserID   string
	Provider string `validate:"provider"`
	KeyName  string `validate:"notblank,max=100"`
	Key      string `validate:"notblank,max=512"`
	Activate bool
}

// KeyView is a stored key as shown to its owner. The key itself is masked.
type KeyView struct {
	ID        string              `json:"id"`
	Provider  repository.Provider `json:"provider"`
	KeyName   string              `json:"keyName"`
	MaskedKey string              `json:"maskedKey"`
	IsActive  bool                `json:"isActive"`
	CreatedAt time.Time           `json:"createdAt"`
}

// KeyService manages provider API keys. Plaintext keys leave it only through ProviderKey.
type KeyService interface {
	List(ctx context.Context, userID string) ([]KeyView, error)
	Add(ctx context.Context, req AddKeyRequest) (KeyView, error)
	Activate(ctx context.Context, userID, keyID string) (KeyView, error)
	Delete(ctx context.Context, userID, keyID string) error
	// ProviderKey opens the user's active key for provider. ErrNotFound when none is active.
	ProviderKey(ctx context.Context, userID string, provider repository.Provider) (string, error)
}

type keyService struct {
	repos  *repository.Repositories
	sealer KeySealer
}

// NewKeyService creates a new KeyService.
func NewKeyService(repos *repository.Repositories, sealer KeySealer) KeyService {
	return &keyService{repos: repos, sealer: sealer}
}

func (s *keyService) view(ctx context.Context, k repository.APIKeyConfig) KeyView {
	v := KeyView{
		ID:        k.ID,
		Provider:  k.Provider,
		KeyName:   k.KeyName,
		IsActive:  k.IsActive,
		CreatedAt: k.CreatedAt.Time,
	}
	plain, err := s.sealer.Open(k.EncryptedKey)
	if err != nil {
		// Usually a rotated KEY_SECRET; the key must be re-entered
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "stored api key cannot be opened", "key_id", k.ID, "error", err)
		return v
	}
	v.MaskedKey = secrets.Mask(plain)
	return v
}

func (s *keyService) List(ctx context.Context, userID string) ([]KeyView, error) {
	keys, err := s.repos.APIKeys.Load(ctx, userID)
	if err != nil {
		return nil, classify(err, "failed to load api keys")
	}
	out := make([]KeyView, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.view(ctx, k))
	}
	return out, nil
}

func (s *keyService) Add(ctx context.Context, req AddKeyRequest) (KeyView, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateRequest(req); err != nil {
		logger.WarnContext(ctx, "invalid api key request", "error", err)
		return KeyView{}, err
	}
	provider, _ := repository.ParseProvider(req.Provider)

	sealed, err := s.sealer.Seal(strings.TrimSpace(req.Key))
	if err != nil {
		logger.ErrorContext(ctx, "failed to seal api key", "error", err)
		return KeyView{}, WrapError(err, "failed to seal api key")
	}

	stored, err := s.repos.APIKeys.Add(ctx, req.UserID, repository.APIKeyConfig{
		Provider:     provider,
		KeyName:      strings.TrimSpace(req.KeyName),
		EncryptedKey: sealed,
		IsActive:     req.Activate,
	})
	if err != nil {
		return KeyView{}, classify(err, "failed to store api key")
	}

	logger.InfoContext(ctx, "api key added", "key_id", stored.ID, "provider", provider, "active", stored.IsActive)
	return s.view(ctx, stored), nil
}

func (s *keyService) Activate(ctx context.Context, userID, keyID string) (KeyView, error) {
	k, err := s.repos.APIKeys.Activate(ctx, userID, keyID)
	if err != nil {
		return KeyView{}, classify(err, "failed to activate api key")
	}
	return s.view(ctx, k), nil
}

func (s *keyService) Delete(ctx context.Context, userID, keyID string) error {
	if err := s.repos.APIKeys.Delete(ctx, userID, keyID); err != nil {
		return classify(err, "failed to delete api key")
	}
	return nil
}

func (s *keyService) ProviderKey(ctx context.Context, userID string, provider repository.Provider) (string, error) {
	k, err := s.repos.APIKeys.Active(ctx, userID, provider)
	if err != nil {
		return "", classify(err, "failed to find api key")
	}
	plain, err := s.sealer.Open(k.EncryptedKey)
	if err != nil {
		return "", WrapError(err, "failed to open api key")
	}
	return plain, nil
}

// optionalKey resolves the key for provider, treating "no active key" as no key.
func optionalKey(ctx context.Context, keys KeyService, userID string, provider repository.Provider) (string, error) {
	if keys == nil {
		return "", nil
	}
	key, err := keys.ProviderKey(ctx, userID, provider)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return key, err
}
