package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// APIKeyRepo owns the API key configs of each user. An empty user id means AnonymousUser.
type APIKeyRepo struct {
	coll *collection[APIKeyConfig]
	opts Options
}

// Load returns the user's key configs.
func (r *APIKeyRepo) Load(ctx context.Context, userID string) ([]APIKeyConfig, error) {
	return r.coll.Load(ctx, userID)
}

// Save replaces the user's key configs.
func (r *APIKeyRepo) Save(ctx context.Context, userID string, keys []APIKeyConfig) error {
	return r.coll.Save(ctx, userID, keys)
}

// Mutate applies fn to the user's key configs.
func (r *APIKeyRepo) Mutate(ctx context.Context, userID string, fn func([]APIKeyConfig) ([]APIKeyConfig, error)) ([]APIKeyConfig, error) {
	return r.coll.Mutate(ctx, userID, fn)
}

// Add stores a key config. An active key deactivates the other keys of its provider.
func (r *APIKeyRepo) Add(ctx context.Context, userID string, key APIKeyConfig) (APIKeyConfig, error) {
	if key.ID == "" {
		key.ID = uuid.New().String()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = At(r.opts.Now())
	}

	_, err := r.Mutate(ctx, userID, func(keys []APIKeyConfig) ([]APIKeyConfig, error) {
		if key.IsActive {
			deactivateProvider(keys, key.Provider)
		}
		return append(keys, key), nil
	})
	if err != nil {
		return APIKeyConfig{}, err
	}
	return key, nil
}

// Activate marks keyID active and every other key of the same provider inactive.
func (r *APIKeyRepo) Activate(ctx context.Context, userID, keyID string) (APIKeyConfig, error) {
	var activated APIKeyConfig
	_, err := r.Mutate(ctx, userID, func(keys []APIKeyConfig) ([]APIKeyConfig, error) {
		i := indexOf(keys, func(k APIKeyConfig) bool { return k.ID == keyID })
		if i < 0 {
			return nil, fmt.Errorf("api key %s: %w", keyID, ErrNotFound)
		}
		deactivateProvider(keys, keys[i].Provider)
		keys[i].IsActive = true
		activated = keys[i]
		return keys, nil
	})
	if err != nil {
		return APIKeyConfig{}, err
	}
	return activated, nil
}

// Delete removes one key config.
func (r *APIKeyRepo) Delete(ctx context.Context, userID, keyID string) error {
	_, err := r.Mutate(ctx, userID, func(keys []APIKeyConfig) ([]APIKeyConfig, error) {
		i := indexOf(keys, func(k APIKeyConfig) bool { return k.ID == keyID })
		if i < 0 {
			return nil, fmt.Errorf("api key %s: %w", keyID, ErrNotFound)
		}
		return removeAt(keys, i), nil
	})
	return err
}

// Active returns the active key for provider, or ErrNotFound.
func (r *APIKeyRepo) Active(ctx context.Context, userID string, provider Provider) (APIKeyConfig, error) {
	keys, err := r.Load(ctx, userID)
	if err != nil {
		return APIKeyConfig{}, err
	}
	i := indexOf(keys, func(k APIKeyConfig) bool { return k.Provider == provider && k.IsActive })
	if i < 0 {
		return APIKeyConfig{}, fmt.Errorf("active %s key: %w", provider, ErrNotFound)
	}
	return keys[i], nil
}

func deactivateProvider(keys []APIKeyConfig, provider Provider) {
	for i := range keys {
		if keys[i].Provider == provider {
			keys[i].IsActive = false
		}
	}
}
