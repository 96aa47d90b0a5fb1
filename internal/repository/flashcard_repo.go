package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// FlashcardRepo owns the per-project flashcard decks.
type FlashcardRepo struct {
	coll *collection[Flashcard]
	opts Options
}

// Load returns the project's flashcards.
func (r *FlashcardRepo) Load(ctx context.Context, projectID string) ([]Flashcard, error) {
	return r.coll.Load(ctx, projectID)
}

// Save replaces the project's flashcards.
func (r *FlashcardRepo) Save(ctx context.Context, projectID string, cards []Flashcard) error {
	return r.coll.Save(ctx, projectID, cards)
}

// Mutate applies fn to the project's flashcards.
func (r *FlashcardRepo) Mutate(ctx context.Context, projectID string, fn func([]Flashcard) ([]Flashcard, error)) ([]Flashcard, error) {
	return r.coll.Mutate(ctx, projectID, fn)
}

// Append adds cards to the project's deck and returns them with IDs assigned.
func (r *FlashcardRepo) Append(ctx context.Context, projectID string, cards ...Flashcard) ([]Flashcard, error) {
	now := At(r.opts.Now())
	added := make([]Flashcard, len(cards))
	for i, card := range cards {
		if card.ID == "" {
			card.ID = uuid.New().String()
		}
		if card.CreatedAt.IsZero() {
			card.CreatedAt = now
		}
		added[i] = card
	}

	_, err := r.Mutate(ctx, projectID, func(deck []Flashcard) ([]Flashcard, error) {
		return append(deck, added...), nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// Delete removes one card.
func (r *FlashcardRepo) Delete(ctx context.Context, projectID, cardID string) error {
	_, err := r.Mutate(ctx, projectID, func(deck []Flashcard) ([]Flashcard, error) {
		i := indexOf(deck, func(c Flashcard) bool { return c.ID == cardID })
		if i < 0 {
			return nil, fmt.Errorf("flashcard %s: %w", cardID, ErrNotFound)
		}
		return removeAt(deck, i), nil
	})
	return err
}
