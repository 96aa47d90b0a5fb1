package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ConversationRepo owns the per-project conversation partitions.
// An empty project id addresses the ungrouped scope.
type ConversationRepo struct {
	coll *collection[Conversation]
	opts Options
}

func normalizeConversation(c *Conversation) {
	if c.Messages == nil {
		c.Messages = []Message{}
	}
}

// Load returns the project's conversations.
func (r *ConversationRepo) Load(ctx context.Context, projectID string) ([]Conversation, error) {
	return r.coll.Load(ctx, projectID)
}

// Save replaces the project's conversations.
func (r *ConversationRepo) Save(ctx context.Context, projectID string, conversations []Conversation) error {
	return r.coll.Save(ctx, projectID, conversations)
}

// Mutate applies fn to the project's conversations.
func (r *ConversationRepo) Mutate(ctx context.Context, projectID string, fn func([]Conversation) ([]Conversation, error)) ([]Conversation, error) {
	return r.coll.Mutate(ctx, projectID, fn)
}

// Get returns one conversation, or ErrNotFound.
func (r *ConversationRepo) Get(ctx context.Context, projectID, conversationID string) (Conversation, error) {
	conversations, err := r.Load(ctx, projectID)
	if err != nil {
		return Conversation{}, err
	}
	i := indexOf(conversations, func(c Conversation) bool { return c.ID == conversationID })
	if i < 0 {
		return Conversation{}, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	return conversations[i], nil
}

// Create starts an empty conversation. The title is set from the first user message.
func (r *ConversationRepo) Create(ctx context.Context, projectID, title string) (Conversation, error) {
	now := At(r.opts.Now())
	conv := Conversation{
		ID:        uuid.New().String(),
		Title:     title,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.Mutate(ctx, projectID, func(conversations []Conversation) ([]Conversation, error) {
		return append(conversations, conv), nil
	})
	if err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

// AppendMessage adds msg to the end of a conversation. Messages are never edited in place.
func (r *ConversationRepo) AppendMessage(ctx context.Context, projectID, conversationID string, msg Message) (Conversation, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = At(r.opts.Now())
	}

	var updated Conversation
	_, err := r.Mutate(ctx, projectID, func(conversations []Conversation) ([]Conversation, error) {
		i := indexOf(conversations, func(c Conversation) bool { return c.ID == conversationID })
		if i < 0 {
			return nil, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
		}
		conv := &conversations[i]
		if conv.Title == "" && msg.Role == RoleUser {
			conv.Title = ConversationTitle(msg.Content)
		}
		conv.Messages = append(conv.Messages, msg)
		conv.UpdatedAt = msg.Timestamp
		updated = *conv
		return conversations, nil
	})
	if err != nil {
		return Conversation{}, err
	}
	return updated, nil
}

// Delete removes a conversation with all its messages.
func (r *ConversationRepo) Delete(ctx context.Context, projectID, conversationID string) error {
	_, err := r.Mutate(ctx, projectID, func(conversations []Conversation) ([]Conversation, error) {
		i := indexOf(conversations, func(c Conversation) bool { return c.ID == conversationID })
		if i < 0 {
			return nil, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
		}
		return removeAt(conversations, i), nil
	})
	return err
}
