package repository

import (
	"moonscribe/internal/events"
	"moonscribe/internal/storage"
)

// Repositories bundles one repository per entity family plus the cross-family operations.
type Repositories struct {
	Projects      *ProjectRepo
	Content       *ContentRepo
	Inbox         *InboxRepo
	Conversations *ConversationRepo
	Insights      *InsightRepo
	Flashcards    *FlashcardRepo
	APIKeys       *APIKeyRepo
	Workspace     *Workspace
}

// New creates the repositories over store.
func New(store storage.Store, opts Options) *Repositories {
	opts = opts.withDefaults()

	projects := &collection[Project]{
		family:    FamilyProjects,
		topic:     events.ProjectsChanged,
		normalize: normalizeProject,
		store:     store,
		opts:      opts,
	}
	content := &collection[ContentItem]{
		family: FamilyContent,
		scoped: true,
		topic:  events.ContentChanged,
		store:  store,
		opts:   opts,
	}
	inbox := &collection[ContentItem]{
		family: FamilyInbox,
		topic:  events.InboxChanged,
		store:  store,
		opts:   opts,
	}
	conversations := &collection[Conversation]{
		family:        FamilyConversations,
		scoped:        true,
		defaultParent: UngroupedScope,
		topic:         events.ConversationsChanged,
		normalize:     normalizeConversation,
		store:         store,
		opts:          opts,
	}
	insights := &collection[Insight]{
		family:    FamilyInsights,
		topic:     events.InsightsChanged,
		normalize: normalizeInsight,
		store:     store,
		opts:      opts,
	}
	flashcards := &collection[Flashcard]{
		family: FamilyFlashcards,
		scoped: true,
		topic:  events.FlashcardsChanged,
		store:  store,
		opts:   opts,
	}
	apiKeys := &collection[APIKeyConfig]{
		family:        FamilyAPIKeys,
		scoped:        true,
		defaultParent: AnonymousUser,
		topic:         events.APIKeysChanged,
		store:         store,
		opts:          opts,
	}

	contentRepo := &ContentRepo{coll: content, store: store, opts: opts}
	inboxRepo := &InboxRepo{coll: inbox, opts: opts}

	return &Repositories{
		Projects:      &ProjectRepo{coll: projects, opts: opts},
		Content:       contentRepo,
		Inbox:         inboxRepo,
		Conversations: &ConversationRepo{coll: conversations, opts: opts},
		Insights:      &InsightRepo{coll: insights, opts: opts},
		Flashcards:    &FlashcardRepo{coll: flashcards, opts: opts},
		APIKeys:       &APIKeyRepo{coll: apiKeys, opts: opts},
		Workspace: &Workspace{
			store:    store,
			opts:     opts,
			projects: projects,
			content:  contentRepo,
			inbox:    inbox,
		},
	}
}
