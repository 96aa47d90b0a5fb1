package repository

import (
	"strings"

	"moonscribe/internal/events"
)

const keyPrefix = "moonscribe:"

// Entity families. Global families use one key; scoped families use family:{parentID}.
const (
	FamilyProjects      = "projects"
	FamilyInsights      = "insights"
	FamilyInbox         = "inbox"
	FamilyAPIKeys       = "apikeys"
	FamilyContent       = "content"
	FamilyDocuments     = "documents"
	FamilyConversations = "conversations"
	FamilyFlashcards    = "flashcards"
)

const (
	// AnonymousUser is the API key namespace used when no user identity is known.
	AnonymousUser = "anonymous"
	// UngroupedScope holds conversations from the chat that predates projects.
	UngroupedScope = "ungrouped"
)

// projectFamilies are the families whose keys are derived from a project id.
var projectFamilies = []string{FamilyContent, FamilyDocuments, FamilyConversations, FamilyFlashcards}

// Key builds the storage key for a family, scoped by parentID when non-empty.
func Key(family, parentID string) string {
	if parentID == "" {
		return keyPrefix + family
	}
	return keyPrefix + family + ":" + parentID
}

// ProjectKeys lists every key derived from a project id.
func ProjectKeys(projectID string) []string {
	keys := make([]string, 0, len(projectFamilies))
	for _, family := range projectFamilies {
		keys = append(keys, Key(family, projectID))
	}
	return keys
}

// ParseKey splits a storage key into family and parent id.
func ParseKey(key string) (family, parentID string, ok bool) {
	rest, found := strings.CutPrefix(key, keyPrefix)
	if !found || rest == "" {
		return "", "", false
	}
	family, parentID, _ = strings.Cut(rest, ":")
	return family, parentID, true
}

// TopicForKey maps a storage key to the data topic its family publishes on.
// The returned project id is empty for global families.
func TopicForKey(key string) (events.Topic, string, bool) {
	family, parentID, ok := ParseKey(key)
	if !ok {
		return 0, "", false
	}

	switch family {
	case FamilyProjects:
		return events.ProjectsChanged, "", true
	case FamilyInsights:
		return events.InsightsChanged, "", true
	case FamilyInbox:
		return events.InboxChanged, "", true
	case FamilyAPIKeys:
		return events.APIKeysChanged, "", true
	case FamilyContent, FamilyDocuments:
		return events.ContentChanged, parentID, true
	case FamilyConversations:
		return events.ConversationsChanged, parentID, true
	case FamilyFlashcards:
		return events.FlashcardsChanged, parentID, true
	default:
		return 0, "", false
	}
}

// ExternalChangeEvents builds the events for a write made by another process:
// a StorageChanged event carrying the key, then the family topic when the key is recognized.
func ExternalChangeEvents(key string) []events.Event {
	out := []events.Event{{Topic: events.StorageChanged, Key: key, Origin: events.OriginExternal}}
	if topic, projectID, ok := TopicForKey(key); ok {
		out = append(out, events.Event{Topic: topic, ProjectID: projectID, Key: key, Origin: events.OriginExternal})
	}
	return out
}
