package events

import (
	"fmt"
	"time"
)

// Topic is a data-change topic. The set is closed; use ParseTopic at boundaries.
type Topic int

const (
	ProjectsChanged Topic = iota + 1
	ContentAdded
	ContentChanged
	InboxChanged
	ConversationsChanged
	InsightsChanged
	FlashcardsChanged
	APIKeysChanged
	// StorageChanged is raised for writes made by another process sharing the store.
	StorageChanged
)

var topicNames = map[Topic]string{
	ProjectsChanged:      "projects-changed",
	ContentAdded:         "content-added",
	ContentChanged:       "content-changed",
	InboxChanged:         "inbox-changed",
	ConversationsChanged: "conversations-changed",
	InsightsChanged:      "insights-changed",
	FlashcardsChanged:    "flashcards-changed",
	APIKeysChanged:       "api-keys-changed",
	StorageChanged:       "storage-changed",
}

// Topics lists every topic in declaration order.
func Topics() []Topic {
	return []Topic{
		ProjectsChanged, ContentAdded, ContentChanged, InboxChanged, ConversationsChanged,
		InsightsChanged, FlashcardsChanged, APIKeysChanged, StorageChanged,
	}
}

func (t Topic) String() string {
	if name, ok := topicNames[t]; ok {
		return name
	}
	return fmt.Sprintf("topic(%d)", int(t))
}

// MarshalText encodes the topic by name.
func (t Topic) MarshalText() ([]byte, error) {
	name, ok := topicNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown topic %d", int(t))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a topic name.
func (t *Topic) UnmarshalText(b []byte) error {
	parsed, err := ParseTopic(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTopic resolves a topic name.
func ParseTopic(name string) (Topic, error) {
	for t, n := range topicNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown topic %q", name)
}

// Origins of an event.
const (
	OriginLocal    = "local"
	OriginExternal = "external"
)

// Event is a data-change notification.
type Event struct {
	Topic Topic `json:"topic"`
	// ProjectID scopes per-project topics; empty for global collections.
	ProjectID string `json:"projectId,omitempty"`
	// Key is the storage key that changed, when known.
	Key    string    `json:"key,omitempty"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// Command is a UI command. Commands travel on their own channel, apart from data topics.
type Command int

const (
	// OpenAddContent asks a globally mounted add-content flow to present itself.
	OpenAddContent Command = iota + 1
)

func (c Command) String() string {
	switch c {
	case OpenAddContent:
		return "open-add-content"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

// MarshalText encodes the command by name.
func (c Command) MarshalText() ([]byte, error) {
	if c != OpenAddContent {
		return nil, fmt.Errorf("unknown command %d", int(c))
	}
	return []byte(c.String()), nil
}

// ParseCommand resolves a command name.
func ParseCommand(name string) (Command, error) {
	if name == OpenAddContent.String() {
		return OpenAddContent, nil
	}
	return 0, fmt.Errorf("unknown command %q", name)
}

// CommandEvent carries a Command and its optional target project.
type CommandEvent struct {
	Command   Command   `json:"command"`
	ProjectID string    `json:"projectId,omitempty"`
	At        time.Time `json:"at"`
}
