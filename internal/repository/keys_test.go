package repository

import (
	"testing"

	"moonscribe/internal/events"
)

func TestKey(t *testing.T) {
	if got := Key(FamilyProjects, ""); got != "moonscribe:projects" {
		t.Errorf("Key(projects) = %q", got)
	}
	if got := Key(FamilyContent, "p1"); got != "moonscribe:content:p1" {
		t.Errorf("Key(content, p1) = %q", got)
	}
	keys := ProjectKeys("p1")
	if len(keys) != 4 {
		t.Errorf("ProjectKeys() = %v, want 4 keys", keys)
	}
}

func TestTopicForKey(t *testing.T) {
	tests := []struct {
		key       string
		topic     events.Topic
		projectID string
		ok        bool
	}{
		{key: "moonscribe:projects", topic: events.ProjectsChanged, ok: true},
		{key: "moonscribe:insights", topic: events.InsightsChanged, ok: true},
		{key: "moonscribe:inbox", topic: events.InboxChanged, ok: true},
		{key: "moonscribe:apikeys:anonymous", topic: events.APIKeysChanged, ok: true},
		{key: "moonscribe:content:p1", topic: events.ContentChanged, projectID: "p1", ok: true},
		{key: "moonscribe:documents:p1", topic: events.ContentChanged, projectID: "p1", ok: true},
		{key: "moonscribe:conversations:ungrouped", topic: events.ConversationsChanged, projectID: "ungrouped", ok: true},
		{key: "moonscribe:flashcards:p9", topic: events.FlashcardsChanged, projectID: "p9", ok: true},
		{key: "moonscribe:unknown", ok: false},
		{key: "other:projects", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			topic, projectID, ok := TopicForKey(tt.key)
			if ok != tt.ok || topic != tt.topic || projectID != tt.projectID {
				t.Errorf("TopicForKey(%q) = %v, %q, %v; want %v, %q, %v", tt.key, topic, projectID, ok, tt.topic, tt.projectID, tt.ok)
			}
		})
	}
}

func TestExternalChangeEvents(t *testing.T) {
	got := ExternalChangeEvents("moonscribe:flashcards:p1")
	if len(got) != 2 {
		t.Fatalf("ExternalChangeEvents() = %+v, want 2 events", got)
	}
	if got[0].Topic != events.StorageChanged || got[0].Origin != events.OriginExternal {
		t.Errorf("first event = %+v, want external storage-changed", got[0])
	}
	if got[1].Topic != events.FlashcardsChanged || got[1].ProjectID != "p1" {
		t.Errorf("second event = %+v, want flashcards-changed for p1", got[1])
	}

	if got := ExternalChangeEvents("unrelated"); len(got) != 1 {
		t.Errorf("unrecognized key produced %d events, want 1", len(got))
	}
}
