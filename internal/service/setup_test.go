package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"moonscribe/internal/events"
	"moonscribe/internal/repository"
	"moonscribe/internal/storage"
)

func init() {
	// Set default logger to discard output for cleaner test output
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testContext() context.Context {
	return context.Background()
}

// newRepos returns repositories over an in-memory store and the bus they publish on.
func newRepos(t *testing.T) (*repository.Repositories, *events.Bus) {
	t.Helper()
	bus := events.NewBus(nil)
	repos := repository.New(storage.NewMemoryStore(storage.Quota{}), repository.Options{Bus: bus})
	return repos, bus
}

func mustProject(t *testing.T, repos *repository.Repositories, name string) repository.Project {
	t.Helper()
	p, err := repos.Projects.Create(testContext(), repository.Project{Name: name, Color: 3})
	if err != nil {
		t.Fatalf("Projects.Create() error = %v", err)
	}
	return p
}

func mustContent(t *testing.T, repos *repository.Repositories, projectID string, item repository.ContentItem) repository.ContentItem {
	t.Helper()
	added, err := repos.Content.Add(testContext(), projectID, item)
	if err != nil {
		t.Fatalf("Content.Add() error = %v", err)
	}
	return added
}
