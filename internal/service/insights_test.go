package service_test

import (
	"errors"
	"testing"

	"moonscribe/internal/repository"
	"moonscribe/internal/service"
	"moonscribe/internal/views"
)

func TestInsightService_Save(t *testing.T) {
	repos, _ := newRepos(t)
	svc := service.NewInsightService(repos)
	ctx := testContext()
	p := mustProject(t, repos, "Biology")

	tests := []struct {
		name      string
		req       service.SaveInsightRequest
		wantTitle string
		wantErr   error
		wantField string
	}{
		{
			name:      "title from query",
			req:       service.SaveInsightRequest{OriginalQuery: "what is  mitosis", Content: "Cell division.", ProjectID: p.ID},
			wantTitle: "what is mitosis",
		},
		{
			name:      "title from content",
			req:       service.SaveInsightRequest{Content: "Plain answer text"},
			wantTitle: "Plain answer text",
		},
		{
			name:      "explicit title",
			req:       service.SaveInsightRequest{Title: " Mitosis ", OriginalQuery: "q", Content: "c"},
			wantTitle: "Mitosis",
		},
		{
			name:      "blank content",
			req:       service.SaveInsightRequest{Content: " "},
			wantField: "content",
		},
		{
			name:    "unknown project",
			req:     service.SaveInsightRequest{Content: "c", ProjectID: "missing"},
			wantErr: service.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Save(ctx, tt.req)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Save() error = %v, want %v", err, tt.wantErr)
				}
				return
			case tt.wantField != "":
				var validationErr *service.ValidationError
				if !errors.As(err, &validationErr) || validationErr.Field != tt.wantField {
					t.Errorf("Save() error = %v, want ValidationError on %s", err, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if got.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", got.Title, tt.wantTitle)
			}
		})
	}
}

func TestInsightService_ProjectSnapshot(t *testing.T) {
	repos, _ := newRepos(t)
	svc := service.NewInsightService(repos)
	ctx := testContext()
	p := mustProject(t, repos, "Biology")

	saved, err := svc.Save(ctx, service.SaveInsightRequest{Content: "Cells divide.", ProjectID: p.ID})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.ProjectName != "Biology" || saved.ProjectColor == nil || *saved.ProjectColor != p.Color {
		t.Fatalf("snapshot = %q/%v", saved.ProjectName, saved.ProjectColor)
	}

	// Renaming the project leaves the snapshot alone
	if _, err := repos.Projects.Update(ctx, p.ID, func(p *repository.Project) error {
		p.Name = "Cell Biology"
		return nil
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, err := svc.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ProjectName != "Biology" {
		t.Errorf("ProjectName = %q, want the name at save time", got.ProjectName)
	}
}

func TestInsightService_Flags(t *testing.T) {
	repos, _ := newRepos(t)
	svc := service.NewInsightService(repos)
	ctx := testContext()

	in, err := svc.Save(ctx, service.SaveInsightRequest{Content: "Keep this"})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := svc.SetArchived(ctx, in.ID, true); err != nil {
		t.Fatalf("SetArchived() error = %v", err)
	}
	starred, err := svc.SetStarred(ctx, in.ID, true)
	if err != nil {
		t.Fatalf("SetStarred() error = %v", err)
	}
	if !starred.IsStarred || !starred.IsArchived {
		t.Errorf("starring an archived insight = %+v, want starred and archived", starred)
	}

	public, err := svc.SetPublic(ctx, in.ID, true)
	if err != nil {
		t.Fatalf("SetPublic(true) error = %v", err)
	}
	if public.ShareLink != "/share/"+in.ID {
		t.Errorf("ShareLink = %q", public.ShareLink)
	}
	if _, err := svc.Shared(ctx, in.ID); err != nil {
		t.Errorf("Shared() on public insight error = %v", err)
	}

	private, err := svc.SetPublic(ctx, in.ID, false)
	if err != nil {
		t.Fatalf("SetPublic(false) error = %v", err)
	}
	if private.ShareLink != "" || private.IsPublic {
		t.Errorf("unpublished insight = %+v", private)
	}
	if _, err := svc.Shared(ctx, in.ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Shared() on private insight error = %v, want ErrNotFound", err)
	}

	if _, err := svc.SetStarred(ctx, "missing", true); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("SetStarred(missing) error = %v, want ErrNotFound", err)
	}
}

func TestInsightService_List(t *testing.T) {
	repos, _ := newRepos(t)
	svc := service.NewInsightService(repos)
	ctx := testContext()
	p := mustProject(t, repos, "Biology")

	seed := []repository.Insight{
		{Title: "Mitosis", Content: "Cells divide", ProjectID: p.ID, Tags: []string{"cells"}},
		{Title: "Mitosis again", Content: " CELLS divide ", ProjectID: p.ID},
		{Title: "Same text elsewhere", Content: "Cells divide"},
		{Title: "Old news", Content: "Archived", IsArchived: true, Tags: []string{"cells"}},
		{Title: "Favourite", Content: "Starred", IsStarred: true},
	}
	for _, in := range seed {
		if _, err := repos.Insights.Add(ctx, in); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	tests := []struct {
		name  string
		query service.InsightQuery
		want  int
	}{
		{name: "active deduped", query: service.InsightQuery{}, want: 3},
		{name: "all", query: service.InsightQuery{Archive: views.ArchiveAll}, want: 4},
		{name: "archived", query: service.InsightQuery{Archive: views.ArchiveArchived}, want: 1},
		{name: "starred", query: service.InsightQuery{StarredOnly: true}, want: 1},
		{name: "project", query: service.InsightQuery{ProjectID: p.ID}, want: 1},
		{name: "tag across archive", query: service.InsightQuery{Tags: []string{"CELLS"}, Archive: views.ArchiveAll}, want: 2},
		{name: "search", query: service.InsightQuery{Query: "favour"}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(ctx, tt.query)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("List() returned %d insights, want %d", len(got), tt.want)
			}
		})
	}

	stored, _ := repos.Insights.Load(ctx)
	if len(stored) != len(seed) {
		t.Errorf("List() changed stored insights: %d, want %d", len(stored), len(seed))
	}

	tags, err := svc.Tags(ctx)
	if err != nil || len(tags) != 1 || tags[0] != "cells" {
		t.Errorf("Tags() = %v, %v", tags, err)
	}
}

func TestInsightService_UpdateAndDelete(t *testing.T) {
	repos, _ := newRepos(t)
	svc := service.NewInsightService(repos)
	ctx := testContext()

	in, err := svc.Save(ctx, service.SaveInsightRequest{Content: "Draft", Tags: []string{"a"}})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	title := "Final"
	updated, err := svc.Update(ctx, in.ID, service.UpdateInsightRequest{Title: &title})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Title != "Final" || updated.Content != "Draft" || len(updated.Tags) != 1 {
		t.Errorf("Update() = %+v", updated)
	}

	if err := svc.Delete(ctx, in.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, in.ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
