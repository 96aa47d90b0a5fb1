package service_test

import (
	"errors"
	"testing"

	"moonscribe/internal/repository"
	"moonscribe/internal/service"
	"moonscribe/internal/views"
)

func TestProjectService_Create(t *testing.T) {
	repos, _ := newRepos(t)
	svc := service.NewProjectService(repos)

	tests := []struct {
		name      string
		req       service.CreateProjectRequest
		wantErr   bool
		wantField string
	}{
		{
			name: "valid",
			req:  service.CreateProjectRequest{Name: "Biology", Color: 2, Tags: []string{"science"}},
		},
		{
			name:      "blank name",
			req:       service.CreateProjectRequest{Name: "   "},
			wantErr:   true,
			wantField: "name",
		},
		{
			name:      "color outside palette",
			req:       service.CreateProjectRequest{Name: "Art", Color: 12},
			wantErr:   true,
			wantField: "color",
		},
		{
			name:      "blank tag",
			req:       service.CreateProjectRequest{Name: "Art", Tags: []string{"ok", ""}},
			wantErr:   true,
			wantField: "tags[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := svc.Create(testContext(), tt.req)
			if tt.wantErr {
				var validationErr *service.ValidationError
				if !errors.As(err, &validationErr) {
					t.Fatalf("Create() error = %v, want ValidationError", err)
				}
				if validationErr.Field != tt.wantField {
					t.Errorf("ValidationError.Field = %q, want %q", validationErr.Field, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if p.ID == "" || p.Name != tt.req.Name || p.CreatedAt.IsZero() {
				t.Errorf("Create() = %+v", p)
			}
		})
	}
}

func TestProjectService_CountersDerivedOnRead(t *testing.T) {
	repos, _ := newRepos(t)
	svc := service.NewProjectService(repos)
	ctx := testContext()

	p := mustProject(t, repos, "Biology")
	// Stale stored counters must be ignored
	if _, err := repos.Projects.Update(ctx, p.ID, func(p *repository.Project) error {
		p.DocumentCount = 99
		return nil
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if _, err := repos.Content.Add(ctx, p.ID, repository.ContentItem{Title: "notes.pdf", Type: repository.TypePDF}); err != nil {
		t.Fatalf("Content.Add() error = %v", err)
	}
	if _, err := repos.Conversations.Create(ctx, p.ID, ""); err != nil {
		t.Fatalf("Conversations.Create() error = %v", err)
	}
	for _, content := range []string{"Mitosis", " mitosis ", "Meiosis"} {
		if _, err := repos.Insights.Add(ctx, repository.Insight{Content: content, ProjectID: p.ID}); err != nil {
			t.Fatalf("Insights.Add() error = %v", err)
		}
	}

	projects, err := svc.List(ctx, service.ProjectListQuery{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("List() returned %d projects", len(projects))
	}
	got := projects[0]
	if got.DocumentCount != 1 || got.ConversationCount != 1 || got.InsightCount != 2 {
		t.Errorf("counters = %d/%d/%d, want 1/1/2", got.DocumentCount, got.ConversationCount, got.InsightCount)
	}

	detail, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if detail.Project.InsightCount != 2 || len(detail.Insights) != 2 || detail.Categories.Documents != 1 {
		t.Errorf("Get() = %+v", detail)
	}
}

func TestProjectService_ListSearchAndSort(t *testing.T) {
	repos, _ := newRepos(t)
	svc := service.NewProjectService(repos)

	for _, name := range []string{"zoology", "Anatomy", "biology"} {
		mustProject(t, repos, name)
	}

	got, err := svc.List(testContext(), service.ProjectListQuery{Sort: views.SortAlphabetical})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 3 || got[0].Name != "Anatomy" || got[1].Name != "biology" || got[2].Name != "zoology" {
		t.Errorf("alphabetical order = %v", names(got))
	}

	got, _ = svc.List(testContext(), service.ProjectListQuery{Query: "OLOG"})
	if len(got) != 2 {
		t.Errorf("search kept %v, want zoology and biology", names(got))
	}
}

func names(projects []repository.Project) []string {
	out := make([]string, len(projects))
	for i, p := range projects {
		out[i] = p.Name
	}
	return out
}

func TestProjectService_UpdateAndDelete(t *testing.T) {
	repos, _ := newRepos(t)
	svc := service.NewProjectService(repos)
	ctx := testContext()
	p := mustProject(t, repos, "Draft")

	name := "Thesis"
	color := 5
	updated, err := svc.Update(ctx, p.ID, service.UpdateProjectRequest{Name: &name, Color: &color})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "Thesis" || updated.Color != 5 || len(updated.Tags) != 0 {
		t.Errorf("Update() = %+v", updated)
	}

	blank := " "
	var validationErr *service.ValidationError
	if _, err := svc.Update(ctx, p.ID, service.UpdateProjectRequest{Name: &blank}); !errors.As(err, &validationErr) {
		t.Errorf("Update(blank name) error = %v, want ValidationError", err)
	}
	if _, err := svc.Update(ctx, "missing", service.UpdateProjectRequest{Name: &name}); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}

	if _, err := repos.Flashcards.Append(ctx, p.ID, repository.Flashcard{Front: "Q", Back: "A"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, p.ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	cards, _ := repos.Flashcards.Load(ctx, p.ID)
	if len(cards) != 0 {
		t.Errorf("flashcards survived project delete: %+v", cards)
	}
	if err := svc.Delete(ctx, p.ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestProjectService_CountersMatchListedContent(t *testing.T) {
	repos, _ := newRepos(t)
	projects := service.NewProjectService(repos)
	content := service.NewContentService(repos, nil)
	dashboard := service.NewDashboardService(repos)
	ctx := testContext()

	p := mustProject(t, repos, "Lectures")
	mustContent(t, repos, p.ID, repository.ContentItem{Type: repository.TypeYouTube, Title: "Lecture 1", URL: "https://youtu.be/a"})
	mustContent(t, repos, p.ID, repository.ContentItem{Type: repository.TypeYouTube, Title: "Lecture 1", URL: "https://youtu.be/b"})

	listed, err := content.ProjectContent(ctx, p.ID, service.ContentQuery{})
	if err != nil {
		t.Fatalf("ProjectContent() error = %v", err)
	}
	detail, err := projects.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	list, err := projects.List(ctx, service.ProjectListQuery{})
	if err != nil || len(list) != 1 {
		t.Fatalf("List() = %+v, %v", list, err)
	}
	summary, err := dashboard.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	if len(listed) != 1 || len(detail.Content) != 1 {
		t.Fatalf("listed %d items, detail %d", len(listed), len(detail.Content))
	}
	if detail.Project.DocumentCount != len(listed) || list[0].DocumentCount != len(listed) {
		t.Errorf("DocumentCount detail=%d list=%d, want %d", detail.Project.DocumentCount, list[0].DocumentCount, len(listed))
	}
	if detail.Categories.Media != 1 || summary.Content.Media != 1 {
		t.Errorf("Media detail=%d dashboard=%d, want 1", detail.Categories.Media, summary.Content.Media)
	}
}

func TestDashboardService_Summary(t *testing.T) {
	repos, _ := newRepos(t)
	svc := service.NewDashboardService(repos)
	ctx := testContext()

	p := mustProject(t, repos, "Biology")
	_, _ = repos.Inbox.Add(ctx, repository.ContentItem{Title: "clip", Type: repository.TypeYouTube})
	_, _ = repos.Content.Add(ctx, p.ID, repository.ContentItem{Title: "paper", Type: repository.TypePDF})
	_, _ = repos.Conversations.Create(ctx, p.ID, "")
	_, _ = repos.Conversations.Create(ctx, "", "")
	_, _ = repos.Insights.Add(ctx, repository.Insight{Content: "A", IsStarred: true})
	_, _ = repos.Insights.Add(ctx, repository.Insight{Content: "B", IsArchived: true})

	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.Projects != 1 || summary.InboxItems != 1 || summary.Conversations != 2 {
		t.Errorf("Summary() = %+v", summary)
	}
	if summary.Content.Documents != 1 || summary.Content.Media != 1 {
		t.Errorf("Content = %+v", summary.Content)
	}
	if summary.Insights != 2 || summary.StarredInsights != 1 || summary.ArchivedInsights != 1 || len(summary.RecentInsights) != 1 {
		t.Errorf("insight totals = %+v", summary)
	}
}
