package views

import (
	"moonscribe/internal/repository"
)

// CategoryCounts counts content items by dashboard category.
type CategoryCounts struct {
	Documents int `json:"documents"`
	Media     int `json:"media"`
	Web       int `json:"web"`
}

// Total is the number of items counted.
func (c CategoryCounts) Total() int {
	return c.Documents + c.Media + c.Web
}

// CountByCategory counts items per category in one pass.
func CountByCategory(items []repository.ContentItem) CategoryCounts {
	var counts CategoryCounts
	for _, item := range items {
		switch item.Type.Category() {
		case repository.CategoryDocuments:
			counts.Documents++
		case repository.CategoryMedia:
			counts.Media++
		case repository.CategoryWeb:
			counts.Web++
		}
	}
	return counts
}

// InsightCountsByProject counts insights per project id. Unassigned insights are not counted.
func InsightCountsByProject(insights []repository.Insight) map[string]int {
	counts := make(map[string]int)
	for _, in := range insights {
		if in.ProjectID != "" {
			counts[in.ProjectID]++
		}
	}
	return counts
}

// ProjectStats returns p with its counters recomputed from its child collections.
// Content is counted as listed, after dedupe.
func ProjectStats(p repository.Project, content []repository.ContentItem, conversations []repository.Conversation, insightCount int) repository.Project {
	p.DocumentCount = len(DedupeContent(content))
	p.ConversationCount = len(conversations)
	p.InsightCount = insightCount
	return p
}

// DashboardInput is the snapshot a dashboard summary is computed from.
type DashboardInput struct {
	Projects []repository.Project
	Inbox    []repository.ContentItem
	// Content maps project id to that project's content.
	Content       map[string][]repository.ContentItem
	Conversations int
	Insights      []repository.Insight
}

// DashboardSummary is the aggregate shown on the dashboard.
type DashboardSummary struct {
	Projects         int                  `json:"projects"`
	InboxItems       int                  `json:"inboxItems"`
	Content          CategoryCounts       `json:"content"`
	Conversations    int                  `json:"conversations"`
	Insights         int                  `json:"insights"`
	StarredInsights  int                  `json:"starredInsights"`
	ArchivedInsights int                  `json:"archivedInsights"`
	RecentInsights   []repository.Insight `json:"recentInsights"`
}

const recentInsightLimit = 5

// Dashboard computes the summary. Content and insight totals count what the list
// views show after display-time dedupe, and recent insights exclude archived ones.
func Dashboard(in DashboardInput) DashboardSummary {
	inbox := DedupeContent(in.Inbox)
	summary := DashboardSummary{
		Projects:      len(in.Projects),
		InboxItems:    len(inbox),
		Conversations: in.Conversations,
	}

	// Each partition is deduped on its own, as its list view is
	all := make([]repository.ContentItem, 0, len(inbox))
	all = append(all, inbox...)
	for _, p := range in.Projects {
		all = append(all, DedupeContent(in.Content[p.ID])...)
	}
	summary.Content = CountByCategory(all)

	insights := DedupeInsights(in.Insights)
	summary.Insights = len(insights)
	for _, insight := range insights {
		if insight.IsStarred {
			summary.StarredInsights++
		}
		if insight.IsArchived {
			summary.ArchivedInsights++
		}
	}

	active := FilterInsights(insights, InsightFilter{Archive: ArchiveActive})
	recent := SortInsights(active, SortNewest, defaultLanguage)
	if len(recent) > recentInsightLimit {
		recent = recent[:recentInsightLimit]
	}
	summary.RecentInsights = recent
	return summary
}
