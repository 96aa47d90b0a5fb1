package views

import "moonscribe/internal/repository"

// DedupeInsights drops insights whose normalized content repeats an earlier insight in
// the same project. The first one in stored order is kept. Stored data is not touched.
func DedupeInsights(insights []repository.Insight) []repository.Insight {
	type key struct {
		projectID string
		content   string
	}

	seen := make(map[key]bool, len(insights))
	out := make([]repository.Insight, 0, len(insights))
	for _, in := range insights {
		k := key{projectID: in.ProjectID, content: normalize(in.Content)}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, in)
	}
	return out
}

// DedupeContent drops content items whose normalized title repeats an earlier item.
// Untitled items are always kept.
func DedupeContent(items []repository.ContentItem) []repository.ContentItem {
	seen := make(map[string]bool, len(items))
	out := make([]repository.ContentItem, 0, len(items))
	for _, item := range items {
		k := normalize(item.Title)
		if k != "" && seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, item)
	}
	return out
}
