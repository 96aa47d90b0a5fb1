// Package views builds derived projections of repository snapshots for list views:
// search, filters, sorting, display-time dedupe and dashboard aggregates.
// Every function is pure and returns a new slice; inputs are never modified.
package views

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"moonscribe/internal/repository"
)

// normalize is the comparison key for search and dedupe: trimmed and case-folded.
// A Caser is stateful, so each call gets its own.
func normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func contains(haystack, needle string) bool {
	return strings.Contains(normalize(haystack), needle)
}

// SearchInsights keeps insights whose title, content, original query or project name
// contains query, ignoring case. An empty query keeps everything.
func SearchInsights(insights []repository.Insight, query string) []repository.Insight {
	q := normalize(query)
	out := make([]repository.Insight, 0, len(insights))
	for _, in := range insights {
		if q == "" || insightMatches(in, q) {
			out = append(out, in)
		}
	}
	return out
}

func insightMatches(in repository.Insight, q string) bool {
	return contains(in.Title, q) ||
		contains(in.OriginalQuery, q) ||
		contains(in.ProjectName, q) ||
		contains(in.Content, q) ||
		contains(PlainText(in.Content), q)
}

// SearchContent keeps items whose title or URL contains query, ignoring case.
func SearchContent(items []repository.ContentItem, query string) []repository.ContentItem {
	q := normalize(query)
	out := make([]repository.ContentItem, 0, len(items))
	for _, item := range items {
		if q == "" || contains(item.Title, q) || contains(item.URL, q) {
			out = append(out, item)
		}
	}
	return out
}

// SearchProjects keeps projects whose name, description or tags contain query.
func SearchProjects(projects []repository.Project, query string) []repository.Project {
	q := normalize(query)
	out := make([]repository.Project, 0, len(projects))
	for _, p := range projects {
		if q == "" || contains(p.Name, q) || contains(p.Description, q) || tagMatches(p.Tags, q) {
			out = append(out, p)
		}
	}
	return out
}

func tagMatches(tags []string, q string) bool {
	for _, tag := range tags {
		if contains(tag, q) {
			return true
		}
	}
	return false
}

// ArchiveMode selects which side of the archive partition a view shows.
type ArchiveMode string

const (
	ArchiveActive   ArchiveMode = "active"
	ArchiveArchived ArchiveMode = "archived"
	ArchiveAll      ArchiveMode = "all"
)

// ParseArchiveMode resolves a mode name. Empty means ArchiveActive.
func ParseArchiveMode(s string) (ArchiveMode, error) {
	switch m := ArchiveMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ArchiveActive, nil
	case ArchiveActive, ArchiveArchived, ArchiveAll:
		return m, nil
	default:
		return "", fmt.Errorf("unknown archive mode %q", s)
	}
}

// InsightFilter is a conjunction of predicates. Zero fields are inactive,
// except Archive, whose zero value shows only non-archived insights.
type InsightFilter struct {
	Query string
	// Tags must all be present on the insight.
	Tags        []string
	ProjectID   string
	StarredOnly bool
	Archive     ArchiveMode
}

// FilterInsights keeps the insights that satisfy every active predicate of f.
func FilterInsights(insights []repository.Insight, f InsightFilter) []repository.Insight {
	q := normalize(f.Query)
	wantTags := make([]string, 0, len(f.Tags))
	for _, tag := range f.Tags {
		if t := normalize(tag); t != "" {
			wantTags = append(wantTags, t)
		}
	}

	out := make([]repository.Insight, 0, len(insights))
	for _, in := range insights {
		if !archiveMatches(in, f.Archive) {
			continue
		}
		if f.StarredOnly && !in.IsStarred {
			continue
		}
		if f.ProjectID != "" && in.ProjectID != f.ProjectID {
			continue
		}
		if !hasAllTags(in.Tags, wantTags) {
			continue
		}
		if q != "" && !insightMatches(in, q) {
			continue
		}
		out = append(out, in)
	}
	return out
}

func archiveMatches(in repository.Insight, mode ArchiveMode) bool {
	switch mode {
	case ArchiveAll:
		return true
	case ArchiveArchived:
		return in.IsArchived
	default:
		return !in.IsArchived
	}
}

func hasAllTags(have []string, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if normalize(h) == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Tags lists the distinct tags across insights in first-seen order.
func Tags(insights []repository.Insight) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, in := range insights {
		for _, tag := range in.Tags {
			key := normalize(tag)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, strings.TrimSpace(tag))
		}
	}
	return out
}
