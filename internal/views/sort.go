package views

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"moonscribe/internal/repository"
)

// SortOrder is a list ordering.
type SortOrder string

const (
	SortNewest       SortOrder = "newest"
	SortOldest       SortOrder = "oldest"
	SortAlphabetical SortOrder = "alphabetical"
	// SortByProject groups by project name; unassigned items come last.
	SortByProject SortOrder = "project"
	// SortRecentlyUpdated orders projects by last change. Other lists treat it as newest.
	SortRecentlyUpdated SortOrder = "updated"
)

// ParseSortOrder resolves an order name. Empty means SortNewest.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return SortNewest, nil
	case SortNewest, SortOldest, SortAlphabetical, SortByProject, SortRecentlyUpdated:
		return o, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

var defaultLanguage = language.English

var languages = language.NewMatcher(collate.Supported())

// LanguageFromHeader picks the collation language for an Accept-Language header value.
func LanguageFromHeader(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return defaultLanguage
	}
	tag, _, _ := languages.Match(tags...)
	return tag
}

func newCollator(tag language.Tag) *collate.Collator {
	return collate.New(tag, collate.IgnoreCase)
}

// SortInsights returns insights in the given order. Alphabetical and project orders
// compare with the collation rules of tag. The sort is stable.
func SortInsights(insights []repository.Insight, order SortOrder, tag language.Tag) []repository.Insight {
	out := slices.Clone(insights)
	col := newCollator(tag)

	switch order {
	case SortOldest:
		slices.SortStableFunc(out, func(a, b repository.Insight) int {
			return a.CreatedAt.Compare(b.CreatedAt.Time)
		})
	case SortAlphabetical:
		slices.SortStableFunc(out, func(a, b repository.Insight) int {
			return col.CompareString(a.Title, b.Title)
		})
	case SortByProject:
		slices.SortStableFunc(out, func(a, b repository.Insight) int {
			switch {
			case a.ProjectName == "" && b.ProjectName == "":
				return 0
			case a.ProjectName == "":
				return 1
			case b.ProjectName == "":
				return -1
			}
			return col.CompareString(a.ProjectName, b.ProjectName)
		})
	default:
		slices.SortStableFunc(out, func(a, b repository.Insight) int {
			return b.CreatedAt.Compare(a.CreatedAt.Time)
		})
	}
	return out
}

// SortContent returns content items in the given order. SortByProject is treated as newest.
func SortContent(items []repository.ContentItem, order SortOrder, tag language.Tag) []repository.ContentItem {
	out := slices.Clone(items)

	switch order {
	case SortOldest:
		slices.SortStableFunc(out, func(a, b repository.ContentItem) int {
			return a.AddedAt.Compare(b.AddedAt.Time)
		})
	case SortAlphabetical:
		col := newCollator(tag)
		slices.SortStableFunc(out, func(a, b repository.ContentItem) int {
			return col.CompareString(a.Title, b.Title)
		})
	default:
		slices.SortStableFunc(out, func(a, b repository.ContentItem) int {
			return b.AddedAt.Compare(a.AddedAt.Time)
		})
	}
	return out
}

// SortProjects returns projects in the given order. Newest and oldest use CreatedAt.
func SortProjects(projects []repository.Project, order SortOrder, tag language.Tag) []repository.Project {
	out := slices.Clone(projects)

	switch order {
	case SortOldest:
		slices.SortStableFunc(out, func(a, b repository.Project) int {
			return a.CreatedAt.Compare(b.CreatedAt.Time)
		})
	case SortRecentlyUpdated:
		slices.SortStableFunc(out, func(a, b repository.Project) int {
			return b.UpdatedAt.Compare(a.UpdatedAt.Time)
		})
	case SortAlphabetical, SortByProject:
		col := newCollator(tag)
		slices.SortStableFunc(out, func(a, b repository.Project) int {
			return col.CompareString(a.Name, b.Name)
		})
	default:
		slices.SortStableFunc(out, func(a, b repository.Project) int {
			return b.CreatedAt.Compare(a.CreatedAt.Time)
		})
	}
	return out
}
