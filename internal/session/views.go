// ABOUTME: Derived sidebar views: search, filter, sort, and date grouping
// ABOUTME: Pure transforms over summary lists; membership never changes under sort

package session

import (
	"sort"
	"strings"
	"time"
)

// FilterMode selects the subset of sessions kept by Filter.
type FilterMode string

const (
	FilterAll      FilterMode = "all"
	FilterStarred  FilterMode = "starred"
	FilterToday    FilterMode = "today"
	FilterThisWeek FilterMode = "this_week"
)

// SortKey selects the ordering applied by Sort.
type SortKey string

const (
	SortRecent SortKey = "recent"
	SortOldest SortKey = "oldest"
	SortTitle  SortKey = "title"
)

// Search keeps sessions whose title or any message content contains the
// query, case-insensitively. An empty or whitespace query returns the list
// unchanged. Content matching reads through the registry, not the summary.
func (m *Manager) Search(query string, list []Summary) []Summary {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return list
	}

	var out []Summary
	for _, sum := range list {
		if strings.Contains(strings.ToLower(sum.Title), query) {
			out = append(out, sum)
			continue
		}
		if s, ok := m.sessions[sum.ID]; ok {
			for _, msg := range s.Messages {
				if strings.Contains(strings.ToLower(msg.Content), query) {
					out = append(out, sum)
					break
				}
			}
		}
	}
	return out
}

// Filter keeps the sessions matching mode, judged against now. Unknown modes
// pass the list through unchanged.
func Filter(list []Summary, mode FilterMode, now time.Time) []Summary {
	switch mode {
	case FilterStarred:
		var out []Summary
		for _, s := range list {
			if s.Starred {
				out = append(out, s)
			}
		}
		return out
	case FilterToday:
		today := dateOf(now)
		var out []Summary
		for _, s := range list {
			if dateOf(s.UpdatedAt).Equal(today) {
				out = append(out, s)
			}
		}
		return out
	case FilterThisWeek:
		weekAgo := dateOf(now).AddDate(0, 0, -7)
		var out []Summary
		for _, s := range list {
			if !dateOf(s.UpdatedAt).Before(weekAgo) {
				out = append(out, s)
			}
		}
		return out
	default:
		return list
	}
}

// Sort returns a reordered copy of list. Membership is never changed.
func Sort(list []Summary, key SortKey) []Summary {
	out := append([]Summary(nil), list...)
	switch key {
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		})
	case SortTitle:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		})
	default: // SortRecent
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		})
	}
	return out
}

// Groups partitions a summary list by updated-at date for sidebar display.
type Groups struct {
	Today     []Summary
	Yesterday []Summary
	ThisWeek  []Summary // excluding today and yesterday
	Older     []Summary
}

// Group buckets list against now. Evaluated per render, never cached.
func Group(list []Summary, now time.Time) Groups {
	today := dateOf(now)
	yesterday := today.AddDate(0, 0, -1)
	weekAgo := today.AddDate(0, 0, -7)

	var g Groups
	for _, s := range list {
		switch d := dateOf(s.UpdatedAt); {
		case d.Equal(today):
			g.Today = append(g.Today, s)
		case d.Equal(yesterday):
			g.Yesterday = append(g.Yesterday, s)
		case !d.Before(weekAgo):
			g.ThisWeek = append(g.ThisWeek, s)
		default:
			g.Older = append(g.Older, s)
		}
	}
	return g
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
