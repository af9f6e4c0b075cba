package core

import (
	"cmp"
	"slices"
	"strings"
)

// SortOrder selects the direction of a recency sort.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// SortByRecency returns a copy of notes ordered by UpdatedAt.
// Ties are broken by ID so the order is deterministic.
func SortByRecency(notes []Note, order SortOrder) []Note {
	out := slices.Clone(notes)
	slices.SortStableFunc(out, func(a, b Note) int {
		c := a.UpdatedAt.Compare(b.UpdatedAt)
		if order != SortOldest {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Filter describes the user-selected projection of the note list.
type Filter struct {
	Query         string
	FavoritesOnly bool
	Tags          []string // Selected tags, matched with OR semantics.
}

// Match reports whether n passes the text, favorites and tag filters.
func (f Filter) Match(n Note) bool {
	if q := strings.ToLower(f.Query); q != "" {
		if !strings.Contains(strings.ToLower(n.Title), q) &&
			!strings.Contains(strings.ToLower(n.Content), q) {
			return false
		}
	}
	if f.FavoritesOnly && !n.Favorite {
		return false
	}
	if len(f.Tags) > 0 && !n.HasAnyTag(f.Tags) {
		return false
	}
	return true
}

// Project filters notes with f and sorts the result newest-updated first.
// The input slice is left untouched.
func Project(notes []Note, f Filter) []Note {
	matched := make([]Note, 0, len(notes))
	for _, n := range notes {
		if f.Match(n) {
			matched = append(matched, n)
		}
	}
	return SortByRecency(matched, SortNewest)
}

// CollectTags returns the sorted, deduplicated union of all tags.
func CollectTags(notes []Note) []string {
	seen := make(map[string]struct{})
	for _, n := range notes {
		for _, t := range n.Tags {
			seen[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	slices.Sort(tags)
	return tags
}
