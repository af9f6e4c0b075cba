package core

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is shown for notes whose title is blank.
const DefaultTitle = "Untitled note"

// Note is the central entity of the domain.
type Note struct {
	ID      string
	Title   string
	Content string   // Rich text serialized as HTML. Opaque to storage.
	Tags    []string // Lowercase, no duplicates, display order preserved.

	Favorite bool
	// Archived and Trashed are persisted but no flow filters on them yet.
	Archived bool
	Trashed  bool

	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastSavedAt string // UI label of the last autosave, not used for ordering.
}

// NewID returns a fresh note identifier.
func NewID() string {
	return uuid.NewString()
}

// NewNote builds an empty placeholder note.
func NewNote(id string, now time.Time) Note {
	return Note{
		ID:        id,
		Title:     DefaultTitle,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DisplayTitle returns the title, or DefaultTitle when it is blank.
func (n Note) DisplayTitle() string {
	if strings.TrimSpace(n.Title) == "" {
		return DefaultTitle
	}
	return n.Title
}

// Clone returns a copy that shares no slice with n.
func (n Note) Clone() Note {
	n.Tags = slices.Clone(n.Tags)
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return n
}

// HasTag reports whether the note carries tag (case-insensitive).
func (n Note) HasTag(tag string) bool {
	return slices.Contains(n.Tags, NormalizeTag(tag))
}

// HasAnyTag reports whether the note carries at least one of tags.
func (n Note) HasAnyTag(tags []string) bool {
	for _, t := range tags {
		if n.HasTag(t) {
			return true
		}
	}
	return false
}

// NormalizeTag trims and case-folds a tag.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// AddTag appends tag to tags unless it is empty or already present.
// The input slice is not modified.
func AddTag(tags []string, tag string) []string {
	clean := NormalizeTag(tag)
	out := slices.Clone(tags)
	if out == nil {
		out = []string{}
	}
	if clean == "" || slices.Contains(out, clean) {
		return out
	}
	return append(out, clean)
}

// RemoveTag returns tags without tag. The input slice is not modified.
func RemoveTag(tags []string, tag string) []string {
	clean := NormalizeTag(tag)
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != clean {
			out = append(out, t)
		}
	}
	return out
}

// NormalizeTags case-folds and deduplicates tags, keeping first occurrences.
func NormalizeTags(tags []string) []string {
	out := []string{}
	for _, t := range tags {
		out = AddTag(out, t)
	}
	return out
}
