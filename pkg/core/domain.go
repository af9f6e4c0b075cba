// Package core holds the note entity, the storage ports and the storage service.
package core

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Storage areas exposed by the host.
const (
	AreaSync  = "sync"
	AreaLocal = "local"
)

// NotePrefix namespaces note records inside a storage area.
const NotePrefix = "note_"

// NoteKey returns the storage key of the note with the given ID.
func NoteKey(id string) string {
	return NotePrefix + id
}

// IsNoteKey reports whether key belongs to the note namespace.
func IsNoteKey(key string) bool {
	return strings.HasPrefix(key, NotePrefix) && len(key) > len(NotePrefix)
}

// NoteID extracts the note ID from a storage key.
func NoteID(key string) (string, bool) {
	if !IsNoteKey(key) {
		return "", false
	}
	return strings.TrimPrefix(key, NotePrefix), true
}

// ChangeKind classifies a single key transition.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeUpdated ChangeKind = "updated"
	ChangeRemoved ChangeKind = "removed"
)

// Change carries the old and new value of a key. A nil OldValue means the key
// was added, a nil NewValue means it was removed.
type Change struct {
	OldValue json.RawMessage `json:"oldValue,omitempty"`
	NewValue json.RawMessage `json:"newValue,omitempty"`
}

// Kind derives the transition type from the presence of values.
func (c Change) Kind() ChangeKind {
	switch {
	case c.OldValue == nil:
		return ChangeAdded
	case c.NewValue == nil:
		return ChangeRemoved
	default:
		return ChangeUpdated
	}
}

// ChangeSet is a batch of key changes reported by a storage area.
// Consumers should treat it as an invalidation signal.
type ChangeSet struct {
	Area      string            `json:"area"`
	Changes   map[string]Change `json:"changes"`
	Timestamp int64             `json:"timestamp"` // Unix milliseconds
}

// NewChangeSet creates an empty change set for the given area stamped with now.
func NewChangeSet(area string) ChangeSet {
	return ChangeSet{
		Area:      area,
		Changes:   make(map[string]Change),
		Timestamp: time.Now().UnixMilli(),
	}
}

// Keys returns the changed keys in lexical order.
func (cs ChangeSet) Keys() []string {
	keys := make([]string, 0, len(cs.Changes))
	for k := range cs.Changes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Empty reports whether the set carries no change.
func (cs ChangeSet) Empty() bool {
	return len(cs.Changes) == 0
}

// Filter returns a copy of the set holding only the keys accepted by keep.
func (cs ChangeSet) Filter(keep func(key string) bool) ChangeSet {
	out := ChangeSet{
		Area:      cs.Area,
		Changes:   make(map[string]Change, len(cs.Changes)),
		Timestamp: cs.Timestamp,
	}
	for k, c := range cs.Changes {
		if keep(k) {
			out.Changes[k] = c
		}
	}
	return out
}

// String implements lifecycle.Event.
func (cs ChangeSet) String() string {
	parts := make([]string, 0, len(cs.Changes))
	for _, k := range cs.Keys() {
		parts = append(parts, fmt.Sprintf("%s:%s", cs.Changes[k].Kind(), k))
	}
	return fmt.Sprintf("[%s] %s", cs.Area, strings.Join(parts, " "))
}

type contextKey string

// ChangeReasonKey is the context key for passing a change reason (commit message) to versioned areas.
const ChangeReasonKey contextKey = "change_reason"
