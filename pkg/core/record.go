package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout renders ISO-8601 UTC timestamps with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is the storage representation of a note (the value under note_<id>).
type Record struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
	Favorite    bool     `json:"favorite"`
	Archived    bool     `json:"archived,omitempty"`
	Trashed     bool     `json:"trashed,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
	LastSavedAt string   `json:"lastSavedAt,omitempty"`
}

// FormatTimestamp renders t in the wire format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses an ISO-8601 timestamp with or without fractional seconds.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Serialize converts a note to its storage record.
func Serialize(n Note) Record {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return Record{
		ID:          n.ID,
		Title:       n.Title,
		Content:     n.Content,
		Tags:        tags,
		Favorite:    n.Favorite,
		Archived:    n.Archived,
		Trashed:     n.Trashed,
		CreatedAt:   FormatTimestamp(n.CreatedAt),
		UpdatedAt:   FormatTimestamp(n.UpdatedAt),
		LastSavedAt: n.LastSavedAt,
	}
}

// Deserialize converts a storage record back to a note.
// Missing or unparseable timestamps default to now.
func Deserialize(r Record, now time.Time) Note {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return Note{
		ID:          r.ID,
		Title:       r.Title,
		Content:     r.Content,
		Tags:        tags,
		Favorite:    r.Favorite,
		Archived:    r.Archived,
		Trashed:     r.Trashed,
		CreatedAt:   timestampOr(r.CreatedAt, now),
		UpdatedAt:   timestampOr(r.UpdatedAt, now),
		LastSavedAt: r.LastSavedAt,
	}
}

func timestampOr(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback.UTC()
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return fallback.UTC()
	}
	return t
}

// MarshalNote encodes a note as a JSON storage record.
func MarshalNote(n Note) (json.RawMessage, error) {
	data, err := json.Marshal(Serialize(n))
	if err != nil {
		return nil, fmt.Errorf("failed to encode note %s: %w", n.ID, err)
	}
	return data, nil
}

// looseRecord accepts records written by older or foreign clients.
type looseRecord struct {
	ID          string          `json:"id"`
	Title       *string         `json:"title"`
	Content     *string         `json:"content"`
	Tags        json.RawMessage `json:"tags"`
	Favorite    json.RawMessage `json:"favorite"`
	Archived    json.RawMessage `json:"archived"`
	Trashed     json.RawMessage `json:"trashed"`
	CreatedAt   json.RawMessage `json:"createdAt"`
	UpdatedAt   json.RawMessage `json:"updatedAt"`
	LastSavedAt json.RawMessage `json:"lastSavedAt"`
}

// UnmarshalNote decodes the record stored under key.
// Flags that are missing or not booleans decode to false; unusable tags and
// timestamps fall back to empty and now respectively. Records that are not
// objects, or whose title or content are not strings, yield ErrMalformedRecord.
func UnmarshalNote(key string, data []byte, now time.Time) (Note, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Note{}, fmt.Errorf("%w: %s is not an object", ErrMalformedRecord, key)
	}

	var raw looseRecord
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Note{}, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, key, err)
	}

	rec := Record{
		ID:          raw.ID,
		Favorite:    looseBool(raw.Favorite),
		Archived:    looseBool(raw.Archived),
		Trashed:     looseBool(raw.Trashed),
		Tags:        NormalizeTags(looseStrings(raw.Tags)),
		CreatedAt:   looseString(raw.CreatedAt),
		UpdatedAt:   looseString(raw.UpdatedAt),
		LastSavedAt: looseString(raw.LastSavedAt),
	}
	if raw.Title != nil {
		rec.Title = *raw.Title
	}
	if raw.Content != nil {
		rec.Content = *raw.Content
	}
	if rec.ID == "" {
		if id, ok := NoteID(key); ok {
			rec.ID = id
		}
	}
	if rec.ID == "" {
		return Note{}, fmt.Errorf("%w: %s has no id", ErrMalformedRecord, key)
	}

	return Deserialize(rec, now), nil
}

func looseBool(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}

func looseString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func looseStrings(raw json.RawMessage) []string {
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
