package core_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sidenote/pkg/core"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func TestRecord_RoundTrip(t *testing.T) {
	n := core.Note{
		ID:          "abc",
		Title:       "Groceries",
		Content:     "<p>milk</p>",
		Tags:        []string{"home", "todo"},
		Favorite:    true,
		Archived:    true,
		CreatedAt:   fixedNow.Add(-time.Hour),
		UpdatedAt:   fixedNow,
		LastSavedAt: "09:26",
	}

	data, err := core.MarshalNote(n)
	require.NoError(t, err)

	got, err := core.UnmarshalNote(core.NoteKey("abc"), data, time.Now())
	require.NoError(t, err)
	assert.Equal(t, n, got)
}

func TestRecord_WireFormat(t *testing.T) {
	n := core.NewNote("abc", fixedNow)
	data, err := core.MarshalNote(n)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": "abc",
		"title": "Untitled note",
		"content": "",
		"tags": [],
		"favorite": false,
		"createdAt": "2026-03-14T09:26:53.589Z",
		"updatedAt": "2026-03-14T09:26:53.589Z"
	}`, string(data))
}

func TestUnmarshalNote_Lenient(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, n core.Note)
	}{
		{
			name:  "missing flags decode false",
			input: `{"id":"x","title":"t","content":""}`,
			check: func(t *testing.T, n core.Note) {
				assert.False(t, n.Favorite)
				assert.False(t, n.Archived)
				assert.Equal(t, []string{}, n.Tags)
			},
		},
		{
			name:  "non boolean favorite decodes false",
			input: `{"id":"x","title":"t","content":"","favorite":"yes"}`,
			check: func(t *testing.T, n core.Note) {
				assert.False(t, n.Favorite)
			},
		},
		{
			name:  "bad timestamps default to now",
			input: `{"id":"x","title":"t","content":"","createdAt":"yesterday","updatedAt":42}`,
			check: func(t *testing.T, n core.Note) {
				assert.Equal(t, fixedNow, n.CreatedAt)
				assert.Equal(t, fixedNow, n.UpdatedAt)
			},
		},
		{
			name:  "timestamps without milliseconds",
			input: `{"id":"x","title":"t","content":"","updatedAt":"2025-01-02T03:04:05Z"}`,
			check: func(t *testing.T, n core.Note) {
				assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), n.UpdatedAt)
			},
		},
		{
			name:  "id falls back to key",
			input: `{"title":"t","content":""}`,
			check: func(t *testing.T, n core.Note) {
				assert.Equal(t, "fromkey", n.ID)
			},
		},
		{
			name:  "non string tags dropped",
			input: `{"id":"x","title":"t","content":"","tags":["a",1,null,"b"]}`,
			check: func(t *testing.T, n core.Note) {
				assert.Equal(t, []string{"a", "b"}, n.Tags)
			},
		},
		{
			name:  "tags folded and deduplicated",
			input: `{"id":"x","title":"t","content":"","tags":["Work"," work ","Home",""]}`,
			check: func(t *testing.T, n core.Note) {
				assert.Equal(t, []string{"work", "home"}, n.Tags)
				assert.True(t, core.Filter{Tags: []string{"work"}}.Match(n))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := core.UnmarshalNote("note_fromkey", json.RawMessage(tt.input), fixedNow)
			require.NoError(t, err)
			tt.check(t, n)
		})
	}
}

func TestUnmarshalNote_Malformed(t *testing.T) {
	inputs := []string{
		`"just a string"`,
		`[1,2,3]`,
		`null`,
		`{"id":"x","title":5,"content":""}`,
		`{"id":"x","title":"t","content":{"ops":[]}}`,
		`{broken`,
	}
	for _, in := range inputs {
		_, err := core.UnmarshalNote("note_x", json.RawMessage(in), fixedNow)
		assert.ErrorIs(t, err, core.ErrMalformedRecord, in)
	}
}

func TestNoteKey(t *testing.T) {
	assert.Equal(t, "note_42", core.NoteKey("42"))
	assert.True(t, core.IsNoteKey("note_42"))
	assert.False(t, core.IsNoteKey("note_"))
	assert.False(t, core.IsNoteKey("darkMode"))

	id, ok := core.NoteID("note_42")
	assert.True(t, ok)
	assert.Equal(t, "42", id)
}
