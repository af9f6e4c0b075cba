package export_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sidenote/pkg/core"
	"github.com/aretw0/sidenote/pkg/export"
)

var now = time.Date(2026, 7, 9, 23, 30, 0, 0, time.UTC)

func sample() []core.Note {
	a := core.NewNote("a", now.Add(-time.Hour))
	a.Title = "Groceries"
	a.Content = "<p>milk &amp; eggs</p>"
	a.Tags = []string{"home"}
	a.Favorite = true

	b := core.NewNote("b", now)
	b.Title = "Standup"
	b.Content = "<p>ship it</p>"
	return []core.Note{a, b}
}

func TestParseFormat(t *testing.T) {
	f, err := export.ParseFormat(".MD")
	require.NoError(t, err)
	assert.Equal(t, export.FormatMarkdown, f)

	_, err = export.ParseFormat("pdf")
	assert.Error(t, err)
}

func TestNotes_Text(t *testing.T) {
	out, err := export.Notes(sample(), export.FormatText)
	require.NoError(t, err)
	assert.Equal(t, "Groceries\n\nmilk & eggs\n\n---\n\nStandup\n\nship it\n\n---\n", string(out))
}

func TestNotes_Markdown(t *testing.T) {
	out, err := export.Notes(sample()[:1], export.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "# Groceries\n\nmilk & eggs\n\n---\n", string(out))
}

func TestNote_Single(t *testing.T) {
	n := sample()[0]

	txt, err := export.Note(n, export.FormatText)
	require.NoError(t, err)
	assert.Equal(t, "Groceries\n\nmilk & eggs", string(txt))

	md, err := export.Note(n, export.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "# Groceries\n\n<p>milk &amp; eggs</p>\n\nTags: home", string(md))

	untagged, err := export.Note(sample()[1], export.FormatMarkdown)
	require.NoError(t, err)
	assert.NotContains(t, string(untagged), "Tags:")
}

func TestJSON_RoundTrip(t *testing.T) {
	notes := sample()
	out, err := export.Notes(notes, export.FormatJSON)
	require.NoError(t, err)

	back, err := export.ParseJSON(out, time.Now())
	require.NoError(t, err)
	assert.Equal(t, notes, back)

	single, err := export.Note(notes[1], export.FormatJSON)
	require.NoError(t, err)
	one, err := export.ParseJSON(single, time.Now())
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, notes[1], one[0])
}

func TestParseJSON_AssignsMissingIDs(t *testing.T) {
	notes, err := export.ParseJSON([]byte(`[{"title":"x","content":""}]`), now)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.NotEmpty(t, notes[0].ID)
	assert.Equal(t, now, notes[0].CreatedAt)

	_, err = export.ParseJSON([]byte(`[{"title":1}]`), now)
	assert.ErrorIs(t, err, core.ErrMalformedRecord)
}

func TestFilenames(t *testing.T) {
	assert.Equal(t, "notes-2026-07-09.md", export.BulkFilename(now, export.FormatMarkdown))
	// The date is taken in UTC.
	eastern := time.Date(2026, 7, 10, 1, 0, 0, 0, time.FixedZone("UTC+2", 2*3600))
	assert.Equal(t, "notes-2026-07-09.txt", export.BulkFilename(eastern, export.FormatText))

	assert.Equal(t, "a-b.txt", export.NoteFilename(core.Note{Title: "a/b"}, export.FormatText))
	assert.Equal(t, "Untitled note.json", export.NoteFilename(core.Note{Title: " "}, export.FormatJSON))
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	path, err := export.WriteFile(dir, "notes.txt", []byte("hi"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}
