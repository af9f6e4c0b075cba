// Package export renders notes as text, Markdown or JSON files and reads JSON
// exports back.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/sidenote/pkg/adapters/fs"
	"github.com/aretw0/sidenote/pkg/core"
	"github.com/aretw0/sidenote/pkg/text"
)

// Format is an export file format.
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// Formats lists the supported formats in menu order.
var Formats = []Format{FormatText, FormatMarkdown, FormatJSON}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatText, FormatMarkdown, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string { return string(f) }

const separator = "\n\n---\n"

// Notes renders a bulk export. Text and Markdown use the notes' plain text.
func Notes(notes []core.Note, f Format) ([]byte, error) {
	switch f {
	case FormatText, FormatMarkdown:
		parts := make([]string, 0, len(notes))
		for _, n := range notes {
			heading := n.Title
			if f == FormatMarkdown {
				heading = "# " + n.Title
			}
			parts = append(parts, heading+"\n\n"+text.PlainText(n.Content)+separator)
		}
		return []byte(strings.Join(parts, "\n")), nil
	case FormatJSON:
		records := make([]core.Record, 0, len(notes))
		for _, n := range notes {
			records = append(records, core.Serialize(n))
		}
		return marshalIndent(records)
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
}

// Note renders a single-note export. Markdown keeps the HTML content and
// appends the tags.
func Note(n core.Note, f Format) ([]byte, error) {
	switch f {
	case FormatText:
		return []byte(n.Title + "\n\n" + text.PlainText(n.Content)), nil
	case FormatMarkdown:
		out := "# " + n.Title + "\n\n" + n.Content
		if len(n.Tags) > 0 {
			out += "\n\nTags: " + strings.Join(n.Tags, ", ")
		}
		return []byte(out), nil
	case FormatJSON:
		return marshalIndent(core.Serialize(n))
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
}

func marshalIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return data, nil
}

// BulkFilename returns notes-YYYY-MM-DD.<ext> for the UTC date of now.
func BulkFilename(now time.Time, f Format) string {
	return fmt.Sprintf("notes-%s.%s", now.UTC().Format(time.DateOnly), f.Ext())
}

var unsafeName = strings.NewReplacer("/", "-", "\\", "-", ":", "-", "\x00", "")

// NoteFilename returns <title>.<ext> with path separators replaced.
func NoteFilename(n core.Note, f Format) string {
	name := strings.TrimSpace(unsafeName.Replace(n.DisplayTitle()))
	if name == "" || name == "." || name == ".." {
		name = core.DefaultTitle
	}
	return name + "." + f.Ext()
}

// ParseJSON reads a JSON export, either an array of records or one record.
// Records without an id get a fresh one.
func ParseJSON(data []byte, now time.Time) ([]core.Note, error) {
	trimmed := bytes.TrimSpace(data)
	var items []json.RawMessage
	if len(trimmed) > 0 && trimmed[0] == '{' {
		items = []json.RawMessage{trimmed}
	} else if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("failed to parse export: %w", err)
	}

	notes := make([]core.Note, 0, len(items))
	for i, item := range items {
		n, err := core.UnmarshalNote(core.NoteKey(core.NewID()), item, now)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// WriteFile writes an export into dir atomically and returns its path.
func WriteFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := fs.WriteFileAtomic(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
