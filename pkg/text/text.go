// Package text derives plain text, counts and time labels from note content.
package text

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"golang.org/x/net/html"
)

// WordsPerMinute is the reading speed used for reading-time estimates.
const WordsPerMinute = 200

// SavedAtLayout renders the "last saved" label.
const SavedAtLayout = "15:04"

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "figcaption": true, "figure": true,
	"footer": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "ol": true, "p": true, "pre": true,
	"section": true, "table": true, "tr": true, "ul": true,
}

// PlainText returns the text content of an HTML fragment. Entities are
// decoded, script and style bodies dropped, and block boundaries become
// single newlines.
func PlainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skip := 0

	newline := func() {
		s := b.String()
		if s != "" && !strings.HasSuffix(s, "\n") {
			b.WriteByte('\n')
		}
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF; a strings.Reader has no other failure mode.
			return strings.TrimSpace(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			switch {
			case tag == "script" || tag == "style":
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
			case blockTags[tag]:
				newline()
			}
		}
	}
}

// CountWords counts whitespace-delimited tokens.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// CountCharacters counts runes.
func CountCharacters(s string) int {
	return utf8.RuneCountInString(s)
}

// Counts holds the statistics shown under the editor.
type Counts struct {
	Words      int
	Characters int
}

// Stats computes the counts of an HTML fragment's text.
func Stats(fragment string) Counts {
	plain := PlainText(fragment)
	return Counts{Words: CountWords(plain), Characters: CountCharacters(plain)}
}

// FormatCount abbreviates large counts: 1200 → "1.2k", 3400000 → "3.4M".
func FormatCount(n int) string {
	switch {
	case n >= 1_000_000:
		return strconv.FormatFloat(float64(n)/1_000_000, 'f', 1, 64) + "M"
	case n >= 1_000:
		return strconv.FormatFloat(float64(n)/1_000, 'f', 1, 64) + "k"
	default:
		return strconv.Itoa(n)
	}
}

// Compact renders "123c 45w".
func (c Counts) Compact() string {
	return FormatCount(c.Characters) + "c " + FormatCount(c.Words) + "w"
}

// Detailed renders "123 characters, 45 words".
func (c Counts) Detailed() string {
	return fmt.Sprintf("%d %s, %d %s",
		c.Characters, plural(c.Characters, "character", "characters"),
		c.Words, plural(c.Words, "word", "words"))
}

// ReadingMinutes estimates reading time, rounded up.
func (c Counts) ReadingMinutes() int {
	return int(math.Ceil(float64(c.Words) / WordsPerMinute))
}

// Tooltip renders the detailed counts plus the reading time estimate.
func (c Counts) Tooltip() string {
	reading := "less than a minute"
	if m := c.ReadingMinutes(); m > 1 {
		reading = fmt.Sprintf("about %d minutes", m)
	}
	return c.Detailed() + "\nEstimated reading time: " + reading
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// TimeAgo renders t relative to now, e.g. "3 minutes ago".
func TimeAgo(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// SavedAtLabel renders the "last saved" clock label in t's location.
func SavedAtLabel(t time.Time) string {
	return t.Format(SavedAtLayout)
}
