// Package editor implements the per-note editing session: it buffers edits,
// autosaves them after a quiet period and tracks the transient UI flags.
package editor

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/sidenote/pkg/core"
	"github.com/aretw0/sidenote/pkg/export"
	"github.com/aretw0/sidenote/pkg/text"
)

// State is the save state of a session.
type State int

const (
	StateClean State = iota
	StateDirty
	StateSaving
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateSaving:
		return "saving"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Saver persists notes. *core.Service implements it.
type Saver interface {
	Save(ctx context.Context, n core.Note) error
}

// Session edits one note. It owns a single debounce timer: every edit
// restarts it, and only the timer of the latest edit may save.
type Session struct {
	saver  Saver
	opts   options
	ctx    context.Context
	cancel context.CancelFunc

	// saveMu orders saves so an older snapshot never lands after a newer one.
	saveMu sync.Mutex

	mu        sync.Mutex
	note      core.Note // last saved (or opened) version
	title     string
	content   string
	tags      []string
	counts    text.Counts
	state     State
	gen       uint64
	timer     *time.Timer
	saved     bool
	savedGen  uint64
	copied    bool
	copiedGen uint64
	closed    bool
	lastErr   error

	widget RichText
	handle Handle
}

// New opens a session on n. Background saves run under ctx.
func New(ctx context.Context, saver Saver, n core.Note, opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	sctx, cancel := context.WithCancel(ctx)

	n = n.Clone()
	return &Session{
		saver:   saver,
		opts:    o,
		ctx:     sctx,
		cancel:  cancel,
		note:    n,
		title:   n.Title,
		content: n.Content,
		tags:    slices.Clone(n.Tags),
		counts:  text.Stats(n.Content),
	}
}

// ID returns the id of the edited note.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.note.ID
}

// SetTitle replaces the title.
func (s *Session) SetTitle(title string) {
	s.edit(func() bool {
		if title == s.title {
			return false
		}
		s.title = title
		return true
	})
}

// SetContent replaces the HTML content and recomputes the counts.
func (s *Session) SetContent(html string) {
	s.edit(func() bool {
		if html == s.content {
			return false
		}
		s.content = html
		s.counts = text.Stats(html)
		return true
	})
}

// SetTags replaces the tag list, normalizing it.
func (s *Session) SetTags(tags []string) {
	normalized := core.NormalizeTags(tags)
	s.edit(func() bool {
		if slices.Equal(normalized, s.tags) {
			return false
		}
		s.tags = normalized
		return true
	})
}

// AddTag adds a tag. Empty and duplicate tags are ignored.
func (s *Session) AddTag(tag string) {
	s.edit(func() bool {
		next := core.AddTag(s.tags, tag)
		if len(next) == len(s.tags) {
			return false
		}
		s.tags = next
		return true
	})
}

// RemoveTag removes a tag.
func (s *Session) RemoveTag(tag string) {
	s.edit(func() bool {
		next := core.RemoveTag(s.tags, tag)
		if len(next) == len(s.tags) {
			return false
		}
		s.tags = next
		return true
	})
}

// edit applies mutate and, when it changed something, marks the session
// dirty and restarts the autosave timer.
func (s *Session) edit(mutate func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.opts.logger.Debug("edit ignored on closed session", "id", s.note.ID)
		return
	}
	if !mutate() {
		return
	}

	s.state = StateDirty
	s.saved = false
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.opts.debounce, func() {
		s.autosave(gen)
	})
}

func (s *Session) autosave(gen uint64) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if gen != s.gen || s.closed || s.state != StateDirty {
		s.mu.Unlock()
		return
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	err := s.saver.Save(s.ctx, snapshot)
	s.finish(gen, snapshot, err)
}

// Flush saves pending edits now.
func (s *Session) Flush(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.state != StateDirty {
		s.mu.Unlock()
		return nil
	}
	gen := s.gen
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	err := s.saver.Save(ctx, snapshot)
	s.finish(gen, snapshot, err)
	if err != nil {
		return fmt.Errorf("failed to save note %s: %w", snapshot.ID, err)
	}
	return nil
}

// snapshotLocked builds the note to persist. Callers hold s.mu.
func (s *Session) snapshotLocked() core.Note {
	now := s.opts.now()
	n := s.note.Clone()
	n.Title = s.title
	n.Content = s.content
	n.Tags = slices.Clone(s.tags)
	n.UpdatedAt = now
	n.LastSavedAt = text.SavedAtLabel(now)
	s.state = StateSaving
	return n
}

func (s *Session) finish(gen uint64, snapshot core.Note, err error) {
	s.mu.Lock()

	if err != nil {
		s.opts.logger.Error("failed to save note", "id", snapshot.ID, "error", err)
		s.lastErr = err
		s.state = StateDirty
		s.mu.Unlock()
		return
	}

	s.note = snapshot
	s.lastErr = nil
	if gen == s.gen {
		s.state = StateClean
		s.saved = true
		s.savedGen++
		flashGen := s.savedGen
		time.AfterFunc(s.opts.flash, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.savedGen == flashGen {
				s.saved = false
			}
		})
	} else {
		// A newer edit arrived while saving; its own timer is pending.
		s.state = StateDirty
	}
	onSave := s.opts.onSave
	s.mu.Unlock()

	s.opts.logger.Debug("note saved", "id", snapshot.ID)
	if onSave != nil {
		onSave(snapshot.Clone())
	}
}

// Close ends the session. Pending edits are saved first unless the session
// was built WithFlushOnClose(false).
func (s *Session) Close(ctx context.Context) error {
	var err error
	if s.opts.flushOnClose {
		err = s.Flush(ctx)
	}
	s.shutdown()
	return err
}

// Discard ends the session and drops pending edits. A save already in
// flight sees the cancelled session context and is refused by the store.
func (s *Session) Discard() {
	s.shutdown()
}

func (s *Session) shutdown() {
	s.mu.Lock()
	s.closed = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.cancel()
}

// Copy places "title\n\ntext" on the clipboard.
func (s *Session) Copy() error {
	s.mu.Lock()
	payload := s.title + "\n\n" + text.PlainText(s.content)
	id := s.note.ID
	s.mu.Unlock()

	if err := s.opts.clipboard.WriteAll(payload); err != nil {
		s.opts.logger.Error("failed to copy note", "id", id, "error", err)
		return fmt.Errorf("failed to copy note %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.copied = true
	s.copiedGen++
	flashGen := s.copiedGen
	time.AfterFunc(s.opts.flash, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.copiedGen == flashGen {
			s.copied = false
		}
	})
	return nil
}

// Export renders the working copy of the note and suggests a filename.
func (s *Session) Export(f export.Format) ([]byte, string, error) {
	n := s.Note()
	data, err := export.Note(n, f)
	if err != nil {
		return nil, "", err
	}
	return data, export.NoteFilename(n, f), nil
}

// Attach renders the content into w and routes its changes to SetContent.
func (s *Session) Attach(w RichText) {
	s.mu.Lock()
	content := s.content
	s.mu.Unlock()

	h := w.Render(content)
	w.OnChange(h, s.SetContent)
	w.Focus(h)

	s.mu.Lock()
	s.widget = w
	s.handle = h
	s.mu.Unlock()
}

// InsertAtCursor inserts text (e.g. an emoji) at the widget cursor. Without
// an attached widget the text is appended to the content.
func (s *Session) InsertAtCursor(txt string) {
	s.mu.Lock()
	w, h, content := s.widget, s.handle, s.content
	s.mu.Unlock()

	if w != nil {
		w.InsertAtCursor(h, txt)
		return
	}
	s.SetContent(content + txt)
}

// Note returns the working copy: the saved note with the pending edits applied.
func (s *Session) Note() core.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.note.Clone()
	n.Title = s.title
	n.Content = s.content
	n.Tags = slices.Clone(s.tags)
	return n
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

func (s *Session) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

func (s *Session) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tags)
}

func (s *Session) Counts() text.Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

// CountLabel is the compact "123c 45w" label.
func (s *Session) CountLabel() string {
	return s.Counts().Compact()
}

// Saved reports whether the "saved" badge is showing.
func (s *Session) Saved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

// Copied reports whether the "copied" badge is showing.
func (s *Session) Copied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copied
}

func (s *Session) LastSavedAt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.note.LastSavedAt
}

// TimeAgo renders the last update relative to now.
func (s *Session) TimeAgo(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return text.TimeAgo(s.note.UpdatedAt, now)
}

// Err returns the error of the last failed save, cleared by the next success.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
