// Package view keeps the in-memory note list, filters and preferences shown
// by the client consistent with the store.
package view

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/sidenote/pkg/core"
	"github.com/aretw0/sidenote/pkg/editor"
	"github.com/aretw0/sidenote/pkg/export"
	"github.com/aretw0/sidenote/pkg/prefs"
)

// NoteStore is the note persistence the reconciler drives. *core.Service
// implements it.
type NoteStore interface {
	List(ctx context.Context) ([]core.Note, error)
	Get(ctx context.Context, id string) (core.Note, error)
	Save(ctx context.Context, n core.Note) error
	Remove(ctx context.Context, id string) error
	ToggleFavorite(ctx context.Context, id string) error
	Archive(ctx context.Context, id string) error
	Subscribe(ctx context.Context, fn func(core.ChangeSet)) error
}

// PreferenceStore loads and saves preferences. *prefs.Store implements it.
type PreferenceStore interface {
	Load(ctx context.Context) (prefs.Preferences, error)
	Save(ctx context.Context, p prefs.Preferences) error
}

// Snapshot is what a render hook receives.
type Snapshot struct {
	Visible     []core.Note
	Total       int
	Tags        []string
	Filter      core.Filter
	Preferences prefs.Preferences
	ActiveID    string
	Err         error
}

// DefaultDeleteConcurrency bounds the parallel deletes of DeleteAll.
const DefaultDeleteConcurrency = 8

type options struct {
	logger            *slog.Logger
	now               func() time.Time
	editorOptions     []editor.Option
	deleteConcurrency int
}

// Option configures a Reconciler.
type Option func(*options)

// WithLogger sets the logger. Failures never escape the reconciler as
// panics; they are logged and kept as Err.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source for new notes.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithEditorOptions sets the options of every editor session opened.
func WithEditorOptions(opts ...editor.Option) Option {
	return func(o *options) {
		o.editorOptions = append(o.editorOptions, opts...)
	}
}

// WithDeleteConcurrency bounds the number of deletes in flight.
func WithDeleteConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.deleteConcurrency = n
		}
	}
}

// Reconciler owns the client-side view state.
type Reconciler struct {
	store NoteStore
	prefs PreferenceStore
	opts  options

	// issued numbers refreshes; applied is the newest one whose result is shown.
	issued atomic.Uint64

	mu          sync.RWMutex
	ctx         context.Context
	notes       []core.Note
	applied     uint64
	filter      core.Filter
	preferences prefs.Preferences
	active      *editor.Session
	lastErr     error
	listeners   []func(Snapshot)
}

// New creates a reconciler. Call Start to load state and follow the store.
func New(store NoteStore, prefStore PreferenceStore, opts ...Option) *Reconciler {
	o := options{
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:               time.Now,
		deleteConcurrency: DefaultDeleteConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Reconciler{
		store:       store,
		prefs:       prefStore,
		opts:        o,
		ctx:         context.Background(),
		notes:       []core.Note{},
		preferences: prefs.Defaults(),
	}
}

// Start loads preferences and notes, then refreshes on every store change
// until ctx ends. Stores that cannot report changes are tolerated.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	if r.prefs != nil {
		p, err := r.prefs.Load(ctx)
		if err != nil {
			r.opts.logger.Warn("failed to load preferences, using defaults", "error", err)
		}
		r.mu.Lock()
		r.preferences = p
		r.mu.Unlock()
	}

	err := r.Refresh(ctx)

	subErr := r.store.Subscribe(ctx, func(cs core.ChangeSet) {
		r.opts.logger.Debug("store changed", "changes", cs.String())
		_ = r.Refresh(ctx)
	})
	switch {
	case errors.Is(subErr, core.ErrWatchUnsupported):
		r.opts.logger.Info("store does not report changes; refreshing on local actions only")
	case subErr != nil:
		r.opts.logger.Warn("failed to subscribe to store changes", "error", subErr)
	}
	return err
}

// Refresh reloads the full collection. A refresh that completes after a
// newer one has been applied is dropped.
func (r *Reconciler) Refresh(ctx context.Context) error {
	seq := r.issued.Add(1)
	notes, err := r.store.List(ctx)

	r.mu.Lock()
	if seq < r.applied {
		r.mu.Unlock()
		r.opts.logger.Debug("dropping stale refresh", "seq", seq)
		return nil
	}
	if err != nil {
		r.lastErr = err
		r.mu.Unlock()
		r.opts.logger.Error("failed to load notes", "error", err)
		r.notify()
		return err
	}
	r.applied = seq
	r.notes = notes
	r.lastErr = nil
	r.mu.Unlock()

	r.notify()
	return nil
}

// fail records err as the visible error and returns it.
func (r *Reconciler) fail(msg string, err error, args ...any) error {
	r.opts.logger.Error(msg, append(args, "error", err)...)
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
	r.notify()
	return err
}

// Notes returns the full collection, newest first.
func (r *Reconciler) Notes() []core.Note {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.notes)
}

// Visible returns the filtered projection of the collection.
func (r *Reconciler) Visible() []core.Note {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return core.Project(r.notes, r.filter)
}

// Tags returns every tag of the collection.
func (r *Reconciler) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return core.CollectTags(r.notes)
}

// Filter returns the current filter.
func (r *Reconciler) Filter() core.Filter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f := r.filter
	f.Tags = slices.Clone(f.Tags)
	return f
}

// Err returns the last error, cleared by the next successful refresh.
func (r *Reconciler) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// SetQuery sets the search text.
func (r *Reconciler) SetQuery(q string) {
	r.updateFilter(func(f *core.Filter) { f.Query = q })
}

// SetFavoritesOnly restricts the projection to favorites.
func (r *Reconciler) SetFavoritesOnly(on bool) {
	r.updateFilter(func(f *core.Filter) { f.FavoritesOnly = on })
}

// ToggleFavoritesOnly flips the favorites filter.
func (r *Reconciler) ToggleFavoritesOnly() {
	r.updateFilter(func(f *core.Filter) { f.FavoritesOnly = !f.FavoritesOnly })
}

// ToggleTag selects or deselects a tag.
func (r *Reconciler) ToggleTag(tag string) {
	tag = core.NormalizeTag(tag)
	r.updateFilter(func(f *core.Filter) {
		if slices.Contains(f.Tags, tag) {
			f.Tags = core.RemoveTag(f.Tags, tag)
		} else {
			f.Tags = core.AddTag(f.Tags, tag)
		}
	})
}

// SelectTag adds a tag to the selection.
func (r *Reconciler) SelectTag(tag string) {
	r.updateFilter(func(f *core.Filter) { f.Tags = core.AddTag(f.Tags, tag) })
}

// ClearTags empties the tag selection.
func (r *Reconciler) ClearTags() {
	r.updateFilter(func(f *core.Filter) { f.Tags = nil })
}

func (r *Reconciler) updateFilter(mutate func(*core.Filter)) {
	r.mu.Lock()
	mutate(&r.filter)
	r.mu.Unlock()
	r.notify()
}

// CreateNote persists a fresh empty note, refreshes and opens it.
func (r *Reconciler) CreateNote(ctx context.Context) (*editor.Session, error) {
	n := core.NewNote(core.NewID(), r.opts.now())
	if err := r.store.Save(ctx, n); err != nil {
		return nil, r.fail("failed to create note", err, "id", n.ID)
	}
	_ = r.Refresh(ctx)
	return r.openNote(ctx, n)
}

// Open starts an editor session on a stored note, closing the current one.
func (r *Reconciler) Open(ctx context.Context, id string) (*editor.Session, error) {
	n, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, r.fail("failed to open note", err, "id", id)
	}
	return r.openNote(ctx, n)
}

func (r *Reconciler) openNote(ctx context.Context, n core.Note) (*editor.Session, error) {
	if err := r.CloseEditor(ctx); err != nil {
		r.opts.logger.Warn("previous editor closed with unsaved edits", "error", err)
	}

	r.mu.RLock()
	base := r.ctx
	r.mu.RUnlock()

	opts := append(slices.Clone(r.opts.editorOptions),
		editor.WithLogger(r.opts.logger),
		editor.WithOnSave(func(core.Note) { _ = r.Refresh(base) }),
	)
	session := editor.New(base, r.store, n, opts...)

	r.mu.Lock()
	r.active = session
	r.mu.Unlock()
	r.notify()
	return session, nil
}

// Active returns the open editor session, or nil.
func (r *Reconciler) Active() *editor.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// CloseEditor closes the open session according to its flush policy and
// refreshes the list.
func (r *Reconciler) CloseEditor(ctx context.Context) error {
	r.mu.Lock()
	session := r.active
	r.active = nil
	r.mu.Unlock()

	if session == nil {
		return nil
	}
	err := session.Close(ctx)
	if err != nil {
		r.opts.logger.Error("failed to save note on close", "id", session.ID(), "error", err)
	}
	_ = r.Refresh(ctx)
	return err
}

// discardActive drops the session editing one of ids so it cannot resurrect
// a deleted note with a late autosave.
func (r *Reconciler) discardActive(ids ...string) {
	r.mu.Lock()
	session := r.active
	if session == nil || !slices.Contains(ids, session.ID()) {
		r.mu.Unlock()
		return
	}
	r.active = nil
	r.mu.Unlock()
	session.Discard()
}

// DeleteNote removes one note.
func (r *Reconciler) DeleteNote(ctx context.Context, id string) error {
	r.discardActive(id)
	if err := r.store.Remove(ctx, id); err != nil {
		return r.fail("failed to delete note", err, "id", id)
	}
	return r.Refresh(ctx)
}

// ToggleFavorite flips the favorite flag of a note.
func (r *Reconciler) ToggleFavorite(ctx context.Context, id string) error {
	if err := r.store.ToggleFavorite(ctx, id); err != nil {
		return r.fail("failed to toggle favorite", err, "id", id)
	}
	return r.Refresh(ctx)
}

// Archive archives a note.
func (r *Reconciler) Archive(ctx context.Context, id string) error {
	if err := r.store.Archive(ctx, id); err != nil {
		return r.fail("failed to archive note", err, "id", id)
	}
	return r.Refresh(ctx)
}

// DeleteAll removes every note of the collection.
func (r *Reconciler) DeleteAll(ctx context.Context) error {
	return r.deleteMany(ctx, r.Notes())
}

// DeleteVisible removes the notes of the current projection.
func (r *Reconciler) DeleteVisible(ctx context.Context) error {
	return r.deleteMany(ctx, r.Visible())
}

// deleteMany issues the deletes concurrently and waits for all of them to
// settle before refreshing, so the list never shows a half-deleted state.
func (r *Reconciler) deleteMany(ctx context.Context, notes []core.Note) error {
	ids := make([]string, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}
	r.discardActive(ids...)

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(r.opts.deleteConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := r.store.Remove(ctx, id); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	refreshErr := r.Refresh(ctx)
	if err := errors.Join(errs...); err != nil {
		return r.fail("failed to delete notes", err, "failed", len(errs), "total", len(ids))
	}
	r.opts.logger.Debug("notes deleted", "count", len(ids))
	return refreshErr
}

// Export renders the whole collection in format f and suggests a filename.
func (r *Reconciler) Export(f export.Format, now time.Time) ([]byte, string, error) {
	data, err := export.Notes(r.Notes(), f)
	if err != nil {
		return nil, "", r.fail("failed to export notes", err)
	}
	return data, export.BulkFilename(now, f), nil
}

// Preferences returns the current preferences.
func (r *Reconciler) Preferences() prefs.Preferences {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.preferences
}

// SetDarkMode persists the dark mode preference.
func (r *Reconciler) SetDarkMode(ctx context.Context, on bool) error {
	return r.updatePreferences(ctx, func(p *prefs.Preferences) { p.DarkMode = on })
}

// ToggleDarkMode flips the dark mode preference.
func (r *Reconciler) ToggleDarkMode(ctx context.Context) error {
	return r.updatePreferences(ctx, func(p *prefs.Preferences) { p.DarkMode = !p.DarkMode })
}

// SetLocale persists the interface locale.
func (r *Reconciler) SetLocale(ctx context.Context, locale string) error {
	return r.updatePreferences(ctx, func(p *prefs.Preferences) { p.Locale = locale })
}

func (r *Reconciler) updatePreferences(ctx context.Context, mutate func(*prefs.Preferences)) error {
	r.mu.RLock()
	p := r.preferences
	r.mu.RUnlock()
	mutate(&p)

	if r.prefs != nil {
		if err := r.prefs.Save(ctx, p); err != nil {
			return r.fail("failed to save preferences", err)
		}
	}

	r.mu.Lock()
	r.preferences = p
	r.mu.Unlock()
	r.notify()
	return nil
}

// OnChange registers a render hook called after every state change.
func (r *Reconciler) OnChange(fn func(Snapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Snapshot returns the current render state.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Reconciler) snapshotLocked() Snapshot {
	f := r.filter
	f.Tags = slices.Clone(f.Tags)
	s := Snapshot{
		Visible:     core.Project(r.notes, r.filter),
		Total:       len(r.notes),
		Tags:        core.CollectTags(r.notes),
		Filter:      f,
		Preferences: r.preferences,
		Err:         r.lastErr,
	}
	if r.active != nil {
		s.ActiveID = r.active.ID()
	}
	return s
}

func (r *Reconciler) notify() {
	r.mu.RLock()
	listeners := slices.Clone(r.listeners)
	var snap Snapshot
	if len(listeners) > 0 {
		snap = r.snapshotLocked()
	}
	r.mu.RUnlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
