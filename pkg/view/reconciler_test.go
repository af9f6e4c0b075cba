package view_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sidenote/pkg/adapters/memory"
	"github.com/aretw0/sidenote/pkg/core"
	"github.com/aretw0/sidenote/pkg/editor"
	"github.com/aretw0/sidenote/pkg/export"
	"github.com/aretw0/sidenote/pkg/prefs"
	"github.com/aretw0/sidenote/pkg/view"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

type fixture struct {
	svc   *core.Service
	area  *memory.Area
	local *memory.Area
	r     *view.Reconciler
}

func setup(t *testing.T, opts ...view.Option) fixture {
	t.Helper()
	area := memory.New(core.AreaSync)
	local := memory.New(core.AreaLocal)
	svc := core.NewService(area)
	opts = append([]view.Option{
		view.WithEditorOptions(editor.WithDebounce(10 * time.Millisecond)),
	}, opts...)
	r := view.New(svc, prefs.NewStore(local), opts...)
	return fixture{svc: svc, area: area, local: local, r: r}
}

func seed(t *testing.T, svc *core.Service, notes ...core.Note) {
	t.Helper()
	for _, n := range notes {
		require.NoError(t, svc.Save(context.Background(), n))
	}
}

func note(id string, age time.Duration, mutate ...func(*core.Note)) core.Note {
	n := core.NewNote(id, fixedNow.Add(-age))
	n.Title = "note " + id
	for _, m := range mutate {
		m(&n)
	}
	return n
}

func ids(notes []core.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

func TestReconciler_StartLoadsNotesAndPreferences(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := setup(t)
	seed(t, f.svc, note("old", time.Hour), note("new", time.Minute))
	require.NoError(t, prefs.NewStore(f.local).Save(ctx, prefs.Preferences{DarkMode: true, Locale: "pt-BR"}))

	require.NoError(t, f.r.Start(ctx))

	assert.Equal(t, []string{"new", "old"}, ids(f.r.Notes()))
	assert.Equal(t, prefs.Preferences{DarkMode: true, Locale: "pt-BR"}, f.r.Preferences())
	assert.NoError(t, f.r.Err())
}

func TestReconciler_RefreshesOnExternalChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := setup(t)
	require.NoError(t, f.r.Start(ctx))
	require.Empty(t, f.r.Notes())

	// Another device writes straight to the area.
	data, err := core.MarshalNote(note("remote", 0))
	require.NoError(t, err)
	require.NoError(t, f.area.Set(ctx, map[string]json.RawMessage{core.NoteKey("remote"): data}))

	assert.Eventually(t, func() bool {
		return len(f.r.Notes()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestReconciler_FilterProjection(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	seed(t, f.svc,
		note("a", 3*time.Minute, func(n *core.Note) { n.Tags = []string{"work"}; n.Favorite = true }),
		note("b", 2*time.Minute, func(n *core.Note) { n.Tags = []string{"home"} }),
		note("c", time.Minute, func(n *core.Note) { n.Content = "<p>groceries</p>" }),
	)
	require.NoError(t, f.r.Refresh(ctx))

	var snaps []view.Snapshot
	f.r.OnChange(func(s view.Snapshot) { snaps = append(snaps, s) })

	assert.Equal(t, []string{"home", "work"}, f.r.Tags())

	f.r.ToggleTag("work")
	assert.Equal(t, []string{"a"}, ids(f.r.Visible()))
	f.r.ToggleTag("home")
	assert.Equal(t, []string{"b", "a"}, ids(f.r.Visible()))
	f.r.ToggleTag("home")
	assert.Equal(t, []string{"a"}, ids(f.r.Visible()))
	f.r.ClearTags()

	f.r.SetQuery("GROCER")
	assert.Equal(t, []string{"c"}, ids(f.r.Visible()))
	f.r.SetQuery("")

	f.r.ToggleFavoritesOnly()
	assert.Equal(t, []string{"a"}, ids(f.r.Visible()))
	f.r.SetFavoritesOnly(false)
	assert.Len(t, f.r.Visible(), 3)

	f.r.SelectTag("work")
	f.r.SelectTag("work")
	assert.Equal(t, []string{"work"}, f.r.Filter().Tags)

	require.NotEmpty(t, snaps)
	last := snaps[len(snaps)-1]
	assert.Equal(t, 3, last.Total)
	assert.Equal(t, []string{"a"}, ids(last.Visible))
	assert.Len(t, f.r.Notes(), 3, "filters never change the collection")
}

func TestReconciler_DeleteAllRemovesEverything(t *testing.T) {
	ctx := context.Background()
	f := setup(t, view.WithDeleteConcurrency(4))
	for i := range 25 {
		seed(t, f.svc, note(fmt.Sprintf("n%02d", i), time.Duration(i)*time.Minute))
	}
	require.NoError(t, f.r.Refresh(ctx))
	require.Len(t, f.r.Notes(), 25)

	require.NoError(t, f.r.DeleteAll(ctx))

	assert.Empty(t, f.r.Notes())
	stored, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestReconciler_DeleteVisibleKeepsHidden(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	seed(t, f.svc,
		note("fav", time.Minute, func(n *core.Note) { n.Favorite = true }),
		note("plain", 2*time.Minute),
	)
	require.NoError(t, f.r.Refresh(ctx))

	f.r.SetFavoritesOnly(true)
	require.NoError(t, f.r.DeleteVisible(ctx))

	assert.Equal(t, []string{"plain"}, ids(f.r.Notes()))
}

func TestReconciler_CreateNoteOpensEditor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := setup(t, view.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, f.r.Start(ctx))

	s, err := f.r.CreateNote(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Same(t, s, f.r.Active())
	require.Len(t, f.r.Notes(), 1)
	assert.Equal(t, s.ID(), f.r.Snapshot().ActiveID)

	s.SetTitle("Shopping")
	require.NoError(t, f.r.CloseEditor(ctx))
	assert.Nil(t, f.r.Active())

	got, err := f.svc.Get(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, "Shopping", got.Title)
	assert.Equal(t, "Shopping", f.r.Notes()[0].Title)
}

func TestReconciler_OpenClosesPrevious(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	seed(t, f.svc, note("a", time.Minute), note("b", 2*time.Minute))
	require.NoError(t, f.r.Refresh(ctx))

	first, err := f.r.Open(ctx, "a")
	require.NoError(t, err)
	first.SetContent("<p>pending</p>")

	_, err = f.r.Open(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", f.r.Active().ID())

	got, err := f.svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "<p>pending</p>", got.Content, "switching notes flushes the previous editor")

	_, err = f.r.Open(ctx, "missing")
	assert.True(t, core.IsNotFound(err))
	assert.Error(t, f.r.Err())
}

func TestReconciler_DeleteActiveNoteDiscardsEditor(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	seed(t, f.svc, note("a", time.Minute))
	require.NoError(t, f.r.Refresh(ctx))

	s, err := f.r.Open(ctx, "a")
	require.NoError(t, err)
	s.SetContent("<p>typing</p>")

	require.NoError(t, f.r.DeleteNote(ctx, "a"))
	assert.Nil(t, f.r.Active())

	time.Sleep(50 * time.Millisecond)
	_, err = f.svc.Get(ctx, "a")
	assert.True(t, core.IsNotFound(err), "a late autosave must not resurrect the note")
}

// heldStore parks the first Save until released and reports its result.
type heldStore struct {
	*core.Service
	once    sync.Once
	started chan struct{}
	release chan struct{}
	saved   chan error
}

func (h *heldStore) Save(ctx context.Context, n core.Note) error {
	held := false
	h.once.Do(func() { held = true })
	if !held {
		return h.Service.Save(ctx, n)
	}
	close(h.started)
	<-h.release
	err := h.Service.Save(ctx, n)
	h.saved <- err
	return err
}

func TestReconciler_DeleteDuringAutosaveKeepsNoteDeleted(t *testing.T) {
	ctx := context.Background()
	svc := core.NewService(memory.New(core.AreaSync))
	seed(t, svc, note("a", time.Minute))
	store := &heldStore{
		Service: svc,
		started: make(chan struct{}),
		release: make(chan struct{}),
		saved:   make(chan error, 1),
	}
	r := view.New(store, nil, view.WithEditorOptions(editor.WithDebounce(10*time.Millisecond)))
	require.NoError(t, r.Refresh(ctx))

	s, err := r.Open(ctx, "a")
	require.NoError(t, err)
	s.SetContent("<p>typing</p>")

	select {
	case <-store.started:
	case <-time.After(time.Second):
		t.Fatal("autosave never started")
	}

	require.NoError(t, r.DeleteNote(ctx, "a"))
	close(store.release)

	select {
	case err := <-store.saved:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("autosave never finished")
	}

	_, err = svc.Get(ctx, "a")
	assert.True(t, core.IsNotFound(err), "an autosave in flight during delete must not bring the note back")
	assert.Empty(t, r.Notes())
}

func TestReconciler_ToggleFavoriteAndArchive(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	seed(t, f.svc, note("a", time.Minute))
	require.NoError(t, f.r.Refresh(ctx))

	require.NoError(t, f.r.ToggleFavorite(ctx, "a"))
	assert.True(t, f.r.Notes()[0].Favorite)

	require.NoError(t, f.r.Archive(ctx, "a"))
	assert.True(t, f.r.Notes()[0].Archived)
}

func TestReconciler_ErrorsAreKept(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	seed(t, f.svc, note("a", time.Minute))
	require.NoError(t, f.r.Refresh(ctx))

	boom := errors.New("quota exceeded")
	f.area.FailWith(boom)

	err := f.r.Refresh(ctx)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, f.r.Err(), boom)
	assert.Len(t, f.r.Notes(), 1, "the last good collection stays visible")

	f.area.FailWith(nil)
	require.NoError(t, f.r.Refresh(ctx))
	assert.NoError(t, f.r.Err())
}

// gatedStore holds back the result of the first List until released.
type gatedStore struct {
	*core.Service
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (g *gatedStore) List(ctx context.Context) ([]core.Note, error) {
	notes, err := g.Service.List(ctx)
	gated := false
	g.once.Do(func() { gated = true })
	if gated {
		close(g.started)
		<-g.release
	}
	return notes, err
}

func TestReconciler_StaleRefreshIsDropped(t *testing.T) {
	ctx := context.Background()
	svc := core.NewService(memory.New(core.AreaSync))
	store := &gatedStore{Service: svc, started: make(chan struct{}), release: make(chan struct{})}
	r := view.New(store, nil)

	done := make(chan error, 1)
	go func() { done <- r.Refresh(ctx) }()
	<-store.started

	seed(t, svc, note("a", 0))
	require.NoError(t, r.Refresh(ctx))
	require.Len(t, r.Notes(), 1)

	close(store.release)
	require.NoError(t, <-done)
	assert.Len(t, r.Notes(), 1, "an older result must not replace a newer one")
}

func TestReconciler_Preferences(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	require.NoError(t, f.r.ToggleDarkMode(ctx))
	require.NoError(t, f.r.SetLocale(ctx, "ja"))
	assert.Equal(t, prefs.Preferences{DarkMode: true, Locale: "ja"}, f.r.Preferences())

	stored, err := prefs.NewStore(f.local).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.r.Preferences(), stored)

	err = f.r.SetLocale(ctx, "xx")
	assert.ErrorIs(t, err, prefs.ErrUnknownLocale)
	assert.Equal(t, "ja", f.r.Preferences().Locale)

	require.NoError(t, f.r.SetDarkMode(ctx, false))
	assert.False(t, f.r.Preferences().DarkMode)
}

func TestReconciler_Export(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	seed(t, f.svc, note("a", time.Minute, func(n *core.Note) { n.Content = "<p>hello</p>" }))
	require.NoError(t, f.r.Refresh(ctx))

	data, name, err := f.r.Export(export.FormatText, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "notes-2026-03-14.txt", name)
	assert.Contains(t, string(data), "hello")
}
