package host_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	notesource "github.com/aretw0/sidenote/pkg/adapters/lifecycle"
	"github.com/aretw0/sidenote/pkg/adapters/memory"
	"github.com/aretw0/sidenote/pkg/core"
	"github.com/aretw0/sidenote/pkg/host"
)

type fakeTabs struct {
	mu     sync.Mutex
	opened []string
	err    error
}

func (f *fakeTabs) Create(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.opened = append(f.opened, url)
	return nil
}

func (f *fakeTabs) urls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.opened...)
}

type fakePanel struct {
	tabs []int
	err  error
}

func (f *fakePanel) Open(ctx context.Context, tabID int) error {
	if f.err != nil {
		return f.err
	}
	f.tabs = append(f.tabs, tabID)
	return nil
}

func TestDispatcher_Installed(t *testing.T) {
	ctx := context.Background()
	tabs := &fakeTabs{}
	local := memory.New(core.AreaLocal)
	d := host.NewDispatcher(tabs, nil,
		host.WithWelcomeURL("https://example.com/welcome"),
		host.WithInstallSettings(local, map[string]json.RawMessage{"serverUrl": json.RawMessage(`"https://api.example.com"`)}),
	)

	require.NoError(t, d.Handle(ctx, host.Installed{Reason: host.ReasonInstall}))
	assert.Equal(t, []string{"https://example.com/welcome"}, tabs.urls())

	v, ok, err := local.Get(ctx, "serverUrl")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `"https://api.example.com"`, string(v))

	require.NoError(t, d.Handle(ctx, host.Installed{Reason: host.ReasonUpdate, PreviousVersion: "1.0.0"}))
	assert.Len(t, tabs.urls(), 1, "updates do not reopen the welcome page")
}

func TestDispatcher_ActionClicked(t *testing.T) {
	ctx := context.Background()

	t.Run("opens the panel", func(t *testing.T) {
		tabs, panel := &fakeTabs{}, &fakePanel{}
		d := host.NewDispatcher(tabs, panel)
		require.NoError(t, d.Handle(ctx, host.ActionClicked{TabID: 7, URL: "https://example.com"}))
		assert.Equal(t, []int{7}, panel.tabs)
		assert.Empty(t, tabs.urls())
	})

	t.Run("falls back to a tab", func(t *testing.T) {
		tabs := &fakeTabs{}
		d := host.NewDispatcher(tabs, &fakePanel{err: errors.New("no panel")})
		require.NoError(t, d.Handle(ctx, host.ActionClicked{TabID: 7, URL: "https://example.com"}))
		assert.Equal(t, []string{host.DefaultPanelPage}, tabs.urls())
	})

	t.Run("without a panel", func(t *testing.T) {
		tabs := &fakeTabs{}
		d := host.NewDispatcher(tabs, nil, host.WithPanelPage("panel.html"))
		require.NoError(t, d.Handle(ctx, host.ActionClicked{TabID: 1, URL: "https://example.com"}))
		assert.Equal(t, []string{"panel.html"}, tabs.urls())
	})

	t.Run("refuses internal pages", func(t *testing.T) {
		tabs, panel := &fakeTabs{}, &fakePanel{}
		d := host.NewDispatcher(tabs, panel)
		err := d.Handle(ctx, host.ActionClicked{TabID: 1, URL: "chrome://extensions"})
		assert.ErrorIs(t, err, host.ErrInternalPage)
		assert.Empty(t, panel.tabs)
		assert.Empty(t, tabs.urls())
	})
}

func TestDispatcher_StorageChangedOnlySync(t *testing.T) {
	ctx := context.Background()
	var got []string
	d := host.NewDispatcher(&fakeTabs{}, nil, host.WithStorageHandler(func(cs core.ChangeSet) {
		got = append(got, cs.Area)
	}))

	require.NoError(t, d.Handle(ctx, host.StorageChanged{Changes: core.NewChangeSet(core.AreaLocal)}))
	require.NoError(t, d.Handle(ctx, host.StorageChanged{Changes: core.NewChangeSet(core.AreaSync)}))
	assert.Equal(t, []string{core.AreaSync}, got)
}

func TestDispatcher_RunContinuesAfterFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	tabs := &fakeTabs{err: errors.New("blocked")}
	received := make(chan core.ChangeSet, 1)
	d := host.NewDispatcher(tabs, nil, host.WithStorageHandler(func(cs core.ChangeSet) { received <- cs }))

	changes := make(chan lifecycle.Event, 1)
	events := make(chan host.Event, 2)
	events <- host.OpenWelcome{}
	go func() {
		for ev := range host.StorageEvents(ctx, changes) {
			events <- ev
		}
		close(events)
	}()
	changes <- core.NewChangeSet(core.AreaSync)
	close(changes)

	require.NoError(t, d.Run(ctx, events))
	select {
	case cs := <-received:
		assert.Equal(t, core.AreaSync, cs.Area)
	default:
		t.Fatal("storage change was not forwarded")
	}
}

func TestStorageEvents_FromNoteSource(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	area := memory.New(core.AreaSync)
	svc := core.NewService(area)
	src := notesource.NewSource(svc)
	require.NoError(t, src.Start(ctx))

	received := make(chan core.ChangeSet, 1)
	d := host.NewDispatcher(&fakeTabs{}, nil, host.WithStorageHandler(func(cs core.ChangeSet) {
		received <- cs
		cancel()
	}))

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, host.StorageEvents(ctx, src.Events())) }()

	require.NoError(t, svc.Save(context.Background(), core.NewNote("1", time.Now())))

	select {
	case cs := <-received:
		assert.Equal(t, []string{core.NoteKey("1")}, cs.Keys())
	case <-time.After(time.Second):
		t.Fatal("change was not dispatched")
	}
	<-done
}
