package platform_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sidenote/internal/platform"
	"github.com/aretw0/sidenote/pkg/adapters/fs"
	"github.com/aretw0/sidenote/pkg/adapters/memory"
	"github.com/aretw0/sidenote/pkg/adapters/sqlite"
	"github.com/aretw0/sidenote/pkg/core"
	"github.com/aretw0/sidenote/pkg/prefs"
)

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func TestOpen_FS(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	stack, err := platform.Open(ctx, dir, platform.WithVersioning(false), platform.WithAutoInit(true))
	require.NoError(t, err)
	defer stack.Close()

	require.IsType(t, &fs.Area{}, stack.Sync)
	require.IsType(t, &sqlite.Area{}, stack.Local)

	n := core.NewNote("1", testNow)
	require.NoError(t, stack.Notes.Save(ctx, n))
	_, err = os.Stat(filepath.Join(dir, "note_1.json"))
	assert.NoError(t, err)

	require.NoError(t, stack.Prefs.Save(ctx, prefs.Preferences{DarkMode: true, Locale: "fr"}))
	_, err = os.Stat(filepath.Join(dir, fs.DefaultSystemDir, platform.LocalDBName))
	assert.NoError(t, err, "local preferences live in the system directory")
}

func TestOpen_Memory(t *testing.T) {
	ctx := context.Background()
	stack, err := platform.Open(ctx, "", platform.WithAdapter(platform.AdapterMemory))
	require.NoError(t, err)
	defer stack.Close()

	assert.Equal(t, core.AreaSync, stack.Sync.Name())
	assert.Equal(t, core.AreaLocal, stack.Local.Name())

	p, err := stack.Prefs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, prefs.Defaults(), p)
}

func TestOpen_SQLiteSharesFile(t *testing.T) {
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "notes.db")

	stack, err := platform.Open(ctx, db, platform.WithAdapter(platform.AdapterSQLite))
	require.NoError(t, err)
	defer stack.Close()

	require.NoError(t, stack.Notes.Save(ctx, core.NewNote("1", testNow)))
	require.NoError(t, stack.Prefs.Save(ctx, prefs.Preferences{Locale: "de"}))

	notes, err := stack.Notes.List(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 1, "preferences never show up as notes")
}

func TestOpen_InjectedAreas(t *testing.T) {
	ctx := context.Background()
	syncArea := memory.New(core.AreaSync)
	local := memory.New(core.AreaLocal)

	stack, err := platform.Open(ctx, "ignored", platform.WithArea(syncArea), platform.WithLocalArea(local))
	require.NoError(t, err)
	assert.Same(t, syncArea, stack.Sync)
	assert.Same(t, local, stack.Local)
}

func TestOpen_UnknownAdapter(t *testing.T) {
	_, err := platform.Open(context.Background(), "", platform.WithAdapter("mongo"))
	assert.ErrorContains(t, err, "unknown adapter")
}

func TestNew_ReadOnly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	svc, err := platform.New(dir, platform.WithReadOnly(true), platform.WithVersioning(false))
	require.NoError(t, err)

	err = svc.Save(ctx, core.NewNote("1", testNow))
	assert.ErrorIs(t, err, core.ErrReadOnly)
}
