package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Lock(t *testing.T) {
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)

	unlock, err := client.Lock(context.Background())
	require.NoError(t, err)

	lockPath := filepath.Join(tmpDir, DefaultLockName)
	_, err = os.Stat(lockPath)
	require.NoError(t, err, "lock file not created")

	// A second acquisition waits until the context gives up.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()

	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err), "lock file not removed after unlock")
}

func TestClient_InitCommit(t *testing.T) {
	if !IsInstalled() {
		t.Skip("git not installed")
	}
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)

	assert.False(t, client.IsRepo())
	require.NoError(t, client.Init())
	assert.True(t, client.IsRepo())
	assert.False(t, client.HasRemote())

	_, err := client.Run("config", "user.email", "test@example.com")
	require.NoError(t, err)
	_, err = client.Run("config", "user.name", "test")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.json"), []byte(`{}`), 0644))
	require.NoError(t, client.Add("a.json"))
	require.NoError(t, client.Commit("add a"))

	// Nothing staged: commit is skipped instead of failing.
	require.NoError(t, client.Commit("empty"))

	log, err := client.Run("log", "--format=%s")
	require.NoError(t, err)
	assert.Equal(t, "add a", log)

	assert.ErrorIs(t, client.Sync(), ErrNoRemote)
}

func TestClient_CommitIgnoresUnstagedEdits(t *testing.T) {
	if !IsInstalled() {
		t.Skip("git not installed")
	}
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)
	require.NoError(t, client.Init())
	_, err := client.Run("config", "user.email", "test@example.com")
	require.NoError(t, err)
	_, err = client.Run("config", "user.name", "test")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.json"), []byte(`{}`), 0644))
	require.NoError(t, client.Add("a.json"))
	require.NoError(t, client.Commit("add a"))

	// A tracked file edited behind git's back stays out of the index.
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.json"), []byte(`{"x":1}`), 0644))

	staged, err := client.HasStaged()
	require.NoError(t, err)
	assert.False(t, staged)
	require.NoError(t, client.Commit("nothing new"))

	require.NoError(t, client.Add("a.json"))
	staged, err = client.HasStaged()
	require.NoError(t, err)
	assert.True(t, staged)
}
