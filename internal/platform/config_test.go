package platform

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`
adapter: fs
path: notes
format: yaml
versioning: false
auto_init: true
local_path: state/local.db
debounce: 1500ms
event_buffer: 32
`), 0644))

	c, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, AdapterFS, c.Adapter)
	assert.Equal(t, "yaml", c.Format)
	require.NotNil(t, c.Versioning)
	assert.False(t, *c.Versioning)
	assert.True(t, c.AutoInit)
	assert.Equal(t, 1500*time.Millisecond, c.Debounce)
	assert.Equal(t, 32, c.EventBuffer)
	assert.Equal(t, filepath.Join(dir, "notes"), c.URI())

	o := newOptions(c.Options())
	assert.Equal(t, "yaml", o.format)
	require.NotNil(t, o.versioning)
	assert.False(t, *o.versioning)
	assert.Equal(t, filepath.Join(dir, "state", "local.db"), o.localPath)
	assert.Equal(t, 32, o.eventBuffer)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"adapter":  "adapter: mongo\n",
		"format":   "format: toml\n",
		"debounce": "debounce: -1s\n",
		"syntax":   "adapter: [fs\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestConfig_SaveAndDiscover(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	versioned := true
	want := Config{Adapter: AdapterSQLite, Path: "notes.db", Versioning: &versioned, Debounce: time.Second}
	require.NoError(t, want.Save(filepath.Join(root, ConfigFileName)))

	got, path, err := DiscoverConfig(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ConfigFileName), path)
	assert.Equal(t, AdapterSQLite, got.Adapter)
	assert.Equal(t, time.Second, got.Debounce)
	assert.Equal(t, filepath.Join(root, "notes.db"), got.URI())
}

func TestConfig_RedisURI(t *testing.T) {
	c := Config{Adapter: AdapterRedis, RedisURL: "redis://localhost:6379/0", Path: "ignored"}
	assert.Equal(t, "redis://localhost:6379/0", c.URI())
}
