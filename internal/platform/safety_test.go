package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePath(t *testing.T) {
	assert.Equal(t, ".", ResolvePath("", false))
	assert.Equal(t, "notes", ResolvePath("notes", false))

	assert.Equal(t, filepath.Join(os.TempDir(), "sidenote-dev", "notes"), ResolvePath("./work/notes", true))
	assert.Equal(t, filepath.Join(os.TempDir(), "sidenote-dev", "default"), ResolvePath(".", true))

	inTemp := filepath.Join(os.TempDir(), "already-here")
	assert.Equal(t, inTemp, ResolvePath(inTemp, true))
}

func TestIsDevRun(t *testing.T) {
	assert.True(t, IsDevRun(), "test binaries count as dev runs")
}
