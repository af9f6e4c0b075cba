package fs_test

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sidenote/pkg/core"
)

// TestStress_ExternalVsInternal has another process scribble over note files
// while the service saves and a watcher listens. Nothing may panic or
// deadlock, and List must keep working with the damaged files skipped.
func TestStress_ExternalVsInternal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in short mode")
	}

	area, path := setupArea(t)
	svc := core.NewService(area)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stream, err := svc.Watch(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			name := fmt.Sprintf("note_noise-%d.json", rand.Intn(10))
			_ = os.WriteFile(filepath.Join(path, name), []byte(fmt.Sprintf("noise %d", time.Now().UnixNano())), 0644)
			time.Sleep(time.Duration(rand.Intn(10)) * time.Millisecond)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			n := core.NewNote(fmt.Sprintf("data-%d", rand.Intn(10)), time.Now())
			n.Content = "<p>internal</p>"
			_ = svc.Save(context.Background(), n)
			time.Sleep(time.Duration(rand.Intn(10)) * time.Millisecond)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range stream {
		}
	}()

	wg.Wait()

	notes, err := svc.List(context.Background())
	require.NoError(t, err)
	for _, n := range notes {
		assert.Regexp(t, `^data-\d$`, n.ID)
	}
	t.Logf("survived with %d notes", len(notes))
}
