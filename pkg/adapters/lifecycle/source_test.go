package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sidenote/pkg/adapters/lifecycle"
	"github.com/aretw0/sidenote/pkg/adapters/memory"
	"github.com/aretw0/sidenote/pkg/core"
)

func TestSource_EmitsChangeSets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := core.NewService(memory.New(core.AreaSync))
	src := lifecycle.NewSource(svc)
	require.NoError(t, src.Start(ctx))

	require.NoError(t, svc.Save(ctx, core.NewNote("1", time.Now())))

	select {
	case ev := <-src.Events():
		cs, ok := ev.(core.ChangeSet)
		require.True(t, ok)
		assert.Equal(t, []string{"note_1"}, cs.Keys())
		assert.Contains(t, ev.String(), "added:note_1")
	case <-time.After(time.Second):
		t.Fatal("no event")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, open := <-src.Events():
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

type plain struct{ core.StorageArea }

func TestSource_StartFailsWithoutWatch(t *testing.T) {
	svc := core.NewService(plain{memory.New(core.AreaSync)})
	src := lifecycle.NewSource(svc)
	assert.ErrorIs(t, src.Start(context.Background()), core.ErrWatchUnsupported)
}
