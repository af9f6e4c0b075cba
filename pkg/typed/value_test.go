package typed_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sidenote/pkg/adapters/memory"
	"github.com/aretw0/sidenote/pkg/core"
	"github.com/aretw0/sidenote/pkg/typed"
)

type window struct {
	Width  int  `json:"width"`
	Pinned bool `json:"pinned"`
}

func TestValue_LoadSave(t *testing.T) {
	ctx := context.Background()
	area := memory.New(core.AreaLocal)
	v := typed.NewValue(area, "window", window{Width: 320})

	got, err := v.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, window{Width: 320}, got)

	require.NoError(t, v.Save(ctx, window{Width: 400, Pinned: true}))
	got, err = v.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, window{Width: 400, Pinned: true}, got)

	raw, _, _ := area.Get(ctx, "window")
	assert.JSONEq(t, `{"width":400,"pinned":true}`, string(raw))
}

func TestValue_UndecodableFallsBack(t *testing.T) {
	area := memory.New(core.AreaLocal, memory.WithData(map[string]json.RawMessage{
		"darkMode": json.RawMessage(`"yes please"`),
	}))
	v := typed.NewValue(area, "darkMode", false)

	got, err := v.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, got)
}

func TestValue_StorageError(t *testing.T) {
	area := memory.New(core.AreaLocal)
	boom := errors.New("disk gone")
	area.FailWith(boom)

	v := typed.NewValue(area, "language", "en")
	got, err := v.Load(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "en", got)
	assert.ErrorIs(t, v.Save(context.Background(), "de"), boom)
}

func TestValue_Decode(t *testing.T) {
	v := typed.NewValue[string](nil, "language", "en")

	cs := core.NewChangeSet(core.AreaLocal)
	_, ok := v.Decode(cs)
	assert.False(t, ok)

	cs.Changes["language"] = core.Change{NewValue: json.RawMessage(`"fr"`)}
	got, ok := v.Decode(cs)
	assert.True(t, ok)
	assert.Equal(t, "fr", got)

	cs.Changes["language"] = core.Change{OldValue: json.RawMessage(`"fr"`)}
	got, _ = v.Decode(cs)
	assert.Equal(t, "en", got)
}
