// Package typed provides type-safe access to single keys of a storage area.
package typed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/sidenote/pkg/core"
)

// Value is a JSON-encoded T stored under one key of an area.
type Value[T any] struct {
	area core.StorageArea
	key  string
	def  T
}

// NewValue binds key of area to type T. def is returned while the key is
// absent or holds something that does not decode as T.
func NewValue[T any](area core.StorageArea, key string, def T) *Value[T] {
	return &Value[T]{area: area, key: key, def: def}
}

// Key returns the storage key.
func (v *Value[T]) Key() string {
	return v.key
}

// Default returns the fallback value.
func (v *Value[T]) Default() T {
	return v.def
}

// Load reads the value. Storage errors are returned; a missing or
// undecodable value yields the default.
func (v *Value[T]) Load(ctx context.Context) (T, error) {
	raw, ok, err := v.area.Get(ctx, v.key)
	if err != nil {
		return v.def, fmt.Errorf("failed to load %s: %w", v.key, err)
	}
	if !ok {
		return v.def, nil
	}
	return v.decode(raw), nil
}

// Save writes the value.
func (v *Value[T]) Save(ctx context.Context, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", v.key, err)
	}
	if err := v.area.Set(ctx, map[string]json.RawMessage{v.key: raw}); err != nil {
		return fmt.Errorf("failed to save %s: %w", v.key, err)
	}
	return nil
}

// Decode extracts the new value of the key from a change set. The boolean is
// false when the set does not touch the key.
func (v *Value[T]) Decode(cs core.ChangeSet) (T, bool) {
	change, ok := cs.Changes[v.key]
	if !ok {
		return v.def, false
	}
	if change.Kind() == core.ChangeRemoved {
		return v.def, true
	}
	return v.decode(change.NewValue), true
}

func (v *Value[T]) decode(raw json.RawMessage) T {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return v.def
	}
	return out
}
