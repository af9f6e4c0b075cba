// Package memory provides an in-process storage area.
// It is used by tests, previews and the CLI's --adapter=memory mode.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/aretw0/introspection"
	"github.com/aretw0/sidenote/pkg/core"
)

// Area is a map-backed storage area with in-process change notification.
type Area struct {
	name string
	hub  *core.Hub

	mu   sync.RWMutex
	data map[string]json.RawMessage
	fail error
}

// Option configures an Area.
type Option func(*Area)

// WithEventBuffer sets the buffer of each watcher channel.
func WithEventBuffer(size int) Option {
	return func(a *Area) {
		a.hub = core.NewHub(size)
	}
}

// WithData seeds the area with raw values.
func WithData(data map[string]json.RawMessage) Option {
	return func(a *Area) {
		for k, v := range data {
			a.data[k] = bytes.Clone(v)
		}
	}
}

// New creates an empty area named name.
func New(name string, opts ...Option) *Area {
	a := &Area{
		name: name,
		hub:  core.NewHub(core.DefaultEventBuffer),
		data: make(map[string]json.RawMessage),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements core.StorageArea.
func (a *Area) Name() string { return a.name }

// Initialize implements core.StorageArea.
func (a *Area) Initialize(ctx context.Context) error { return nil }

// FailWith makes every subsequent operation return err. Pass nil to recover.
func (a *Area) FailWith(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fail = err
}

// Get implements core.StorageArea.
func (a *Area) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.fail != nil {
		return nil, false, a.fail
	}
	v, ok := a.data[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

// GetAll implements core.StorageArea.
func (a *Area) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.fail != nil {
		return nil, a.fail
	}
	out := make(map[string]json.RawMessage, len(a.data))
	for k, v := range a.data {
		out[k] = bytes.Clone(v)
	}
	return out, nil
}

// Set implements core.StorageArea. Writes that do not alter a value are not reported.
func (a *Area) Set(ctx context.Context, items map[string]json.RawMessage) error {
	cs := core.NewChangeSet(a.name)

	a.mu.Lock()
	if a.fail != nil {
		a.mu.Unlock()
		return a.fail
	}
	for k, v := range items {
		old, existed := a.data[k]
		if existed && bytes.Equal(old, v) {
			continue
		}
		change := core.Change{NewValue: bytes.Clone(v)}
		if existed {
			change.OldValue = old
		}
		a.data[k] = bytes.Clone(v)
		cs.Changes[k] = change
	}
	a.mu.Unlock()

	a.hub.Publish(cs)
	return nil
}

// Remove implements core.StorageArea. Unknown keys are ignored.
func (a *Area) Remove(ctx context.Context, keys ...string) error {
	cs := core.NewChangeSet(a.name)

	a.mu.Lock()
	if a.fail != nil {
		a.mu.Unlock()
		return a.fail
	}
	for _, k := range keys {
		old, ok := a.data[k]
		if !ok {
			continue
		}
		delete(a.data, k)
		cs.Changes[k] = core.Change{OldValue: old}
	}
	a.mu.Unlock()

	a.hub.Publish(cs)
	return nil
}

// Watch implements core.Watchable.
func (a *Area) Watch(ctx context.Context, pattern string) (<-chan core.ChangeSet, error) {
	return a.hub.Watch(ctx, pattern)
}

// Len returns the number of stored keys.
func (a *Area) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.data)
}

// AreaState exposes internal state for observability.
type AreaState struct {
	Name     string `json:"name"`
	Keys     int    `json:"keys"`
	Watchers int    `json:"watchers"`
	Failing  bool   `json:"failing"`
}

// State implements introspection.Introspectable.
func (a *Area) State() any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return AreaState{
		Name:     a.name,
		Keys:     len(a.data),
		Watchers: a.hub.Len(),
		Failing:  a.fail != nil,
	}
}

// ComponentType implements introspection.Component.
func (a *Area) ComponentType() string {
	return "memory_area"
}

var (
	_ core.StorageArea             = (*Area)(nil)
	_ core.Watchable               = (*Area)(nil)
	_ introspection.Introspectable = (*Area)(nil)
	_ introspection.Component      = (*Area)(nil)
)
