package core

import (
	"context"
	"encoding/json"
)

// StorageArea defines the contract of the host key-value store notes live in.
// Values are JSON documents. Implementations decide how and where they persist.
type StorageArea interface {
	// Name returns the area name reported in change sets (e.g. "sync").
	Name() string

	// Initialize ensures the underlying storage is ready (directories, schema, connectivity).
	Initialize(ctx context.Context) error

	// Get returns the value stored under key. The boolean is false when the key is absent.
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)

	// GetAll returns every key/value pair of the area.
	GetAll(ctx context.Context) (map[string]json.RawMessage, error)

	// Set upserts all items. Existing values are overwritten unconditionally.
	Set(ctx context.Context, items map[string]json.RawMessage) error

	// Remove deletes the given keys. Missing keys are ignored.
	Remove(ctx context.Context, keys ...string) error
}

// Watchable is implemented by areas that report changes, local or remote.
type Watchable interface {
	// Watch streams change sets for keys matching pattern (doublestar syntax, "" or "*" for all).
	// The channel is closed once ctx is done.
	Watch(ctx context.Context, pattern string) (<-chan ChangeSet, error)
}

// Syncable is implemented by areas that synchronize with a remote explicitly.
type Syncable interface {
	Sync(ctx context.Context) error
}
