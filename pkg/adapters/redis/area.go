// Package redis stores an area in Redis and propagates change sets to every
// connected process over pub/sub, which makes it usable as a sync backend
// shared between devices.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"
	"github.com/redis/go-redis/v9"

	"github.com/aretw0/sidenote/pkg/core"
)

// DefaultNamespace prefixes every key written by this package.
const DefaultNamespace = "sidenote"

const scanBatch = 100

// Connect creates a Redis client from a URL and verifies connectivity.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// Config holds the configuration for a Redis-backed area.
type Config struct {
	Namespace   string
	Name        string // Area name, defaults to core.AreaSync.
	EventBuffer int
	Logger      *slog.Logger
	// OwnsClient makes Close close the client as well.
	OwnsClient bool
}

// Area implements core.StorageArea on Redis string keys.
type Area struct {
	rdb    *redis.Client
	config Config

	mu       sync.RWMutex
	watchers int
}

// NewArea creates an area over an existing client.
func NewArea(rdb *redis.Client, config Config) *Area {
	if config.Namespace == "" {
		config.Namespace = DefaultNamespace
	}
	if config.Name == "" {
		config.Name = core.AreaSync
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = core.DefaultEventBuffer
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Area{rdb: rdb, config: config}
}

// Name implements core.StorageArea.
func (a *Area) Name() string { return a.config.Name }

func (a *Area) prefix() string {
	return a.config.Namespace + ":" + a.config.Name + ":"
}

func (a *Area) redisKey(key string) string {
	return a.prefix() + key
}

// Channel returns the pub/sub channel change sets are published on.
func (a *Area) Channel() string {
	return a.config.Namespace + ":" + a.config.Name + ":changes"
}

// Initialize verifies the server is reachable.
func (a *Area) Initialize(ctx context.Context) error {
	if err := a.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Get implements core.StorageArea.
func (a *Area) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	val, err := a.rdb.Get(ctx, a.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return json.RawMessage(val), true, nil
}

// GetAll implements core.StorageArea.
func (a *Area) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	var redisKeys []string
	iter := a.rdb.Scan(ctx, 0, escapeGlob(a.prefix())+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		redisKeys = append(redisKeys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}

	out := make(map[string]json.RawMessage, len(redisKeys))
	for start := 0; start < len(redisKeys); start += scanBatch {
		batch := redisKeys[start:min(start+scanBatch, len(redisKeys))]
		values, err := a.rdb.MGet(ctx, batch...).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read values: %w", err)
		}
		for i, v := range values {
			s, ok := v.(string)
			if !ok {
				continue
			}
			out[strings.TrimPrefix(batch[i], a.prefix())] = json.RawMessage(s)
		}
	}
	return out, nil
}

// Set implements core.StorageArea. All writes go out in one MULTI/EXEC block.
func (a *Area) Set(ctx context.Context, items map[string]json.RawMessage) error {
	if len(items) == 0 {
		return nil
	}
	keys := make([]string, 0, len(items))
	for k, v := range items {
		if !json.Valid(v) {
			return fmt.Errorf("value of %s is not valid json", k)
		}
		keys = append(keys, k)
	}

	old, err := a.values(ctx, keys)
	if err != nil {
		return err
	}

	_, err = a.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Set(ctx, a.redisKey(k), string(items[k]), 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write values: %w", err)
	}

	cs := core.NewChangeSet(a.config.Name)
	for _, k := range keys {
		if prev, ok := old[k]; ok && string(prev) == string(items[k]) {
			continue
		}
		cs.Changes[k] = core.Change{OldValue: old[k], NewValue: items[k]}
	}
	return a.publish(ctx, cs)
}

// Remove implements core.StorageArea.
func (a *Area) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	old, err := a.values(ctx, keys)
	if err != nil {
		return err
	}
	if len(old) == 0 {
		return nil
	}

	redisKeys := make([]string, 0, len(old))
	cs := core.NewChangeSet(a.config.Name)
	for k, v := range old {
		redisKeys = append(redisKeys, a.redisKey(k))
		cs.Changes[k] = core.Change{OldValue: v}
	}
	if err := a.rdb.Del(ctx, redisKeys...).Err(); err != nil {
		return fmt.Errorf("failed to delete values: %w", err)
	}
	return a.publish(ctx, cs)
}

// values returns the current values of the keys that exist.
func (a *Area) values(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = a.redisKey(k)
	}
	values, err := a.rdb.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read values: %w", err)
	}
	out := make(map[string]json.RawMessage, len(keys))
	for i, v := range values {
		if s, ok := v.(string); ok {
			out[keys[i]] = json.RawMessage(s)
		}
	}
	return out, nil
}

func (a *Area) publish(ctx context.Context, cs core.ChangeSet) error {
	if cs.Empty() {
		return nil
	}
	payload, err := json.Marshal(cs)
	if err != nil {
		return fmt.Errorf("failed to encode change set: %w", err)
	}
	if err := a.rdb.Publish(ctx, a.Channel(), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change set: %w", err)
	}
	return nil
}

// Watch implements core.Watchable. Change sets published by any process
// writing to the same namespace and area are delivered.
func (a *Area) Watch(ctx context.Context, pattern string) (<-chan core.ChangeSet, error) {
	sub := a.rdb.Subscribe(ctx, a.Channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", a.Channel(), err)
	}

	out := make(chan core.ChangeSet, a.config.EventBuffer)
	a.trackWatcher(1)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(out)
		defer a.trackWatcher(-1)
		defer sub.Close()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-messages:
				if !ok {
					return nil
				}
				var cs core.ChangeSet
				if err := json.Unmarshal([]byte(msg.Payload), &cs); err != nil {
					a.config.Logger.Warn("dropping undecodable change set", "channel", msg.Channel, "error", err)
					continue
				}
				filtered := cs.Filter(func(key string) bool { return core.MatchKey(pattern, key) })
				if filtered.Empty() {
					continue
				}
				select {
				case out <- filtered:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		a.config.Logger.Error("redis watcher stopped", "channel", a.Channel(), "error", err)
	}))

	return out, nil
}

// Close closes the client when the area owns it.
func (a *Area) Close() error {
	if !a.config.OwnsClient {
		return nil
	}
	return a.rdb.Close()
}

func (a *Area) trackWatcher(delta int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.watchers += delta
}

// AreaState exposes internal state for observability.
type AreaState struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Addr      string `json:"addr"`
	Watchers  int    `json:"watchers"`
}

// State implements introspection.Introspectable.
func (a *Area) State() any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return AreaState{
		Name:      a.config.Name,
		Namespace: a.config.Namespace,
		Addr:      a.rdb.Options().Addr,
		Watchers:  a.watchers,
	}
}

// ComponentType implements introspection.Component.
func (a *Area) ComponentType() string {
	return "redis_area"
}

// escapeGlob quotes the characters SCAN MATCH treats as wildcards.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var (
	_ core.StorageArea             = (*Area)(nil)
	_ core.Watchable               = (*Area)(nil)
	_ io.Closer                    = (*Area)(nil)
	_ introspection.Introspectable = (*Area)(nil)
	_ introspection.Component      = (*Area)(nil)
)
