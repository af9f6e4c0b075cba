package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultEventBuffer is the channel buffer used when none is configured.
const DefaultEventBuffer = 100

// MatchKey reports whether key matches a doublestar pattern. An empty pattern matches everything.
func MatchKey(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	ok, err := doublestar.Match(pattern, key)
	return err == nil && ok
}

// Hub fans change sets out to in-process watchers.
// It backs areas that have no native change notification.
type Hub struct {
	buffer int

	mu   sync.RWMutex
	subs map[uint64]*hubSub
	next uint64
}

type hubSub struct {
	pattern string
	ch      chan ChangeSet
	done    <-chan struct{}
}

// NewHub creates a hub whose watcher channels hold up to buffer change sets.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Hub{
		buffer: buffer,
		subs:   make(map[uint64]*hubSub),
	}
}

// Watch registers a watcher. The returned channel is closed when ctx is done.
func (h *Hub) Watch(ctx context.Context, pattern string) (<-chan ChangeSet, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	sub := &hubSub{
		pattern: pattern,
		ch:      make(chan ChangeSet, h.buffer),
		done:    ctx.Done(),
	}

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(sub.ch)
		h.mu.Unlock()
	}()

	return sub.ch, nil
}

// Publish delivers cs to every watcher whose pattern matches at least one key.
// A full watcher channel applies backpressure until the watcher drains or goes away.
func (h *Hub) Publish(cs ChangeSet) {
	if cs.Empty() {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		pattern := sub.pattern
		filtered := cs.Filter(func(key string) bool { return MatchKey(pattern, key) })
		if filtered.Empty() {
			continue
		}
		select {
		case sub.ch <- filtered:
		case <-sub.done:
		}
	}
}

// Len returns the number of registered watchers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
