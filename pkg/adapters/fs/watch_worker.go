package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/sidenote/pkg/core"
)

// debounceDelay absorbs the burst of events produced by a single atomic write.
const debounceDelay = 50 * time.Millisecond

// Watch implements core.Watchable. Changes made by this process, other
// processes and git (pull, checkout) are all reported, since detection works
// on the directory itself.
func (a *Area) Watch(ctx context.Context, pattern string) (<-chan core.ChangeSet, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}
	w := &watchWorker{
		area:    a,
		pattern: pattern,
		events:  make(chan core.ChangeSet, a.config.EventBuffer),
	}
	if err := w.start(ctx); err != nil {
		return nil, err
	}
	return w.events, nil
}

type watchWorker struct {
	area      *Area
	pattern   string
	events    chan core.ChangeSet
	watcher   *fsnotify.Watcher
	debouncer *debouncer

	mu       sync.Mutex
	snapshot map[string]json.RawMessage
}

func (w *watchWorker) logger() *slog.Logger {
	return w.area.config.Logger
}

func (w *watchWorker) start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	snapshot, err := w.area.GetAll(ctx)
	if err != nil {
		return err
	}
	w.snapshot = w.filter(snapshot)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(w.area.Path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.area.Path, err)
	}
	// Present only for versioned areas; used to pause while git rewrites files.
	_ = watcher.Add(filepath.Join(w.area.Path, ".git"))

	w.watcher = watcher
	w.debouncer = newDebouncer(debounceDelay)
	w.area.trackWatcher(1)

	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(func(err error) {
		w.logger().Error("watcher stopped", "path", w.area.Path, "error", err)
	}))
	return nil
}

func (w *watchWorker) filter(values map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		if core.MatchKey(w.pattern, k) {
			out[k] = v
		}
	}
	return out
}

// run is the main event loop of the watcher.
func (w *watchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if w.logger().Enabled(ctx, slog.LevelDebug) {
				w.logger().Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			}
		}
	}()
	defer close(w.events)
	defer w.area.trackWatcher(-1)
	defer w.watcher.Close()

	var gitLocked bool
	err = w.mainEventLoop(ctx, &gitLocked)

	// Pending callbacks write to events; they must finish before it is closed.
	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *watchWorker) mainEventLoop(ctx context.Context, gitLocked *bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}

			if handled, locked := w.handleGitLockEvent(event, *gitLocked); handled {
				wasLocked := *gitLocked
				*gitLocked = locked
				if wasLocked && !locked {
					w.reconcile(ctx)
				}
				continue
			}
			if *gitLocked {
				continue
			}
			w.processFilesystemEvent(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger().Error("fsnotify error", "error", wErr)
		}
	}
}

// handleGitLockEvent tracks .git/index.lock so the worker can pause while git
// rewrites the work tree and reconcile once it is done.
func (w *watchWorker) handleGitLockEvent(event fsnotify.Event, locked bool) (handled bool, lockedNew bool) {
	if filepath.Base(event.Name) != "index.lock" || filepath.Base(filepath.Dir(event.Name)) != ".git" {
		return false, locked
	}
	switch {
	case event.Has(fsnotify.Create):
		w.logger().Debug("git operation detected, pausing watcher")
		return true, true
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.logger().Debug("git operation finished, reconciling")
		return true, false
	default:
		return true, locked
	}
}

func (w *watchWorker) processFilesystemEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	key, ok := w.area.keyFor(event.Name)
	if !ok || !core.MatchKey(w.pattern, key) {
		return
	}
	w.debouncer.add(key, func() { w.emitKey(ctx, key) })
}

// emitKey compares the current value of key with the last one reported.
func (w *watchWorker) emitKey(ctx context.Context, key string) {
	value, found, err := w.area.Get(ctx, key)
	if err != nil {
		w.logger().Debug("skipping unreadable change", "key", key, "error", err)
		return
	}

	w.mu.Lock()
	old, had := w.snapshot[key]
	change, changed := diff(old, had, value, found)
	if found {
		w.snapshot[key] = value
	} else {
		delete(w.snapshot, key)
	}
	w.mu.Unlock()

	if !changed {
		return
	}
	cs := core.NewChangeSet(w.area.Name())
	cs.Changes[key] = change
	w.send(ctx, cs)
}

// reconcile diffs the whole directory against the snapshot. It catches the
// events missed while git held its lock.
func (w *watchWorker) reconcile(ctx context.Context) {
	current, err := w.area.GetAll(ctx)
	if err != nil {
		w.logger().Error("reconcile failed", "error", err)
		return
	}
	current = w.filter(current)
	cs := core.NewChangeSet(w.area.Name())

	w.mu.Lock()
	for key, value := range current {
		old, had := w.snapshot[key]
		if change, changed := diff(old, had, value, true); changed {
			cs.Changes[key] = change
		}
	}
	for key, old := range w.snapshot {
		if _, ok := current[key]; !ok {
			cs.Changes[key] = core.Change{OldValue: old}
		}
	}
	w.snapshot = current
	w.mu.Unlock()

	w.area.recordReconcile()
	if !cs.Empty() {
		w.send(ctx, cs)
	}
}

func (w *watchWorker) send(ctx context.Context, cs core.ChangeSet) {
	defer func() {
		// events may already be closed when the worker is shutting down.
		_ = recover()
	}()
	select {
	case w.events <- cs:
	case <-ctx.Done():
	}
}

func diff(old json.RawMessage, had bool, value json.RawMessage, found bool) (core.Change, bool) {
	switch {
	case !had && !found:
		return core.Change{}, false
	case !had:
		return core.Change{NewValue: value}, true
	case !found:
		return core.Change{OldValue: old}, true
	case bytes.Equal(old, value):
		return core.Change{}, false
	default:
		return core.Change{OldValue: old, NewValue: value}, true
	}
}
