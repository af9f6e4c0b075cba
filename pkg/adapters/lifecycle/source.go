// Package lifecycle exposes note change streams as lifecycle sources.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/sidenote/pkg/core"
)

// Watcher is anything that streams change sets, typically *core.Service.
type Watcher interface {
	Watch(ctx context.Context) (<-chan core.ChangeSet, error)
}

type changeSource struct {
	watcher Watcher
	out     chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits one event per change set.
// The subscription is opened by Start and released when its context ends.
func NewSource(w Watcher) lifecycle.Source {
	return &changeSource{
		watcher: w,
		out:     make(chan lifecycle.Event),
	}
}

func (s *changeSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *changeSource) Start(ctx context.Context) error {
	changes, err := s.watcher.Watch(ctx)
	if err != nil {
		close(s.out)
		return err
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case cs, ok := <-changes:
				if !ok {
					return nil
				}
				// core.ChangeSet implements lifecycle.Event.
				select {
				case s.out <- cs:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
