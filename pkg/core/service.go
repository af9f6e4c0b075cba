package core

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

	"github.com/aretw0/lifecycle"
)

// Service is the sole owner of the mapping between notes and a storage area.
//
// Writes to the same key are serialized inside the process, so concurrent
// read-modify-write operations (favorite toggles, archiving) never interleave.
// Across processes and devices the area stays last-write-wins: a save of a
// stale snapshot still overwrites whatever was written before it.
type Service struct {
	area            StorageArea
	logger          *slog.Logger
	now             func() time.Time
	locks           *keyLocks
	eventBufferSize int

	mu          sync.RWMutex
	subscribers int
	lastChange  *time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for skipped records and dispatch failures.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source (used for timestamps and decode defaults).
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEventBuffer sets the buffer between the area and Watch consumers.
// Zero means DefaultEventBuffer.
func WithEventBuffer(size int) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.eventBufferSize = size
		}
	}
}

// NewService creates a Service over area.
func NewService(area StorageArea, opts ...ServiceOption) *Service {
	s := &Service{
		area:            area,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:             time.Now,
		locks:           newKeyLocks(),
		eventBufferSize: DefaultEventBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Area returns the underlying storage area.
func (s *Service) Area() StorageArea {
	return s.area
}

// Now returns the current time of the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}

// Save upserts the note under note_<id>. The last write wins.
func (s *Service) Save(ctx context.Context, n Note) error {
	if strings.TrimSpace(n.ID) == "" {
		return ErrEmptyID
	}
	unlock := s.locks.Lock(NoteKey(n.ID))
	defer unlock()

	// A writer cancelled while waiting on the key lock must not land after a
	// Remove that went ahead of it.
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := MarshalNote(n)
	if err != nil {
		return err
	}
	if err := s.area.Set(ctx, map[string]json.RawMessage{NoteKey(n.ID): data}); err != nil {
		return fmt.Errorf("failed to save note %s: %w", n.ID, err)
	}
	s.logger.Debug("note saved", "id", n.ID)
	return nil
}

// Get retrieves a single note.
func (s *Service) Get(ctx context.Context, id string) (Note, error) {
	if strings.TrimSpace(id) == "" {
		return Note{}, ErrEmptyID
	}
	key := NoteKey(id)
	data, ok, err := s.area.Get(ctx, key)
	if err != nil {
		return Note{}, fmt.Errorf("failed to read note %s: %w", id, err)
	}
	if !ok {
		return Note{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return UnmarshalNote(key, data, s.now())
}

// List returns every note of the area, newest-updated first.
// Malformed records are logged and skipped.
func (s *Service) List(ctx context.Context) ([]Note, error) {
	items, err := s.area.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	now := s.now()
	notes := make([]Note, 0, len(items))
	for key, data := range items {
		if !IsNoteKey(key) {
			continue
		}
		n, err := UnmarshalNote(key, data, now)
		if err != nil {
			s.logger.Warn("skipping malformed note record", "key", key, "error", err)
			continue
		}
		notes = append(notes, n)
	}
	return SortByRecency(notes, SortNewest), nil
}

// Remove deletes a note. Removing an unknown ID succeeds.
func (s *Service) Remove(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}
	unlock := s.locks.Lock(NoteKey(id))
	defer unlock()

	if err := s.area.Remove(ctx, NoteKey(id)); err != nil {
		return fmt.Errorf("failed to remove note %s: %w", id, err)
	}
	s.logger.Debug("note removed", "id", id)
	return nil
}

// ToggleFavorite flips the favorite flag of a note, treating a missing or
// invalid value as false. UpdatedAt is left alone so the note keeps its rank
// in recency-sorted lists. Unknown IDs are a no-op.
func (s *Service) ToggleFavorite(ctx context.Context, id string) error {
	return s.patch(ctx, id, func(fields map[string]json.RawMessage) {
		fields["favorite"] = jsonBool(!looseBool(fields["favorite"]))
	})
}

// Archive marks a note archived and refreshes UpdatedAt. Unknown IDs are a no-op.
func (s *Service) Archive(ctx context.Context, id string) error {
	now := s.now()
	return s.patch(ctx, id, func(fields map[string]json.RawMessage) {
		fields["archived"] = jsonBool(true)
		stamp, _ := json.Marshal(FormatTimestamp(now))
		fields["updatedAt"] = stamp
	})
}

// patch performs a read-modify-write on the raw record so fields this service
// does not know about survive untouched.
func (s *Service) patch(ctx context.Context, id string, mutate func(map[string]json.RawMessage)) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}
	key := NoteKey(id)
	unlock := s.locks.Lock(key)
	defer unlock()

	data, ok, err := s.area.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read note %s: %w", id, err)
	}
	if !ok {
		s.logger.Debug("patch skipped, note not found", "id", id)
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return fmt.Errorf("%w: %s", ErrMalformedRecord, key)
	}
	mutate(fields)

	out, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode note %s: %w", id, err)
	}
	if err := s.area.Set(ctx, map[string]json.RawMessage{key: out}); err != nil {
		return fmt.Errorf("failed to save note %s: %w", id, err)
	}
	return nil
}

func jsonBool(b bool) json.RawMessage {
	if b {
		return json.RawMessage("true")
	}
	return json.RawMessage("false")
}

// ListTags returns the sorted union of tags across all notes.
func (s *Service) ListTags(ctx context.Context) ([]string, error) {
	notes, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return CollectTags(notes), nil
}

// Watch streams the change sets of the area that touch note keys.
// Changes reported for another area are ignored. The stream is buffered so a
// slow consumer does not stall the area.
func (s *Service) Watch(ctx context.Context) (<-chan ChangeSet, error) {
	w, ok := s.area.(Watchable)
	if !ok {
		return nil, ErrWatchUnsupported
	}
	upstream, err := w.Watch(ctx, NotePrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to watch area %s: %w", s.area.Name(), err)
	}

	out := make(chan ChangeSet, s.eventBufferSize)
	s.trackSubscriber(1)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(out)
		defer s.trackSubscriber(-1)
		for {
			select {
			case <-ctx.Done():
				return nil
			case cs, ok := <-upstream:
				if !ok {
					return nil
				}
				if cs.Area != "" && cs.Area != s.area.Name() {
					continue
				}
				notes := cs.Filter(IsNoteKey)
				if notes.Empty() {
					continue
				}
				s.recordChange()
				select {
				case out <- notes:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		s.logger.Error("change stream failed", "area", s.area.Name(), "error", err)
	}))

	return out, nil
}

// Subscribe calls fn for every note change set until ctx is done.
// Subscribers should use the set only as an invalidation signal and re-List.
func (s *Service) Subscribe(ctx context.Context, fn func(ChangeSet)) error {
	ch, err := s.Watch(ctx)
	if err != nil {
		return err
	}
	lifecycle.Go(ctx, func(ctx context.Context) error {
		for cs := range ch {
			fn(cs)
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		s.logger.Error("subscriber failed", "error", err)
	}))
	return nil
}

// Sync asks the area to synchronize with its remote.
func (s *Service) Sync(ctx context.Context) error {
	sy, ok := s.area.(Syncable)
	if !ok {
		return ErrSyncUnsupported
	}
	return sy.Sync(ctx)
}

// Close releases the area when it holds resources.
func (s *Service) Close() error {
	if c, ok := s.area.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Service) trackSubscriber(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers += delta
}

func (s *Service) recordChange() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.lastChange = &now
}

// IsNotFound reports whether err means the note does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
