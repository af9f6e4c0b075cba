package editor

import (
	"io"
	"log/slog"
	"time"

	"github.com/atotto/clipboard"

	"github.com/aretw0/sidenote/pkg/core"
)

// Default timings.
const (
	DefaultDebounce      = time.Second
	DefaultFlashDuration = 2 * time.Second
)

// Clipboard is the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

type options struct {
	debounce     time.Duration
	flash        time.Duration
	logger       *slog.Logger
	now          func() time.Time
	clipboard    Clipboard
	onSave       func(core.Note)
	flushOnClose bool
}

// Option configures a Session.
type Option func(*options)

func defaultOptions() options {
	return options{
		debounce:     DefaultDebounce,
		flash:        DefaultFlashDuration,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:          time.Now,
		clipboard:    systemClipboard{},
		flushOnClose: true,
	}
}

// WithDebounce sets the quiet period after the last edit before autosave.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithFlashDuration sets how long the Saved and Copied flags stay up.
func WithFlashDuration(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.flash = d
		}
	}
}

// WithLogger sets the logger for failed saves and copies.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithClipboard replaces the system clipboard.
func WithClipboard(c Clipboard) Option {
	return func(o *options) {
		if c != nil {
			o.clipboard = c
		}
	}
}

// WithOnSave registers a callback run after every successful save.
func WithOnSave(fn func(core.Note)) Option {
	return func(o *options) {
		o.onSave = fn
	}
}

// WithFlushOnClose controls whether Close saves pending edits (default true).
func WithFlushOnClose(flush bool) Option {
	return func(o *options) {
		o.flushOnClose = flush
	}
}
