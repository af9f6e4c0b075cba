package sidenote

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/sidenote/internal/platform"
	"github.com/aretw0/sidenote/pkg/core"
	"github.com/aretw0/sidenote/pkg/editor"
	"github.com/aretw0/sidenote/pkg/prefs"
	"github.com/aretw0/sidenote/pkg/view"
)

// --- Types ---

// Note is a public alias for the note entity.
type Note = core.Note

// Service is a public alias for the note storage service.
type Service = core.Service

// Stack is a wired note service plus preference store.
type Stack = platform.Stack

// Preferences is a public alias for the user preferences.
type Preferences = prefs.Preferences

// Config is the on-disk configuration of a notes directory.
type Config = platform.Config

// --- Configuration ---

// Option defines a functional option for configuring sidenote.
type Option = platform.Option

// Adapter names.
const (
	AdapterFS     = platform.AdapterFS
	AdapterMemory = platform.AdapterMemory
	AdapterSQLite = platform.AdapterSQLite
	AdapterRedis  = platform.AdapterRedis
)

// WithArea injects the synchronized storage area.
func WithArea(area core.StorageArea) Option {
	return platform.WithArea(area)
}

// WithLocalArea injects the local storage area used for preferences.
func WithLocalArea(area core.StorageArea) Option {
	return platform.WithLocalArea(area)
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return platform.WithClock(now)
}

// WithAdapter selects the storage adapter by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithFormat selects the file format of the fs adapter.
func WithFormat(format string) Option {
	return platform.WithFormat(format)
}

// WithVersioning enables or disables git versioning of the fs adapter.
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithAutoInit creates the directory (and git repository when versioned).
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithMustExist fails when the directory does not exist yet.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithReadOnly rejects every write.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithForceTemp forces the use of a temporary directory.
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithDevSafety controls the sandbox used under `go run` and `go test`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithSystemDir sets the hidden directory of the fs adapter.
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithEventBuffer sets the buffer size of change subscriptions.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithRedisURL sets the connection URL of the redis adapter.
func WithRedisURL(url string) Option {
	return platform.WithRedisURL(url)
}

// WithNamespace sets the key namespace of the redis adapter.
func WithNamespace(ns string) Option {
	return platform.WithNamespace(ns)
}

// WithLocalPath stores preferences in a SQLite database at path.
func WithLocalPath(path string) Option {
	return platform.WithLocalPath(path)
}

// --- Factory ---

// New opens the synchronized area at uri and returns its note service.
func New(uri string, opts ...Option) (*core.Service, error) {
	return platform.New(uri, opts...)
}

// Open wires the note service and the preference store.
func Open(ctx context.Context, uri string, opts ...Option) (*Stack, error) {
	return platform.Open(ctx, uri, opts...)
}

// NewReconciler creates the view state of a stack. Call Start on the result.
func NewReconciler(stack *Stack, opts ...view.Option) *view.Reconciler {
	return view.New(stack.Notes, stack.Prefs, opts...)
}

// NewSession opens an editor session on n outside of a reconciler.
func NewSession(ctx context.Context, svc *core.Service, n Note, opts ...editor.Option) *editor.Session {
	return editor.New(ctx, svc, n, opts...)
}

// --- Configuration files ---

// LoadConfig reads a .sidenote.yaml file.
func LoadConfig(path string) (Config, error) {
	return platform.LoadConfig(path)
}

// FindRoot looks upwards for a notes root.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// --- Safety & Utils ---

// ResolvePath determines the actual directory of the fs adapter.
func ResolvePath(userPath string, forceTemp bool) string {
	return platform.ResolvePath(userPath, forceTemp)
}

// IsDevRun reports whether the process runs via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}
