package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/sidenote/pkg/core"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = "fs"
	AdapterMemory = "memory"
	AdapterSQLite = "sqlite"
	AdapterRedis  = "redis"
)

// Adapters lists the supported adapters.
var Adapters = []string{AdapterFS, AdapterMemory, AdapterSQLite, AdapterRedis}

// options holds the internal configuration of a sidenote stack.
type options struct {
	syncArea    core.StorageArea
	localArea   core.StorageArea
	logger      *slog.Logger
	clock       func() time.Time
	adapter     string
	format      string
	versioning  *bool
	autoInit    bool
	mustExist   bool
	readOnly    bool
	forceTemp   bool
	devSafety   bool
	systemDir   string
	eventBuffer int
	redisURL    string
	namespace   string
	localPath   string
}

// Option defines a functional option for configuring sidenote.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		adapter:   AdapterFS,
		devSafety: true,
	}
}

func newOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithArea injects the synchronized storage area, skipping the adapter factory.
func WithArea(area core.StorageArea) Option {
	return func(o *options) {
		o.syncArea = area
	}
}

// WithLocalArea injects the local (per-device) storage area used for preferences.
func WithLocalArea(area core.StorageArea) Option {
	return func(o *options) {
		o.localArea = area
	}
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock overrides the time source of the note service.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithAdapter selects the storage adapter by name: "fs" (default),
// "memory", "sqlite" or "redis".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithFormat selects the file format of the fs adapter ("json" or "yaml").
func WithFormat(format string) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithVersioning enables or disables git versioning of the fs adapter.
// When unset, versioning follows the presence of a .git directory.
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		o.versioning = &enabled
	}
}

// WithAutoInit creates the directory (and git repository when versioned).
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.autoInit = auto
	}
}

// WithMustExist fails when the directory does not exist yet.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithReadOnly rejects every write with core.ErrReadOnly.
// The dev sandbox is bypassed in this mode.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = enabled
	}
}

// WithForceTemp forces the fs adapter into a temporary directory.
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or
// `go test`. By default the fs adapter is re-rooted into a temporary directory.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithSystemDir sets the hidden directory of the fs adapter.
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.systemDir = name
	}
}

// WithEventBuffer sets the buffer size of change subscriptions.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithRedisURL sets the connection URL of the redis adapter.
func WithRedisURL(url string) Option {
	return func(o *options) {
		o.redisURL = url
	}
}

// WithNamespace sets the key namespace of the redis adapter.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithLocalPath stores the local area in a SQLite database at path.
func WithLocalPath(path string) Option {
	return func(o *options) {
		o.localPath = path
	}
}
