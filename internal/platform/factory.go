package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/sidenote/pkg/adapters/fs"
	"github.com/aretw0/sidenote/pkg/adapters/memory"
	"github.com/aretw0/sidenote/pkg/adapters/redis"
	"github.com/aretw0/sidenote/pkg/adapters/sqlite"
	"github.com/aretw0/sidenote/pkg/core"
	"github.com/aretw0/sidenote/pkg/prefs"
)

// LocalDBName is the SQLite file holding the local area next to an fs or
// sqlite sync area.
const LocalDBName = "local.db"

// Stack is a fully wired sidenote backend.
type Stack struct {
	Notes *core.Service
	Prefs *prefs.Store
	Sync  core.StorageArea
	Local core.StorageArea
}

// Close releases both areas.
func (s *Stack) Close() error {
	var errs []error
	for _, area := range []core.StorageArea{s.Sync, s.Local} {
		if c, ok := area.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// New opens the synchronized area at uri and returns its note service.
// The uri is adapter-specific: a directory for fs, a database file for
// sqlite, a redis URL for redis. It is ignored by memory.
//
//	svc, err := sidenote.New("./notes", sidenote.WithVersioning(false))
func New(uri string, opts ...Option) (*core.Service, error) {
	o := newOptions(opts)
	area, err := openSync(context.Background(), uri, o)
	if err != nil {
		return nil, err
	}
	return newService(area, o), nil
}

// Open wires the note service and the preference store.
func Open(ctx context.Context, uri string, opts ...Option) (*Stack, error) {
	o := newOptions(opts)
	area, err := openSync(ctx, uri, o)
	if err != nil {
		return nil, err
	}

	local, err := openLocal(ctx, uri, o, area)
	if err != nil {
		if c, ok := area.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}

	return &Stack{
		Notes: newService(area, o),
		Prefs: prefs.NewStore(local),
		Sync:  area,
		Local: local,
	}, nil
}

func newService(area core.StorageArea, o *options) *core.Service {
	svcOpts := []core.ServiceOption{core.WithLogger(o.logger), core.WithEventBuffer(o.eventBuffer)}
	if o.clock != nil {
		svcOpts = append(svcOpts, core.WithClock(o.clock))
	}
	return core.NewService(area, svcOpts...)
}

func (o *options) log() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}

// openSync builds and initializes the synchronized area.
func openSync(ctx context.Context, uri string, o *options) (core.StorageArea, error) {
	if o.syncArea != nil {
		return o.syncArea, nil
	}

	var area core.StorageArea
	switch o.adapter {
	case AdapterFS, "":
		a, err := newFSArea(uri, o)
		if err != nil {
			return nil, err
		}
		area = a
	case AdapterMemory:
		area = memory.New(core.AreaSync, memory.WithEventBuffer(o.eventBuffer))
	case AdapterSQLite:
		a, err := sqlite.NewArea(sqlite.Config{
			Path:        uri,
			Name:        core.AreaSync,
			EventBuffer: o.eventBuffer,
			Logger:      o.logger,
		})
		if err != nil {
			return nil, err
		}
		area = a
	case AdapterRedis:
		a, err := newRedisArea(ctx, uri, core.AreaSync, o)
		if err != nil {
			return nil, err
		}
		area = a
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}

	if err := area.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize %s area: %w", o.adapter, err)
	}
	return area, nil
}

// openLocal builds the per-device area. It lives in SQLite unless the sync
// area is ephemeral or remote.
func openLocal(ctx context.Context, uri string, o *options, syncArea core.StorageArea) (core.StorageArea, error) {
	if o.localArea != nil {
		return o.localArea, nil
	}

	path := o.localPath
	if path == "" {
		switch a := syncArea.(type) {
		case *fs.Area:
			if o.readOnly {
				return memory.New(core.AreaLocal), nil
			}
			systemDir := o.systemDir
			if systemDir == "" {
				systemDir = fs.DefaultSystemDir
			}
			dir := filepath.Join(a.Path, systemDir)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create system directory: %w", err)
			}
			path = filepath.Join(dir, LocalDBName)
		case *sqlite.Area:
			path = uri
		case *redis.Area:
			return newRedisLocal(ctx, uri, o)
		default:
			return memory.New(core.AreaLocal, memory.WithEventBuffer(o.eventBuffer)), nil
		}
	}

	local, err := sqlite.NewArea(sqlite.Config{
		Path:        path,
		Name:        core.AreaLocal,
		EventBuffer: o.eventBuffer,
		Logger:      o.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := local.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize local area: %w", err)
	}
	return local, nil
}

func newRedisLocal(ctx context.Context, uri string, o *options) (core.StorageArea, error) {
	area, err := newRedisArea(ctx, uri, core.AreaLocal, o)
	if err != nil {
		return nil, err
	}
	if err := area.Initialize(ctx); err != nil {
		_ = area.Close()
		return nil, fmt.Errorf("failed to initialize local area: %w", err)
	}
	return area, nil
}

func newFSArea(uri string, o *options) (*fs.Area, error) {
	bypass := o.readOnly || !o.devSafety
	useTemp := o.forceTemp || (IsDevRun() && !bypass)
	path := ResolvePath(uri, useTemp)

	logger := o.log()
	if IsDevRun() {
		if bypass {
			logger.Debug("dev sandbox bypassed", "path", path, "read_only", o.readOnly)
		} else {
			logger.Debug("dev sandbox enabled", "path", path)
		}
	}

	return fs.NewArea(fs.Config{
		Path:        path,
		Name:        core.AreaSync,
		Format:      o.format,
		Versioned:   detectVersioning(path, o),
		AutoInit:    o.autoInit,
		MustExist:   o.mustExist,
		ReadOnly:    o.readOnly,
		SystemDir:   o.systemDir,
		EventBuffer: o.eventBuffer,
		Logger:      o.logger,
	})
}

// detectVersioning honors an explicit setting; otherwise a directory is
// versioned when it already is a git repository.
func detectVersioning(path string, o *options) bool {
	if o.versioning != nil {
		return *o.versioning
	}
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

func newRedisArea(ctx context.Context, uri, name string, o *options) (*redis.Area, error) {
	url := o.redisURL
	if url == "" {
		url = uri
	}
	rdb, err := redis.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	return redis.NewArea(rdb, redis.Config{
		Namespace:   o.namespace,
		Name:        name,
		EventBuffer: o.eventBuffer,
		Logger:      o.logger,
		OwnsClient:  true,
	}), nil
}
