// Package fs stores an area as a directory with one file per key, optionally
// versioned with git.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/sidenote/pkg/core"
	"github.com/aretw0/sidenote/pkg/git"
)

// DefaultSystemDir holds local state that is never versioned.
const DefaultSystemDir = ".sidenote"

// Config holds the configuration for a directory-backed area.
type Config struct {
	Path        string
	Name        string // Area name reported in change sets; defaults to core.AreaSync.
	Format      string // "json" (default) or "yaml".
	Versioned   bool   // Commit every write to git.
	AutoInit    bool   // Run git init when Versioned and Path is not a repository.
	MustExist   bool
	ReadOnly    bool
	SystemDir   string
	EventBuffer int
	Logger      *slog.Logger
}

// Area implements core.StorageArea on top of a directory.
type Area struct {
	Path       string
	config     Config
	serializer Serializer
	git        *git.Client
	writeMu    sync.Mutex

	mu            sync.RWMutex
	watchers      int
	lastReconcile *time.Time
}

// NewArea creates a directory-backed area. Call Initialize before use.
func NewArea(config Config) (*Area, error) {
	if config.Path == "" {
		return nil, errors.New("area path is required")
	}
	if config.Name == "" {
		config.Name = core.AreaSync
	}
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = core.DefaultEventBuffer
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	serializer, err := SerializerFor(config.Format)
	if err != nil {
		return nil, err
	}

	return &Area{
		Path:       config.Path,
		config:     config,
		serializer: serializer,
		git:        git.NewClient(config.Path, git.DefaultLockName, config.Logger),
	}, nil
}

// Name implements core.StorageArea.
func (a *Area) Name() string {
	return a.config.Name
}

// Initialize creates the directory and, when versioned, the git repository.
func (a *Area) Initialize(ctx context.Context) error {
	if a.config.MustExist {
		info, err := os.Stat(a.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("area path does not exist: %s", a.Path)
		}
		if err != nil {
			return fmt.Errorf("failed to stat area path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("area path is not a directory: %s", a.Path)
		}
	} else if err := os.MkdirAll(a.Path, 0755); err != nil {
		return fmt.Errorf("failed to create area directory: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(a.Path, a.config.SystemDir), 0755); err != nil {
		return fmt.Errorf("failed to create system directory: %w", err)
	}

	if !a.config.Versioned {
		return nil
	}
	if !git.IsInstalled() {
		return errors.New("git is not installed")
	}

	wasNewRepo := false
	if !a.git.IsRepo() {
		if !a.config.AutoInit {
			return fmt.Errorf("path is not a git repository: %s", a.Path)
		}
		if err := a.git.Init(); err != nil {
			return fmt.Errorf("failed to git init: %w", err)
		}
		wasNewRepo = true
	}

	modified, err := a.ensureIgnore()
	if err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}
	if modified && wasNewRepo {
		if err := a.git.Add(".gitignore"); err != nil {
			return fmt.Errorf("failed to add .gitignore: %w", err)
		}
		if err := a.git.Commit(git.FormatMessage(git.CommitTypeChore, "", fmt.Sprintf("configure %s ignore", a.config.SystemDir), "")); err != nil {
			return fmt.Errorf("failed to commit .gitignore: %w", err)
		}
	}
	return nil
}

// ensureIgnore keeps the system dir, lock file and temp files out of git.
func (a *Area) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(a.Path, ".gitignore")
	wanted := []string{a.config.SystemDir + "/", a.git.LockPath(), TempFilePrefix + "*"}

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	existing := strings.Split(string(content), "\n")
	var missing []string
	for _, entry := range wanted {
		if !slices.ContainsFunc(existing, func(line string) bool { return strings.TrimSpace(line) == entry }) {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	var buf bytes.Buffer
	buf.Write(content)
	if len(content) > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		buf.WriteByte('\n')
	}
	for _, entry := range missing {
		buf.WriteString(entry + "\n")
	}
	return true, WriteFileAtomic(ignorePath, buf.Bytes(), 0644)
}

// filename maps a key to its file name. Keys are path-escaped so any key is a
// single file inside the area directory.
func (a *Area) filename(key string) string {
	return url.PathEscape(key) + a.serializer.Ext()
}

// keyFor maps a file path back to its key. It returns false for files that do
// not hold values of this area.
func (a *Area) keyFor(path string) (string, bool) {
	base := filepath.Base(path)
	if filepath.Dir(path) != filepath.Clean(a.Path) && filepath.Dir(path) != "." {
		return "", false
	}
	if isTempFile(base) || strings.HasPrefix(base, ".") {
		return "", false
	}
	if filepath.Ext(base) != a.serializer.Ext() {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(base, a.serializer.Ext()))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

// Get implements core.StorageArea.
func (a *Area) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	return a.read(filepath.Join(a.Path, a.filename(key)))
}

func (a *Area) read(path string) (json.RawMessage, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	value, err := a.serializer.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return value, true, nil
}

// GetAll implements core.StorageArea. Undecodable files are logged and skipped.
func (a *Area) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	entries, err := os.ReadDir(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to list area directory: %w", err)
	}

	out := make(map[string]json.RawMessage, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key, ok := a.keyFor(entry.Name())
		if !ok {
			continue
		}
		value, found, err := a.read(filepath.Join(a.Path, entry.Name()))
		if err != nil {
			a.config.Logger.Warn("skipping unreadable value", "file", entry.Name(), "error", err)
			continue
		}
		if found {
			out[key] = value
		}
	}
	return out, nil
}

// Set implements core.StorageArea. Every file is written atomically; when
// versioned, the batch becomes a single commit whose message is taken from
// core.ChangeReasonKey if present.
func (a *Area) Set(ctx context.Context, items map[string]json.RawMessage) error {
	if a.config.ReadOnly {
		return core.ErrReadOnly
	}
	if len(items) == 0 {
		return nil
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	keys := sortedKeys(items)
	files := make([]string, 0, len(keys))
	for _, key := range keys {
		data, err := a.serializer.Encode(items[key])
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		name := a.filename(key)
		if err := WriteFileAtomic(filepath.Join(a.Path, name), data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
		files = append(files, name)
	}

	return a.commit(ctx, git.FormatMessage(git.CommitTypeDocs, "notes", "update "+strings.Join(keys, ", "), ""), func() error {
		return a.git.Add(files...)
	})
}

// Remove implements core.StorageArea.
func (a *Area) Remove(ctx context.Context, keys ...string) error {
	if a.config.ReadOnly {
		return core.ErrReadOnly
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	var removed []string
	for _, key := range keys {
		name := a.filename(key)
		existed, err := removeFile(filepath.Join(a.Path, name))
		if err != nil {
			return err
		}
		if existed {
			removed = append(removed, name)
		}
	}
	if len(removed) == 0 {
		return nil
	}

	return a.commit(ctx, git.FormatMessage(git.CommitTypeDocs, "notes", "delete "+strings.Join(keys, ", "), ""), func() error {
		return a.git.Rm(removed...)
	})
}

func (a *Area) commit(ctx context.Context, defaultMsg string, stage func() error) error {
	if !a.config.Versioned {
		return nil
	}

	unlock, err := a.git.Lock(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()

	if err := stage(); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}

	msg := defaultMsg
	if val, ok := ctx.Value(core.ChangeReasonKey).(string); ok && val != "" {
		msg = val
	}
	if err := a.git.Commit(msg); err != nil {
		return fmt.Errorf("failed to git commit: %w", err)
	}
	return nil
}

// Sync pulls remote commits and pushes local ones. Watchers report the
// pulled changes.
func (a *Area) Sync(ctx context.Context) error {
	if !a.config.Versioned {
		return core.ErrSyncUnsupported
	}
	if !a.git.IsRepo() {
		return fmt.Errorf("path is not a git repository: %s", a.Path)
	}

	unlock, err := a.git.Lock(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()

	return a.git.Sync()
}

func sortedKeys(items map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

var (
	_ core.StorageArea = (*Area)(nil)
	_ core.Watchable   = (*Area)(nil)
	_ core.Syncable    = (*Area)(nil)
)
