// Package sqlite stores areas in a single SQLite database file.
// Several areas can share one file; rows are partitioned by area name.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	_ "modernc.org/sqlite"

	"github.com/aretw0/sidenote/pkg/core"
)

// Config holds the configuration for a SQLite-backed area.
type Config struct {
	Path        string // Database file; ":memory:" keeps it in RAM.
	Name        string // Area name, defaults to core.AreaLocal.
	EventBuffer int
	Logger      *slog.Logger
}

// Area implements core.StorageArea on a SQLite table.
type Area struct {
	config Config
	hub    *core.Hub

	mu sync.RWMutex
	db *sql.DB
}

// NewArea creates an area. The database is opened by Initialize.
func NewArea(config Config) (*Area, error) {
	if config.Path == "" {
		return nil, errors.New("database path is required")
	}
	if config.Name == "" {
		config.Name = core.AreaLocal
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Area{
		config: config,
		hub:    core.NewHub(config.EventBuffer),
	}, nil
}

// Name implements core.StorageArea.
func (a *Area) Name() string { return a.config.Name }

// Initialize opens the database and applies the schema.
func (a *Area) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db != nil {
		return nil
	}

	if a.config.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(a.config.Path), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite registers itself as "sqlite".
	db, err := sql.Open("sqlite", a.config.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps the pragmas in effect and gives ":memory:" a
	// single shared database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	a.db = db
	a.config.Logger.Debug("sqlite area ready", "path", a.config.Path, "area", a.config.Name)
	return nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			area TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL,
			PRIMARY KEY (area, key)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

func (a *Area) conn() (*sql.DB, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.db == nil {
		return nil, errors.New("sqlite area is not initialized")
	}
	return a.db, nil
}

// Get implements core.StorageArea.
func (a *Area) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	db, err := a.conn()
	if err != nil {
		return nil, false, err
	}
	var value string
	err = db.QueryRowContext(ctx, `SELECT value FROM kv WHERE area = ? AND key = ?`, a.config.Name, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return json.RawMessage(value), true, nil
}

// GetAll implements core.StorageArea.
func (a *Area) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	db, err := a.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM kv WHERE area = ?`, a.config.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list values: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		out[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list values: %w", err)
	}
	return out, nil
}

// Set implements core.StorageArea. The batch is applied in one transaction.
func (a *Area) Set(ctx context.Context, items map[string]json.RawMessage) error {
	if len(items) == 0 {
		return nil
	}
	for key, value := range items {
		if !json.Valid(value) {
			return fmt.Errorf("value of %s is not valid json", key)
		}
	}

	cs := core.NewChangeSet(a.config.Name)
	err := a.inTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UnixMilli()
		for key, value := range items {
			old, had, err := readTx(ctx, tx, a.config.Name, key)
			if err != nil {
				return err
			}
			if had && bytes.Equal(old, value) {
				continue
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO kv (area, key, value, updated_at_unixms) VALUES (?, ?, ?, ?)
				 ON CONFLICT(area, key) DO UPDATE SET value = excluded.value, updated_at_unixms = excluded.updated_at_unixms`,
				a.config.Name, key, string(value), now)
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", key, err)
			}
			change := core.Change{NewValue: bytes.Clone(value)}
			if had {
				change.OldValue = old
			}
			cs.Changes[key] = change
		}
		return nil
	})
	if err != nil {
		return err
	}
	a.hub.Publish(cs)
	return nil
}

// Remove implements core.StorageArea.
func (a *Area) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	cs := core.NewChangeSet(a.config.Name)
	err := a.inTx(ctx, func(tx *sql.Tx) error {
		for _, key := range keys {
			old, had, err := readTx(ctx, tx, a.config.Name, key)
			if err != nil {
				return err
			}
			if !had {
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE area = ? AND key = ?`, a.config.Name, key); err != nil {
				return fmt.Errorf("failed to delete %s: %w", key, err)
			}
			cs.Changes[key] = core.Change{OldValue: old}
		}
		return nil
	})
	if err != nil {
		return err
	}
	a.hub.Publish(cs)
	return nil
}

func (a *Area) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db, err := a.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func readTx(ctx context.Context, tx *sql.Tx, area, key string) (json.RawMessage, bool, error) {
	var value string
	err := tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE area = ? AND key = ?`, area, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return json.RawMessage(value), true, nil
}

// Watch implements core.Watchable. Only writes made through this Area are
// reported; other processes sharing the file are not observed.
func (a *Area) Watch(ctx context.Context, pattern string) (<-chan core.ChangeSet, error) {
	return a.hub.Watch(ctx, pattern)
}

// Close closes the database.
func (a *Area) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// AreaState exposes internal state for observability.
type AreaState struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Open     bool   `json:"open"`
	Watchers int    `json:"watchers"`
}

// State implements introspection.Introspectable.
func (a *Area) State() any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return AreaState{
		Name:     a.config.Name,
		Path:     a.config.Path,
		Open:     a.db != nil,
		Watchers: a.hub.Len(),
	}
}

// ComponentType implements introspection.Component.
func (a *Area) ComponentType() string {
	return "sqlite_area"
}

var (
	_ core.StorageArea             = (*Area)(nil)
	_ core.Watchable               = (*Area)(nil)
	_ io.Closer                    = (*Area)(nil)
	_ introspection.Introspectable = (*Area)(nil)
	_ introspection.Component      = (*Area)(nil)
)
