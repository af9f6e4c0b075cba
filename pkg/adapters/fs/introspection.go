package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// AreaState exposes internal state for observability.
type AreaState struct {
	Name          string     `json:"name"`
	Path          string     `json:"path"`
	SystemDir     string     `json:"system_dir"`
	Format        string     `json:"format"`
	Versioned     bool       `json:"versioned"`
	ReadOnly      bool       `json:"read_only"`
	Watchers      int        `json:"watchers"`
	LastReconcile *time.Time `json:"last_reconcile,omitempty"`
}

// State implements introspection.Introspectable.
func (a *Area) State() any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return AreaState{
		Name:          a.config.Name,
		Path:          a.Path,
		SystemDir:     a.config.SystemDir,
		Format:        a.serializer.Ext(),
		Versioned:     a.config.Versioned,
		ReadOnly:      a.config.ReadOnly,
		Watchers:      a.watchers,
		LastReconcile: a.lastReconcile,
	}
}

// ComponentType implements introspection.Component.
func (a *Area) ComponentType() string {
	return "fs_area"
}

var _ introspection.Introspectable = (*Area)(nil)
var _ introspection.Component = (*Area)(nil)

func (a *Area) trackWatcher(delta int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.watchers += delta
}

func (a *Area) recordReconcile() {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := time.Now()
	a.lastReconcile = &now
}
