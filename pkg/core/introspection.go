package core

import (
	"time"

	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	Area            string     `json:"area"`
	RepositoryType  string     `json:"repository_type"`
	EventBufferSize int        `json:"event_buffer_size"`
	Subscribers     int        `json:"subscribers"`
	LockedKeys      int        `json:"locked_keys"`
	LastChange      *time.Time `json:"last_change,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	areaType := "storage_area"
	if comp, ok := s.area.(introspection.Component); ok {
		areaType = comp.ComponentType()
	}

	return ServiceState{
		Area:            s.area.Name(),
		RepositoryType:  areaType,
		EventBufferSize: s.eventBufferSize,
		Subscribers:     s.subscribers,
		LockedKeys:      s.locks.Len(),
		LastChange:      s.lastChange,
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
