package memory

import (
	"context"
	"slices"
	"sync"

	id "fleetops/pkg/domain"
	audit "fleetops/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByDriver returns a driver's events in append order.
func (s *InMemoryStore) ListByDriver(_ context.Context, driverID id.DriverID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.DriverID == driverID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events), nil
}

// Actions lists the actions recorded for a driver, oldest first.
func (s *InMemoryStore) Actions(driverID id.DriverID) []audit.Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Action
	for _, e := range s.events {
		if e.DriverID == driverID {
			out = append(out, e.Action)
		}
	}
	return out
}
