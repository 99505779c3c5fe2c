package events

import (
	"context"
	"sync"
)

// MemoryStore keeps emitted events in memory. Used in tests and in
// deployments that do not need an event log.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, ev Event) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return ev, nil
}

// All returns a copy of the recorded events.
func (s *MemoryStore) All() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
