package audit

import (
	"context"
	"sync"

	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
)

// MemorySink keeps events in memory. It backs the admin audit endpoint and
// serves as the reference sink in tests and development.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Name identifies the sink in logs and health reporting.
func (s *MemorySink) Name() string { return "memory" }

// Append records one event.
func (s *MemorySink) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListBySubject returns all events for a subject in append order.
func (s *MemorySink) ListBySubject(_ context.Context, subjectID id.SubjectID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListRecent returns up to limit events, most recent first.
func (s *MemorySink) ListRecent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}

	out := make([]Event, 0, limit)
	for i := len(s.events) - 1; i >= len(s.events)-limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

// Len returns the number of stored events.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Clear removes all stored events.
func (s *MemorySink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
