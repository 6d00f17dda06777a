package store

import (
	"context"
	"sort"
	"sync"

	"github.com/markcoleman/Aggregator-the-agitator/internal/consent/models"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/platform/sentinel"
)

// InMemoryStore keeps consent records in process memory. It is the reference
// Store implementation: a single RWMutex guards the maps, and every record
// that crosses the boundary is cloned in both directions.
//
// Subject and client indexes only ever grow at Create, since a record's
// subject and client are immutable.
type InMemoryStore struct {
	mu        sync.RWMutex
	records   map[id.ConsentID]*models.Record
	bySubject map[id.SubjectID][]id.ConsentID
	byClient  map[id.ClientID][]id.ConsentID
}

// NewInMemoryStore creates an empty in-memory consent store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records:   make(map[id.ConsentID]*models.Record),
		bySubject: make(map[id.SubjectID][]id.ConsentID),
		byClient:  make(map[id.ClientID][]id.ConsentID),
	}
}

// Create stores a new record. Returns sentinel.ErrConflict when the ID is
// already taken.
func (s *InMemoryStore) Create(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrConflict
	}

	s.records[record.ID] = record.Clone()
	s.bySubject[record.SubjectID] = append(s.bySubject[record.SubjectID], record.ID)
	s.byClient[record.ClientID] = append(s.byClient[record.ClientID], record.ID)
	return nil
}

// FindByID returns a copy of the record, or sentinel.ErrNotFound.
func (s *InMemoryStore) FindByID(_ context.Context, consentID id.ConsentID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[consentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return record.Clone(), nil
}

// Update persists the record's status and updatedAt. The stored audit trail
// is left untouched.
func (s *InMemoryStore) Update(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[record.ID]
	if !ok {
		return sentinel.ErrNotFound
	}

	stored.Status = record.Status
	stored.UpdatedAt = record.UpdatedAt
	return nil
}

// AddAuditEntry appends one entry to the record's trail.
func (s *InMemoryStore) AddAuditEntry(_ context.Context, consentID id.ConsentID, entry models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[consentID]
	if !ok {
		return sentinel.ErrNotFound
	}

	stored.AuditTrail = append(stored.AuditTrail, entry)
	return nil
}

// FindBySubject returns copies of the subject's records, newest first.
func (s *InMemoryStore) FindBySubject(_ context.Context, subjectID id.SubjectID) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.bySubject[subjectID]), nil
}

// FindByClient returns copies of the client's records, newest first.
func (s *InMemoryStore) FindByClient(_ context.Context, clientID id.ClientID) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byClient[clientID]), nil
}

// collect resolves index entries into cloned records ordered newest
// createdAt first, ties broken by ascending ID. Callers hold at least a
// read lock.
func (s *InMemoryStore) collect(ids []id.ConsentID) []*models.Record {
	out := make([]*models.Record, 0, len(ids))
	for _, consentID := range ids {
		if record, ok := s.records[consentID]; ok {
			out = append(out, record.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
