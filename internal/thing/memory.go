package thing

import (
	"context"
	"sync"
)

// MemoryStore keeps things in an in-memory slice with a monotonic
// identifier counter. Nothing survives a restart.
type MemoryStore struct {
	mu     sync.Mutex
	items  []Thing
	nextID int64
}

// NewMemoryStore creates an empty in-memory store.
// Identifiers start at 1 and are never reused.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Insert stores a new thing and returns its assigned identifier.
func (s *MemoryStore) Insert(_ context.Context, t Thing) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := t.Clone()
	id := s.nextID
	s.nextID++
	stored.SetID(id)
	s.items = append(s.items, stored)
	return id, nil
}

// Replace swaps the thing with the given identifier, keeping its position.
func (s *MemoryStore) Replace(_ context.Context, id int64, t Thing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.items {
		if eid, ok := existing.ID(); ok && eid == id {
			stored := t.Clone()
			stored.SetID(id)
			s.items[i] = stored
			return nil
		}
	}
	return nil // missing identifier: silent no-op
}

// Remove deletes the thing with the given identifier.
func (s *MemoryStore) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.items {
		if eid, ok := existing.ID(); ok && eid == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return nil
}

// List returns all things in insertion order.
func (s *MemoryStore) List(_ context.Context) ([]Thing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]Thing, 0, len(s.items))
	for _, t := range s.items {
		items = append(items, t.Clone())
	}
	return items, nil
}

// Persist is a no-op: the memory backend has no durable medium.
func (s *MemoryStore) Persist(_ context.Context) error {
	return nil
}
