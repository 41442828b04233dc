package series

import (
	"slices"
	"sync"
)

// Entity is one fund: a stable code, the latest display name and its series.
type Entity struct {
	Code   int64
	Name   string
	Series *Series
}

// Store holds the entities of one batch keyed by code.
type Store struct {
	mu       sync.RWMutex
	entities map[int64]*Entity
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entities: make(map[int64]*Entity)}
}

// Put adds or replaces an entity.
func (s *Store) Put(e *Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[e.Code] = e
}

// Get returns the entity for code.
func (s *Store) Get(code int64) (*Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[code]
	return e, ok
}

// Remove deletes the entity for code.
func (s *Store) Remove(code int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entities, code)
}

// Len returns the number of entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Codes returns all codes in ascending order.
func (s *Store) Codes() []int64 {
	s.mu.RLock()
	codes := make([]int64, 0, len(s.entities))
	for code := range s.entities {
		codes = append(codes, code)
	}
	s.mu.RUnlock()
	slices.Sort(codes)
	return codes
}

// Entities returns all entities ordered by code.
func (s *Store) Entities() []*Entity {
	codes := s.Codes()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entity, 0, len(codes))
	for _, code := range codes {
		out = append(out, s.entities[code])
	}
	return out
}

// Names returns the code to name lookup table.
func (s *Store) Names() map[int64]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make(map[int64]string, len(s.entities))
	for code, e := range s.entities {
		names[code] = e.Name
	}
	return names
}
