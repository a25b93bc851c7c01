package persona

import (
	"errors"
	"sync"
)

var ErrPersonaNotFound = errors.New("persona not found")

// Store exposes persona retrieval and profile edits for HTTP handlers.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
	Update(p Persona) (Persona, error)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns every known contact.
func (s *MemoryStore) List() []Persona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

// Update replaces the stored profile with the same ID.
func (s *MemoryStore) Update(p Persona) (Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == p.ID {
			s.items[i] = p
			return p, nil
		}
	}
	return Persona{}, ErrPersonaNotFound
}
