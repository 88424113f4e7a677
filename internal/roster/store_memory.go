package roster

import (
	"context"
	"sync"
	"time"

	"matricula/pkg/domain"
	dErrors "matricula/pkg/domain-errors"
)

// MemoryStore is an in-process person store used by tests and local
// development.
type MemoryStore struct {
	mu      sync.RWMutex
	persons map[domain.PersonID]Person
}

// NewMemoryStore returns an empty in-memory person store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{persons: make(map[domain.PersonID]Person)}
}

func (s *MemoryStore) Create(ctx context.Context, p Person) (Person, error) {
	if err := p.Validate(); err != nil {
		return Person{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = domain.NewPersonID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.persons[p.ID] = p
	return p, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id domain.PersonID) (Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[id]
	if !ok {
		return Person{}, dErrors.New(dErrors.CodeNotFound, "person not found")
	}
	return p, nil
}

// All returns every stored person. Test helper.
func (s *MemoryStore) All() []Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Person, 0, len(s.persons))
	for _, p := range s.persons {
		out = append(out, p)
	}
	return out
}

func (s *MemoryStore) Delete(ctx context.Context, id domain.PersonID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[id]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "person not found")
	}
	delete(s.persons, id)
	return nil
}
