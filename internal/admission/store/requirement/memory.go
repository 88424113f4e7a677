// Package requirement persists requirement definitions.
package requirement

import (
	"context"
	"sort"
	"sync"
	"time"

	"matricula/internal/admission/models"
	"matricula/pkg/domain"
	dErrors "matricula/pkg/domain-errors"
)

// MemoryStore is an in-process requirement store used by tests and local
// development.
type MemoryStore struct {
	mu   sync.RWMutex
	defs map[domain.RequirementID]models.RequirementDefinition
}

// NewMemory returns an empty in-memory requirement store.
func NewMemory() *MemoryStore {
	return &MemoryStore{defs: make(map[domain.RequirementID]models.RequirementDefinition)}
}

func (s *MemoryStore) Create(ctx context.Context, def models.RequirementDefinition) (models.RequirementDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if def.ID.IsZero() {
		def.ID = domain.NewRequirementID()
	}
	if def.CreatedAt.IsZero() {
		def.CreatedAt = time.Now()
	}
	for _, existing := range s.defs {
		if existing.ShortLabel == def.ShortLabel {
			return models.RequirementDefinition{}, dErrors.Newf(dErrors.CodeConflict, "short label %q already in use", def.ShortLabel)
		}
	}
	s.defs[def.ID] = def
	return def, nil
}

func (s *MemoryStore) Update(ctx context.Context, def models.RequirementDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defs[def.ID]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "requirement not found")
	}
	for id, existing := range s.defs {
		if id != def.ID && existing.ShortLabel == def.ShortLabel {
			return dErrors.Newf(dErrors.CodeConflict, "short label %q already in use", def.ShortLabel)
		}
	}
	prev := s.defs[def.ID]
	def.CreatedAt = prev.CreatedAt
	s.defs[def.ID] = def
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id domain.RequirementID) (models.RequirementDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.defs[id]
	if !ok {
		return models.RequirementDefinition{}, dErrors.New(dErrors.CodeNotFound, "requirement not found")
	}
	return def, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]models.RequirementDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.RequirementDefinition, 0, len(s.defs))
	for _, def := range s.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ShortLabel < out[j].ShortLabel
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
