// Package slot persists document slots, the per-applicant per-requirement
// bindings that track one document each.
package slot

import (
	"context"
	"sync"
	"time"

	"matricula/internal/admission/models"
	"matricula/pkg/domain"
	dErrors "matricula/pkg/domain-errors"
)

type slotKey struct {
	person      domain.PersonID
	requirement domain.RequirementID
}

// MemoryStore is an in-process slot store used by tests and local
// development. Bulk registrar updates mutate every slot of a person under one
// lock, matching the transactional guarantee of the Postgres store.
type MemoryStore struct {
	mu       sync.Mutex
	byID     map[domain.SlotID]models.DocumentSlot
	byKey    map[slotKey]domain.SlotID
	byPerson map[domain.PersonID][]domain.SlotID // insertion order
}

// NewMemory returns an empty in-memory slot store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[domain.SlotID]models.DocumentSlot),
		byKey:    make(map[slotKey]domain.SlotID),
		byPerson: make(map[domain.PersonID][]domain.SlotID),
	}
}

func (s *MemoryStore) Create(ctx context.Context, sl models.DocumentSlot) (models.DocumentSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotKey{person: sl.PersonID, requirement: sl.RequirementID}
	if _, exists := s.byKey[key]; exists {
		return models.DocumentSlot{}, dErrors.New(dErrors.CodeConflict, "slot already exists for this requirement")
	}
	if sl.ID.IsZero() {
		sl.ID = domain.NewSlotID()
	}
	now := time.Now()
	if sl.CreatedAt.IsZero() {
		sl.CreatedAt = now
	}
	if sl.UpdatedAt.IsZero() {
		sl.UpdatedAt = now
	}
	s.byID[sl.ID] = sl
	s.byKey[key] = sl.ID
	s.byPerson[sl.PersonID] = append(s.byPerson[sl.PersonID], sl.ID)
	return sl, nil
}

func (s *MemoryStore) Update(ctx context.Context, sl models.DocumentSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[sl.ID]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "slot not found")
	}
	sl.UpdatedAt = time.Now()
	s.byID[sl.ID] = sl
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, personID domain.PersonID, requirementID domain.RequirementID) (models.DocumentSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byKey[slotKey{person: personID, requirement: requirementID}]
	if !ok {
		return models.DocumentSlot{}, dErrors.New(dErrors.CodeNotFound, "slot not found")
	}
	return s.byID[id], nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id domain.SlotID) (models.DocumentSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.byID[id]
	if !ok {
		return models.DocumentSlot{}, dErrors.New(dErrors.CodeNotFound, "slot not found")
	}
	return sl, nil
}

func (s *MemoryStore) ListByPerson(ctx context.Context, personID domain.PersonID) ([]models.DocumentSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.byPerson[personID]
	out := make([]models.DocumentSlot, 0, len(ids))
	for _, id := range ids {
		if sl, ok := s.byID[id]; ok {
			out = append(out, sl)
		}
	}
	return out, nil
}

// SetRegistrarState applies the registrar sign-off to every slot of one
// person atomically. Submitted slots all move to RegistrarConfirmed;
// unsubmitting returns each slot to Uploaded or Empty depending on whether it
// holds a file. Remarks are left untouched.
func (s *MemoryStore) SetRegistrarState(ctx context.Context, personID domain.PersonID, submitted bool, actor string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byPerson[personID]
	for _, id := range ids {
		sl, ok := s.byID[id]
		if !ok {
			continue
		}
		sl.RegistrarConfirmed = submitted
		sl.SubmittedDocuments = submitted
		if submitted {
			sl.Status = models.StatusRegistrarConfirmed
		} else if sl.HasFile() {
			sl.Status = models.StatusUploaded
		} else {
			sl.Status = models.StatusEmpty
		}
		sl.UpdatedBy = actor
		sl.UpdatedAt = now
		s.byID[id] = sl
	}
	return len(ids), nil
}

func (s *MemoryStore) DeleteByPerson(ctx context.Context, personID domain.PersonID) ([]models.DocumentSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byPerson[personID]
	out := make([]models.DocumentSlot, 0, len(ids))
	for _, id := range ids {
		sl, ok := s.byID[id]
		if !ok {
			continue
		}
		out = append(out, sl)
		delete(s.byID, id)
		delete(s.byKey, slotKey{person: sl.PersonID, requirement: sl.RequirementID})
	}
	delete(s.byPerson, personID)
	return out, nil
}
