// Package applicant persists applicant records, admission periods and the
// per-period allocation counters.
package applicant

import (
	"context"
	"sync"
	"time"

	"matricula/internal/admission/models"
	"matricula/pkg/domain"
	dErrors "matricula/pkg/domain-errors"
)

// MemoryStore is an in-process applicant store used by tests and local
// development. It gives the same allocation guarantees as the Postgres store:
// the counter increment and the insert happen under one lock, so concurrent
// allocations never repeat a sequence.
type MemoryStore struct {
	mu         sync.Mutex
	active     *domain.Period
	counters   map[string]int // period prefix -> last issued sequence
	byPerson   map[domain.PersonID]models.Applicant
	byNumber   map[domain.ApplicantNumber]domain.PersonID
	insertions []domain.PersonID
}

// NewMemory returns an empty in-memory applicant store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]int),
		byPerson: make(map[domain.PersonID]models.Applicant),
		byNumber: make(map[domain.ApplicantNumber]domain.PersonID),
	}
}

// SetActivePeriod marks the admission period allocations draw from.
func (s *MemoryStore) SetActivePeriod(p domain.Period) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = &p
}

// ActivatePeriod marks p as the period allocations draw from, replacing any
// previously active one.
func (s *MemoryStore) ActivatePeriod(ctx context.Context, p domain.Period) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = &p
	return nil
}

// SeedSequence pre-positions a period's counter. Test helper.
func (s *MemoryStore) SeedSequence(p domain.Period, lastIssued int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[p.Prefix()] = lastIssued
}

func (s *MemoryStore) ActivePeriod(ctx context.Context) (domain.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return domain.Period{}, dErrors.New(dErrors.CodeInvariantViolation, "no active admission period")
	}
	return *s.active, nil
}

// Allocate assigns the next applicant number of the active period to app and
// persists the record, all under one lock. The input's Number field is
// ignored; the stored value is returned.
func (s *MemoryStore) Allocate(ctx context.Context, app models.Applicant) (models.Applicant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return models.Applicant{}, dErrors.New(dErrors.CodeInvariantViolation, "no active admission period")
	}
	if _, exists := s.byPerson[app.PersonID]; exists {
		return models.Applicant{}, dErrors.New(dErrors.CodeConflict, "person already has an applicant number")
	}

	period := *s.active
	seq := s.counters[period.Prefix()] + 1
	number, err := domain.FormatApplicantNumber(period, seq)
	if err != nil {
		return models.Applicant{}, err
	}
	if _, dup := s.byNumber[number]; dup {
		return models.Applicant{}, dErrors.New(dErrors.CodeConflict, "applicant number already issued")
	}

	s.counters[period.Prefix()] = seq
	app.Number = number
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now()
	}
	s.byPerson[app.PersonID] = app
	s.byNumber[number] = app.PersonID
	s.insertions = append(s.insertions, app.PersonID)
	return app, nil
}

func (s *MemoryStore) FindByNumber(ctx context.Context, number domain.ApplicantNumber) (models.Applicant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	personID, ok := s.byNumber[number]
	if !ok {
		return models.Applicant{}, dErrors.New(dErrors.CodeNotFound, "applicant not found")
	}
	return s.byPerson[personID], nil
}

func (s *MemoryStore) FindByPerson(ctx context.Context, personID domain.PersonID) (models.Applicant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.byPerson[personID]
	if !ok {
		return models.Applicant{}, dErrors.New(dErrors.CodeNotFound, "applicant not found")
	}
	return app, nil
}

func (s *MemoryStore) Delete(ctx context.Context, personID domain.PersonID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.byPerson[personID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "applicant not found")
	}
	delete(s.byPerson, personID)
	delete(s.byNumber, app.Number)
	return nil
}

// Count reports the number of stored applicants. Test helper.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byPerson)
}
