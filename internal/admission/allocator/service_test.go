package allocator

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	applicantstore "matricula/internal/admission/store/applicant"
	"matricula/pkg/domain"
	dErrors "matricula/pkg/domain-errors"
	"matricula/pkg/secrets"
)

type AllocatorSuite struct {
	suite.Suite
	store   *applicantstore.MemoryStore
	service *Service
}

func TestAllocatorSuite(t *testing.T) {
	suite.Run(t, new(AllocatorSuite))
}

func (s *AllocatorSuite) SetupTest() {
	s.store = applicantstore.NewMemory()
	s.store.SetActivePeriod(domain.Period{Year: 2025, SemesterCode: "1"})

	var err error
	s.service, err = New(s.store, WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	s.Require().NoError(err)
}

func (s *AllocatorSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil)
		s.Error(err)
		s.Contains(err.Error(), "applicant store is required")
	})
}

func (s *AllocatorSuite) TestAllocate() {
	ctx := context.Background()

	s.Run("first allocation of the period", func() {
		app, code, err := s.service.Allocate(ctx, domain.NewPersonID(), domain.CampusMain)
		s.Require().NoError(err)
		s.Equal("2025100001", app.Number.String())
		s.NotEmpty(code)
		s.NoError(secrets.Verify(code, app.AccessCodeHash))
	})

	s.Run("seventh allocation yields 2025100007", func() {
		s.store.SeedSequence(domain.Period{Year: 2025, SemesterCode: "1"}, 6)
		app, _, err := s.service.Allocate(ctx, domain.NewPersonID(), domain.CampusNorth)
		s.Require().NoError(err)
		s.Equal("2025100007", app.Number.String())
	})

	s.Run("rejects unknown campus", func() {
		_, _, err := s.service.Allocate(ctx, domain.NewPersonID(), domain.Campus("downtown"))
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects zero person id", func() {
		_, _, err := s.service.Allocate(ctx, domain.PersonID{}, domain.CampusMain)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("second allocation for same person conflicts", func() {
		personID := domain.NewPersonID()
		_, _, err := s.service.Allocate(ctx, personID, domain.CampusMain)
		s.Require().NoError(err)
		_, _, err = s.service.Allocate(ctx, personID, domain.CampusMain)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *AllocatorSuite) TestAllocateNoActivePeriod() {
	store := applicantstore.NewMemory()
	svc, err := New(store)
	s.Require().NoError(err)

	_, _, err = svc.Allocate(context.Background(), domain.NewPersonID(), domain.CampusMain)
	s.Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

// TestConcurrentAllocationsAreUnique checks the counter serialization.
// Concurrent registrations must never compute the same sequence.
func (s *AllocatorSuite) TestConcurrentAllocationsAreUnique() {
	ctx := context.Background()
	const n = 50

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]bool, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app, _, err := s.service.Allocate(ctx, domain.NewPersonID(), domain.CampusMain)
			s.NoError(err)
			mu.Lock()
			defer mu.Unlock()
			s.False(numbers[app.Number.String()], "duplicate number %s", app.Number)
			numbers[app.Number.String()] = true
		}()
	}
	wg.Wait()

	s.Len(numbers, n)
	s.Equal(n, s.store.Count())
}
