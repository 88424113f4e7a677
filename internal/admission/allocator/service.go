// Package allocator mints applicant numbers. Numbers encode the active
// admission period plus a running sequence and are guaranteed never to
// repeat within one period.
package allocator

import (
	"context"
	"fmt"
	"log/slog"

	"matricula/internal/admission/metrics"
	"matricula/internal/admission/models"
	"matricula/pkg/domain"
	dErrors "matricula/pkg/domain-errors"
	"matricula/pkg/secrets"
)

// Store persists applicants. Allocate must assign the next sequence of the
// active period and insert the record as one atomic unit; when it fails, no
// number may leak to the caller.
type Store interface {
	ActivePeriod(ctx context.Context) (domain.Period, error)
	ActivatePeriod(ctx context.Context, p domain.Period) error
	Allocate(ctx context.Context, app models.Applicant) (models.Applicant, error)
}

// Service orchestrates applicant number allocation.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches lifecycle metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the allocator service.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("applicant store is required")
	}
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Allocate mints an applicant number for the person and issues a one-time
// portal access code. The plaintext code is returned exactly once; only its
// hash is stored. On CodeConflict the caller may retry; a fallback number is
// never assigned.
func (s *Service) Allocate(ctx context.Context, personID domain.PersonID, campus domain.Campus) (models.Applicant, string, error) {
	if personID.IsZero() {
		return models.Applicant{}, "", dErrors.New(dErrors.CodeInvalidInput, "person id is required")
	}
	if !campus.IsValid() {
		return models.Applicant{}, "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown campus %q", campus)
	}

	code, err := secrets.GenerateAccessCode()
	if err != nil {
		return models.Applicant{}, "", fmt.Errorf("generate access code: %w", err)
	}
	hash, err := secrets.Hash(code)
	if err != nil {
		return models.Applicant{}, "", fmt.Errorf("hash access code: %w", err)
	}

	app, err := s.store.Allocate(ctx, models.Applicant{
		PersonID:       personID,
		Campus:         campus,
		AccessCodeHash: hash,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.RecordAllocationConflict()
		}
		return models.Applicant{}, "", err
	}

	s.metrics.RecordAllocation(campus.String())
	s.logger.InfoContext(ctx, "applicant number allocated",
		"applicant_number", app.Number.String(),
		"campus", campus.String(),
	)
	return app, code, nil
}

// ActivePeriod exposes the period allocations currently draw from.
func (s *Service) ActivePeriod(ctx context.Context) (domain.Period, error) {
	return s.store.ActivePeriod(ctx)
}

// ActivatePeriod switches allocations to a new admission period. Sequences
// of earlier periods are retained so reactivating one never reuses numbers.
func (s *Service) ActivatePeriod(ctx context.Context, p domain.Period) error {
	if err := s.store.ActivatePeriod(ctx, p); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "admission period activated",
		"year", p.Year,
		"semester_code", p.SemesterCode,
	)
	return nil
}
