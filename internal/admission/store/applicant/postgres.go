package applicant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"matricula/internal/admission/models"
	"matricula/pkg/domain"
	dErrors "matricula/pkg/domain-errors"
)

// PostgresStore persists applicants in the admission schema. Allocation uses
// a per-period counter row updated atomically inside one transaction, with
// the unique constraint on applicant_number as a backstop; a plain
// count-then-insert is never issued.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed applicant store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const pgUniqueViolation = "23505"

func (s *PostgresStore) ActivePeriod(ctx context.Context) (domain.Period, error) {
	var p domain.Period
	err := s.db.QueryRowContext(ctx, `
		SELECT year, semester_code
		FROM admission.periods
		WHERE active
	`).Scan(&p.Year, &p.SemesterCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Period{}, dErrors.New(dErrors.CodeInvariantViolation, "no active admission period")
		}
		return domain.Period{}, fmt.Errorf("load active period: %w", err)
	}
	return p, nil
}

// ActivatePeriod upserts p and makes it the single active period. Both steps
// run in one transaction so readers never observe zero or two active rows
// outside the swap.
func (s *PostgresStore) ActivatePeriod(ctx context.Context, p domain.Period) error {
	if err := p.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin period activation: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE admission.periods SET active = false WHERE active
	`); err != nil {
		return fmt.Errorf("deactivate current period: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO admission.periods (year, semester_code, active)
		VALUES ($1, $2, true)
		ON CONFLICT (year, semester_code) DO UPDATE SET active = true
	`, p.Year, p.SemesterCode); err != nil {
		return fmt.Errorf("activate period: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit period activation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Allocate(ctx context.Context, app models.Applicant) (models.Applicant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Applicant{}, fmt.Errorf("begin allocation: %w", err)
	}
	defer tx.Rollback()

	var period domain.Period
	err = tx.QueryRowContext(ctx, `
		SELECT year, semester_code
		FROM admission.periods
		WHERE active
	`).Scan(&period.Year, &period.SemesterCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Applicant{}, dErrors.New(dErrors.CodeInvariantViolation, "no active admission period")
		}
		return models.Applicant{}, fmt.Errorf("load active period: %w", err)
	}

	// Atomic increment-and-read scoped to the period key. Concurrent
	// transactions serialize on this row.
	var seq int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO admission.period_counters (year, semester_code, last_seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (year, semester_code)
		DO UPDATE SET last_seq = admission.period_counters.last_seq + 1
		RETURNING last_seq
	`, period.Year, period.SemesterCode).Scan(&seq)
	if err != nil {
		return models.Applicant{}, fmt.Errorf("advance period counter: %w", err)
	}

	number, err := domain.FormatApplicantNumber(period, seq)
	if err != nil {
		return models.Applicant{}, err
	}
	app.Number = number

	err = tx.QueryRowContext(ctx, `
		INSERT INTO admission.applicants (person_id, applicant_number, campus, access_code_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, app.PersonID.String(), app.Number.String(), app.Campus.String(), app.AccessCodeHash).Scan(&app.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Applicant{}, dErrors.Wrap(err, dErrors.CodeConflict, "applicant number already issued")
		}
		return models.Applicant{}, fmt.Errorf("insert applicant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		// The computed number is not leaked to the caller on failure.
		return models.Applicant{}, fmt.Errorf("commit allocation: %w", err)
	}
	return app, nil
}

func (s *PostgresStore) FindByNumber(ctx context.Context, number domain.ApplicantNumber) (models.Applicant, error) {
	return s.find(ctx, `WHERE applicant_number = $1`, number.String())
}

func (s *PostgresStore) FindByPerson(ctx context.Context, personID domain.PersonID) (models.Applicant, error) {
	return s.find(ctx, `WHERE person_id = $1`, personID.String())
}

func (s *PostgresStore) find(ctx context.Context, where string, arg any) (models.Applicant, error) {
	var (
		app      models.Applicant
		personID string
		number   string
		campus   string
	)
	query := `
		SELECT person_id, applicant_number, campus, access_code_hash, created_at
		FROM admission.applicants ` + where
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&personID, &number, &campus, &app.AccessCodeHash, &app.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Applicant{}, dErrors.New(dErrors.CodeNotFound, "applicant not found")
		}
		return models.Applicant{}, fmt.Errorf("find applicant: %w", err)
	}
	if app.PersonID, err = domain.ParsePersonID(personID); err != nil {
		return models.Applicant{}, fmt.Errorf("scan applicant person id: %w", err)
	}
	app.Number = domain.ApplicantNumber(number)
	app.Campus = domain.Campus(campus)
	return app, nil
}

func (s *PostgresStore) Delete(ctx context.Context, personID domain.PersonID) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM admission.applicants WHERE person_id = $1
	`, personID.String())
	if err != nil {
		return fmt.Errorf("delete applicant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete applicant: %w", err)
	}
	if affected == 0 {
		return dErrors.New(dErrors.CodeNotFound, "applicant not found")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
