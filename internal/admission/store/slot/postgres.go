package slot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"matricula/internal/admission/models"
	"matricula/pkg/domain"
	dErrors "matricula/pkg/domain-errors"
)

// PostgresStore persists document slots in the admission schema.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed slot store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const slotColumns = `
	id, person_id, requirement_id, file_key, original_name, remarks,
	status, review_status, registrar_confirmed, submitted_documents,
	updated_by, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, sl models.DocumentSlot) (models.DocumentSlot, error) {
	if sl.ID.IsZero() {
		sl.ID = domain.NewSlotID()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO admission.document_slots
			(id, person_id, requirement_id, file_key, original_name, remarks,
			 status, review_status, registrar_confirmed, submitted_documents, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`,
		sl.ID.String(), sl.PersonID.String(), sl.RequirementID.String(),
		sl.FileKey, sl.OriginalName, sl.Remarks,
		sl.Status.String(), sl.ReviewStatus, sl.RegistrarConfirmed, sl.SubmittedDocuments, sl.UpdatedBy,
	).Scan(&sl.CreatedAt, &sl.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.DocumentSlot{}, dErrors.New(dErrors.CodeConflict, "slot already exists for this requirement")
		}
		return models.DocumentSlot{}, fmt.Errorf("insert slot: %w", err)
	}
	return sl, nil
}

func (s *PostgresStore) Update(ctx context.Context, sl models.DocumentSlot) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE admission.document_slots
		SET file_key = $2, original_name = $3, remarks = $4, status = $5,
		    review_status = $6, registrar_confirmed = $7, submitted_documents = $8,
		    updated_by = $9, updated_at = now()
		WHERE id = $1
	`,
		sl.ID.String(), sl.FileKey, sl.OriginalName, sl.Remarks, sl.Status.String(),
		sl.ReviewStatus, sl.RegistrarConfirmed, sl.SubmittedDocuments, sl.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	if affected == 0 {
		return dErrors.New(dErrors.CodeNotFound, "slot not found")
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, personID domain.PersonID, requirementID domain.RequirementID) (models.DocumentSlot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+slotColumns+`
		FROM admission.document_slots
		WHERE person_id = $1 AND requirement_id = $2
	`, personID.String(), requirementID.String())
	return s.scanOne(row)
}

func (s *PostgresStore) GetByID(ctx context.Context, id domain.SlotID) (models.DocumentSlot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+slotColumns+`
		FROM admission.document_slots
		WHERE id = $1
	`, id.String())
	return s.scanOne(row)
}

func (s *PostgresStore) ListByPerson(ctx context.Context, personID domain.PersonID) ([]models.DocumentSlot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+slotColumns+`
		FROM admission.document_slots
		WHERE person_id = $1
		ORDER BY created_at, id
	`, personID.String())
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var out []models.DocumentSlot
	for rows.Next() {
		sl, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		out = append(out, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return out, nil
}

// SetRegistrarState applies the registrar sign-off to every slot of one
// person as a single multi-row UPDATE, so readers never observe a mix of old
// and new status across the applicant's slots. Remarks are left untouched.
func (s *PostgresStore) SetRegistrarState(ctx context.Context, personID domain.PersonID, submitted bool, actor string, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE admission.document_slots
		SET registrar_confirmed = $2,
		    submitted_documents = $2,
		    status = CASE
		        WHEN $2 THEN 'registrar_confirmed'
		        WHEN file_key IS NOT NULL THEN 'uploaded'
		        ELSE 'empty'
		    END,
		    updated_by = $3,
		    updated_at = $4
		WHERE person_id = $1
	`, personID.String(), submitted, actor, now)
	if err != nil {
		return 0, fmt.Errorf("set registrar state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("set registrar state: %w", err)
	}
	return int(affected), nil
}

// DeleteByPerson removes every slot of one person, returning the deleted
// rows so the caller can clean up stored files.
func (s *PostgresStore) DeleteByPerson(ctx context.Context, personID domain.PersonID) ([]models.DocumentSlot, error) {
	rows, err := s.db.QueryContext(ctx, `
		DELETE FROM admission.document_slots
		WHERE person_id = $1
		RETURNING `+slotColumns+`
	`, personID.String())
	if err != nil {
		return nil, fmt.Errorf("delete slots: %w", err)
	}
	defer rows.Close()

	var out []models.DocumentSlot
	for rows.Next() {
		sl, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deleted slot: %w", err)
		}
		out = append(out, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete slots: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) scanOne(row *sql.Row) (models.DocumentSlot, error) {
	sl, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DocumentSlot{}, dErrors.New(dErrors.CodeNotFound, "slot not found")
		}
		return models.DocumentSlot{}, fmt.Errorf("find slot: %w", err)
	}
	return sl, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (models.DocumentSlot, error) {
	var (
		sl            models.DocumentSlot
		id            string
		personID      string
		requirementID string
		status        string
	)
	err := row.Scan(
		&id, &personID, &requirementID, &sl.FileKey, &sl.OriginalName, &sl.Remarks,
		&status, &sl.ReviewStatus, &sl.RegistrarConfirmed, &sl.SubmittedDocuments,
		&sl.UpdatedBy, &sl.CreatedAt, &sl.UpdatedAt,
	)
	if err != nil {
		return models.DocumentSlot{}, err
	}
	if sl.ID, err = domain.ParseSlotID(id); err != nil {
		return models.DocumentSlot{}, err
	}
	if sl.PersonID, err = domain.ParsePersonID(personID); err != nil {
		return models.DocumentSlot{}, err
	}
	if sl.RequirementID, err = domain.ParseRequirementID(requirementID); err != nil {
		return models.DocumentSlot{}, err
	}
	sl.Status = models.SlotStatus(status)
	return sl, nil
}
