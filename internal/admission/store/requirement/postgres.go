package requirement

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

// PostgresStore persists requirement definitions in the admission schema.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed requirement store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, def models.RequirementDefinition) (models.RequirementDefinition, error) {
	if def.ID.IsZero() {
		def.ID = domain.NewRequirementID()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO admission.requirements (id, description, short_label, category, verifiable)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, def.ID.String(), def.Description, def.ShortLabel, def.Category, def.Verifiable).Scan(&def.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.RequirementDefinition{}, dErrors.Newf(dErrors.CodeConflict, "short label %q already in use", def.ShortLabel)
		}
		return models.RequirementDefinition{}, fmt.Errorf("insert requirement: %w", err)
	}
	return def, nil
}

func (s *PostgresStore) Update(ctx context.Context, def models.RequirementDefinition) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE admission.requirements
		SET description = $2, short_label = $3, category = $4, verifiable = $5
		WHERE id = $1
	`, def.ID.String(), def.Description, def.ShortLabel, def.Category, def.Verifiable)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return dErrors.Newf(dErrors.CodeConflict, "short label %q already in use", def.ShortLabel)
		}
		return fmt.Errorf("update requirement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update requirement: %w", err)
	}
	if affected == 0 {
		return dErrors.New(dErrors.CodeNotFound, "requirement not found")
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.RequirementID) (models.RequirementDefinition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, description, short_label, category, verifiable, created_at
		FROM admission.requirements
		WHERE id = $1
	`, id.String())
	def, err := scanRequirement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RequirementDefinition{}, dErrors.New(dErrors.CodeNotFound, "requirement not found")
		}
		return models.RequirementDefinition{}, fmt.Errorf("find requirement: %w", err)
	}
	return def, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.RequirementDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, short_label, category, verifiable, created_at
		FROM admission.requirements
		ORDER BY created_at, short_label
	`)
	if err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	defer rows.Close()

	var out []models.RequirementDefinition
	for rows.Next() {
		def, err := scanRequirement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		out = append(out, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequirement(row rowScanner) (models.RequirementDefinition, error) {
	var (
		def models.RequirementDefinition
		id  string
	)
	if err := row.Scan(&id, &def.Description, &def.ShortLabel, &def.Category, &def.Verifiable, &def.CreatedAt); err != nil {
		return models.RequirementDefinition{}, err
	}
	parsed, err := domain.ParseRequirementID(id)
	if err != nil {
		return models.RequirementDefinition{}, err
	}
	def.ID = parsed
	return def, nil
}
