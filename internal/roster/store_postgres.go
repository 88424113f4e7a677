package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"matricula/pkg/domain"
	dErrors "matricula/pkg/domain-errors"
)

// PostgresStore persists persons in the enrollment schema, the second logical
// namespace next to admission data.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed person store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, p Person) (Person, error) {
	if err := p.Validate(); err != nil {
		return Person{}, err
	}
	if p.ID.IsZero() {
		p.ID = domain.NewPersonID()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO enrollment.persons (id, first_name, last_name, email, campus)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, p.ID.String(), p.FirstName, p.LastName, p.Email, p.Campus.String()).Scan(&p.CreatedAt)
	if err != nil {
		return Person{}, fmt.Errorf("insert person: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.PersonID) (Person, error) {
	var (
		p      Person
		rawID  string
		campus string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, campus, created_at
		FROM enrollment.persons
		WHERE id = $1
	`, id.String()).Scan(&rawID, &p.FirstName, &p.LastName, &p.Email, &campus, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Person{}, dErrors.New(dErrors.CodeNotFound, "person not found")
		}
		return Person{}, fmt.Errorf("find person: %w", err)
	}
	if p.ID, err = domain.ParsePersonID(rawID); err != nil {
		return Person{}, fmt.Errorf("scan person id: %w", err)
	}
	p.Campus = domain.Campus(campus)
	return p, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.PersonID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM enrollment.persons WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	if affected == 0 {
		return dErrors.New(dErrors.CodeNotFound, "person not found")
	}
	return nil
}
