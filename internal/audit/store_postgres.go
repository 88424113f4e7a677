package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists audit events in the admission schema. The table is
// append-only; this store issues no UPDATE or DELETE statements.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admission.audit_events
			(id, event_type, message, applicant_number, actor_name, actor_contact, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, event.ID, string(event.Type), event.Message, event.ApplicantNumber, event.ActorName, event.ActorContact, event.At)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByApplicant(ctx context.Context, applicantNumber string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_type, message, applicant_number, actor_name, actor_contact, occurred_at
		FROM admission.audit_events
		WHERE applicant_number = $1
		ORDER BY occurred_at, id
	`, applicantNumber)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e         Event
			eventType string
		)
		if err := rows.Scan(&e.ID, &eventType, &e.Message, &e.ApplicantNumber, &e.ActorName, &e.ActorContact, &e.At); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Type = EventType(eventType)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return out, nil
}

var _ Store = (*PostgresStore)(nil)
