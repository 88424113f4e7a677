// Package audit records lifecycle transitions as immutable events and fans
// them out to live subscribers. Persistence of the audit row is the only
// durable guarantee; broadcast is fire-and-forget.
package audit

import (
	"time"

	"github.com/google/uuid"

	"matricula/pkg/domain"
)

// EventType classifies a lifecycle transition.
type EventType string

const (
	TypeRegister     EventType = "register"
	TypeUpload       EventType = "upload"
	TypeDelete       EventType = "delete"
	TypeSubmit       EventType = "submit"
	TypeUnsubmit     EventType = "unsubmit"
	TypeStatusChange EventType = "status_change"
)

// Event is an immutable record of one lifecycle transition. Events are
// append-only; nothing in this package updates or deletes them.
type Event struct {
	ID              uuid.UUID `json:"id"`
	Type            EventType `json:"type"`
	Message         string    `json:"message"`
	ApplicantNumber string    `json:"applicant_number"`
	ActorName       string    `json:"actor_name"`
	ActorContact    string    `json:"actor_contact,omitempty"`
	At              time.Time `json:"at"`
}

// NewEvent builds an event attributed to the given actor.
func NewEvent(t EventType, number domain.ApplicantNumber, actor domain.Actor, message string) Event {
	actor = actor.OrSystem()
	return Event{
		ID:              uuid.New(),
		Type:            t,
		Message:         message,
		ApplicantNumber: number.String(),
		ActorName:       actor.Name,
		ActorContact:    actor.Contact,
	}
}
