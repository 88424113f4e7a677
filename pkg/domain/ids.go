// Package domain holds the typed identifiers and small value objects shared
// by every admission component.
//
// IDs are distinct uuid-backed types so a PersonID can never be passed where
// a SlotID is expected. Construct them via the Parse functions at trust
// boundaries; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "matricula/pkg/domain-errors"
)

type (
	// PersonID identifies a roster person record (enrollment namespace).
	PersonID uuid.UUID

	// RequirementID identifies a requirement definition.
	RequirementID uuid.UUID

	// SlotID identifies one applicant/requirement document slot.
	SlotID uuid.UUID
)

// NewPersonID mints a random person identifier.
func NewPersonID() PersonID { return PersonID(uuid.New()) }

// NewRequirementID mints a random requirement identifier.
func NewRequirementID() RequirementID { return RequirementID(uuid.New()) }

// NewSlotID mints a random slot identifier.
func NewSlotID() SlotID { return SlotID(uuid.New()) }

// ParsePersonID parses external input into a PersonID.
func ParsePersonID(s string) (PersonID, error) {
	u, err := parseUUID(s, "person id")
	return PersonID(u), err
}

// ParseRequirementID parses external input into a RequirementID.
func ParseRequirementID(s string) (RequirementID, error) {
	u, err := parseUUID(s, "requirement id")
	return RequirementID(u), err
}

// ParseSlotID parses external input into a SlotID.
func ParseSlotID(s string) (SlotID, error) {
	u, err := parseUUID(s, "slot id")
	return SlotID(u), err
}

func (id PersonID) String() string      { return uuid.UUID(id).String() }
func (id RequirementID) String() string { return uuid.UUID(id).String() }
func (id SlotID) String() string        { return uuid.UUID(id).String() }

func (id PersonID) IsZero() bool      { return uuid.UUID(id) == uuid.Nil }
func (id RequirementID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id SlotID) IsZero() bool        { return uuid.UUID(id) == uuid.Nil }

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be nil", what)
	}
	return u, nil
}
