// Package roster holds person records in the enrollment namespace. The
// admission core references persons by opaque PersonID; everything else about
// enrollment stays outside this repository.
package roster

import (
	"time"

	"matricula/pkg/domain"
	dErrors "matricula/pkg/domain-errors"
)

// Person is the identity record an applicant is anchored to.
type Person struct {
	ID        domain.PersonID
	FirstName string
	LastName  string
	Email     string
	Campus    domain.Campus
	CreatedAt time.Time
}

// Validate enforces the fields registration requires.
func (p Person) Validate() error {
	if p.Email == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	if !p.Campus.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown campus %q", p.Campus)
	}
	return nil
}

// FullName renders the display name used in notifications.
func (p Person) FullName() string {
	if p.FirstName == "" && p.LastName == "" {
		return p.Email
	}
	return p.FirstName + " " + p.LastName
}
