// Package models defines the admission domain entities: applicants,
// requirement definitions and document slots.
package models

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"matricula/pkg/domain"
	dErrors "matricula/pkg/domain-errors"
)

// Applicant binds a roster person to an allocated applicant number. The
// number is immutable once assigned; deleting an applicant cascades to its
// slots and stored files.
type Applicant struct {
	PersonID       domain.PersonID
	Number         domain.ApplicantNumber
	Campus         domain.Campus
	AccessCodeHash string
	CreatedAt      time.Time
}

// shortLabelRe constrains labels to tokens that are safe inside filenames.
var shortLabelRe = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// RequirementDefinition is a named document type an applicant may need to
// submit. ShortLabel is the stable machine token used to build filenames; it
// is an attribute, never recomputed from the description.
type RequirementDefinition struct {
	ID          domain.RequirementID
	Description string
	ShortLabel  string
	Category    string // "Regular" or a campus name for campus-specific requirements
	Verifiable  bool
	CreatedAt   time.Time
}

// CategoryRegular marks requirements every applicant must fulfill regardless
// of campus.
const CategoryRegular = "Regular"

// Validate enforces the definition shape admins may persist.
func (r RequirementDefinition) Validate() error {
	if r.Description == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "requirement description is required")
	}
	if r.ShortLabel == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "requirement short label is required")
	}
	if !shortLabelRe.MatchString(r.ShortLabel) {
		return dErrors.Newf(dErrors.CodeInvalidInput, "short label %q contains filename-unsafe characters", r.ShortLabel)
	}
	if r.Category == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "requirement category is required")
	}
	return nil
}

// AppliesTo reports whether an applicant registering for the given campus
// must fulfill this requirement.
func (r RequirementDefinition) AppliesTo(campus domain.Campus) bool {
	return r.Category == CategoryRegular || r.Category == campus.String()
}

// DocumentSlot is the binding between one applicant and one requirement. A
// slot owns at most one stored file at a time; FileKey is nil exactly when no
// file is stored.
type DocumentSlot struct {
	ID            domain.SlotID
	PersonID      domain.PersonID
	RequirementID domain.RequirementID
	FileKey       *string
	OriginalName  string
	Remarks       string
	Status        SlotStatus
	ReviewStatus  string

	// Registrar sign-off state. These are set all-or-nothing across every
	// slot of one applicant; a reader must never observe a mix.
	RegistrarConfirmed bool
	SubmittedDocuments bool

	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasFile reports whether the slot currently owns a stored file.
func (s DocumentSlot) HasFile() bool { return s.FileKey != nil && *s.FileKey != "" }

// DeriveFileKey builds the deterministic blob key for a slot's stored file:
// {applicantNumber}_{shortLabel}_{year}{ext}. Every physical filename is
// derivable from slot data so a consistency sweep can reconcile orphans.
func DeriveFileKey(number domain.ApplicantNumber, shortLabel, originalName string) string {
	ext := filepath.Ext(originalName)
	return fmt.Sprintf("%s_%s_%d%s", number, shortLabel, number.Year(), ext)
}
