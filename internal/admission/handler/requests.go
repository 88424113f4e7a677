package handler

import (
	"strings"

	"matricula/internal/admission/models"
	"matricula/pkg/domain"
	dErrors "matricula/pkg/domain-errors"
)

// RegisterRequest is the HTTP request body for POST /applicants.
type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Campus    string `json:"campus"`

	parsedCampus domain.Campus
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterRequest) Validate() error {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)

	if r.Email == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	if !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeInvalidInput, "email must contain @")
	}

	campus, err := domain.ParseCampus(strings.TrimSpace(r.Campus))
	if err != nil {
		return err
	}
	r.parsedCampus = campus
	return nil
}

// ParsedCampus returns the validated campus.
func (r *RegisterRequest) ParsedCampus() domain.Campus {
	return r.parsedCampus
}

// ReviewRequest is the HTTP request body for PATCH /documents/{slotID}. All
// fields are optional but at least one must be present.
type ReviewRequest struct {
	Verdict      *string `json:"verdict,omitempty"`
	Remarks      *string `json:"remarks,omitempty"`
	ReviewStatus *string `json:"review_status,omitempty"`

	parsedVerdict *models.SlotStatus
}

// Validate validates and parses the request.
func (r *ReviewRequest) Validate() error {
	if r.Verdict == nil && r.Remarks == nil && r.ReviewStatus == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "nothing to update")
	}
	if r.Verdict != nil {
		st, err := models.ParseSlotStatus(strings.TrimSpace(*r.Verdict))
		if err != nil {
			return err
		}
		r.parsedVerdict = &st
	}
	return nil
}

// ParsedVerdict returns the validated verdict, or nil when none was sent.
func (r *ReviewRequest) ParsedVerdict() *models.SlotStatus {
	return r.parsedVerdict
}

// PeriodRequest is the HTTP request body for PUT /periods/active.
type PeriodRequest struct {
	Year         int    `json:"year"`
	SemesterCode string `json:"semester_code"`
}

// Validate validates the request.
func (r *PeriodRequest) Validate() error {
	r.SemesterCode = strings.TrimSpace(r.SemesterCode)
	return r.Period().Validate()
}

// Period builds the domain period from the request.
func (r *PeriodRequest) Period() domain.Period {
	return domain.Period{Year: r.Year, SemesterCode: r.SemesterCode}
}

// RequirementRequest is the HTTP request body for POST /requirements and
// PUT /requirements/{requirementID}.
type RequirementRequest struct {
	Description string `json:"description"`
	ShortLabel  string `json:"short_label"`
	Category    string `json:"category"`
	Verifiable  bool   `json:"verifiable"`
}

// Validate validates the request. Short-label shape is enforced by the model.
func (r *RequirementRequest) Validate() error {
	r.Description = strings.TrimSpace(r.Description)
	r.ShortLabel = strings.TrimSpace(r.ShortLabel)
	r.Category = strings.TrimSpace(r.Category)
	if r.Category == "" {
		r.Category = models.CategoryRegular
	}

	def := r.Definition()
	return def.Validate()
}

// Definition builds the domain definition from the request.
func (r *RequirementRequest) Definition() models.RequirementDefinition {
	return models.RequirementDefinition{
		Description: r.Description,
		ShortLabel:  r.ShortLabel,
		Category:    r.Category,
		Verifiable:  r.Verifiable,
	}
}
