package handler

import (
	"time"

	"matricula/internal/admission/lifecycle"
	"matricula/internal/admission/models"
	"matricula/internal/audit"
	"matricula/internal/roster"
	"matricula/pkg/domain"
)

// RegisterResponse is the HTTP response for POST /applicants. AccessCode is
// returned exactly once, here; only its hash is stored.
type RegisterResponse struct {
	ApplicantNumber string         `json:"applicant_number"`
	AccessCode      string         `json:"access_code"`
	Person          PersonResponse `json:"person"`
	Slots           []SlotResponse `json:"slots"`
}

// PersonResponse is the roster portion of applicant responses.
type PersonResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Campus    string `json:"campus"`
}

// SlotResponse is one document slot in HTTP shape.
type SlotResponse struct {
	ID                 string    `json:"id"`
	RequirementID      string    `json:"requirement_id"`
	FileKey            *string   `json:"file_key,omitempty"`
	OriginalName       string    `json:"original_name,omitempty"`
	Status             string    `json:"status"`
	Remarks            string    `json:"remarks,omitempty"`
	ReviewStatus       string    `json:"review_status,omitempty"`
	RegistrarConfirmed bool      `json:"registrar_confirmed"`
	SubmittedDocuments bool      `json:"submitted_documents"`
	UpdatedBy          string    `json:"updated_by,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// StatusResponse is the HTTP response for GET /applicants/{number}.
type StatusResponse struct {
	ApplicantNumber  string         `json:"applicant_number"`
	Campus           string         `json:"campus"`
	Person           PersonResponse `json:"person"`
	Slots            []SlotResponse `json:"slots"`
	MissingDocuments []string       `json:"missing_documents"`
}

// BulkResponse is the HTTP response for the registrar submit/unsubmit
// endpoints.
type BulkResponse struct {
	UpdatedSlots int `json:"updated_slots"`
}

// RequirementResponse is one requirement definition in HTTP shape.
type RequirementResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	ShortLabel  string `json:"short_label"`
	Category    string `json:"category"`
	Verifiable  bool   `json:"verifiable"`
}

// EventResponse is one audit event in HTTP shape.
type EventResponse struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Message         string    `json:"message"`
	ApplicantNumber string    `json:"applicant_number"`
	ActorName       string    `json:"actor_name"`
	At              time.Time `json:"at"`
}

// PeriodResponse is one admission period in HTTP shape.
type PeriodResponse struct {
	Year         int    `json:"year"`
	SemesterCode string `json:"semester_code"`
	Prefix       string `json:"prefix"`
}

// ConsistencyResponse is the HTTP response for the consistency sweep.
type ConsistencyResponse struct {
	MissingFiles []string `json:"missing_files"`
}

func fromPerson(p roster.Person) PersonResponse {
	return PersonResponse{
		ID:        p.ID.String(),
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Campus:    p.Campus.String(),
	}
}

func fromSlot(sl models.DocumentSlot) SlotResponse {
	return SlotResponse{
		ID:                 sl.ID.String(),
		RequirementID:      sl.RequirementID.String(),
		FileKey:            sl.FileKey,
		OriginalName:       sl.OriginalName,
		Status:             sl.Status.String(),
		Remarks:            sl.Remarks,
		ReviewStatus:       sl.ReviewStatus,
		RegistrarConfirmed: sl.RegistrarConfirmed,
		SubmittedDocuments: sl.SubmittedDocuments,
		UpdatedBy:          sl.UpdatedBy,
		UpdatedAt:          sl.UpdatedAt,
	}
}

func fromSlots(slots []models.DocumentSlot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, sl := range slots {
		out = append(out, fromSlot(sl))
	}
	return out
}

func fromRegisterResult(res lifecycle.RegisterResult) RegisterResponse {
	return RegisterResponse{
		ApplicantNumber: res.Applicant.Number.String(),
		AccessCode:      res.AccessCode,
		Person:          fromPerson(res.Person),
		Slots:           fromSlots(res.Slots),
	}
}

func fromStatus(st lifecycle.ApplicantStatus) StatusResponse {
	missing := st.MissingDocuments
	if missing == nil {
		missing = []string{}
	}
	return StatusResponse{
		ApplicantNumber:  st.Applicant.Number.String(),
		Campus:           st.Applicant.Campus.String(),
		Person:           fromPerson(st.Person),
		Slots:            fromSlots(st.Slots),
		MissingDocuments: missing,
	}
}

func fromRequirement(def models.RequirementDefinition) RequirementResponse {
	return RequirementResponse{
		ID:          def.ID.String(),
		Description: def.Description,
		ShortLabel:  def.ShortLabel,
		Category:    def.Category,
		Verifiable:  def.Verifiable,
	}
}

func fromRequirements(defs []models.RequirementDefinition) []RequirementResponse {
	out := make([]RequirementResponse, 0, len(defs))
	for _, def := range defs {
		out = append(out, fromRequirement(def))
	}
	return out
}

func fromPeriod(p domain.Period) PeriodResponse {
	return PeriodResponse{Year: p.Year, SemesterCode: p.SemesterCode, Prefix: p.Prefix()}
}

func fromEvents(events []audit.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse{
			ID:              e.ID.String(),
			Type:            string(e.Type),
			Message:         e.Message,
			ApplicantNumber: e.ApplicantNumber,
			ActorName:       e.ActorName,
			At:              e.At,
		})
	}
	return out
}
