// Package handler wires the admission lifecycle to its HTTP surface.
package handler

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"matricula/internal/admission/lifecycle"
	"matricula/internal/admission/models"
	"matricula/internal/audit"
	"matricula/pkg/domain"
	dErrors "matricula/pkg/domain-errors"
	"matricula/pkg/httputil"
	"matricula/pkg/requestcontext"
)

// maxUploadBytes bounds one document upload.
const maxUploadBytes = 32 << 20

// Service defines the lifecycle operations the HTTP surface exposes.
type Service interface {
	Register(ctx context.Context, in lifecycle.RegisterInput) (lifecycle.RegisterResult, error)
	Upload(ctx context.Context, number domain.ApplicantNumber, requirementID domain.RequirementID, content io.Reader, originalName string) (models.DocumentSlot, error)
	Download(ctx context.Context, number domain.ApplicantNumber, requirementID domain.RequirementID) (models.DocumentSlot, io.ReadCloser, error)
	Delete(ctx context.Context, number domain.ApplicantNumber, requirementID domain.RequirementID) (models.DocumentSlot, error)
	Review(ctx context.Context, slotID domain.SlotID, in lifecycle.ReviewInput) (models.DocumentSlot, error)
	SubmitAll(ctx context.Context, number domain.ApplicantNumber) (int, error)
	UnsubmitAll(ctx context.Context, number domain.ApplicantNumber) (int, error)
	Status(ctx context.Context, number domain.ApplicantNumber) (lifecycle.ApplicantStatus, error)
	DeleteApplicant(ctx context.Context, number domain.ApplicantNumber) error
	CheckConsistency(ctx context.Context, number domain.ApplicantNumber) ([]string, error)
}

// RequirementService defines the requirement admin operations.
type RequirementService interface {
	ListRequirements(ctx context.Context) ([]models.RequirementDefinition, error)
	Requirement(ctx context.Context, id domain.RequirementID) (models.RequirementDefinition, error)
	CreateRequirement(ctx context.Context, def models.RequirementDefinition) (models.RequirementDefinition, error)
	UpdateRequirement(ctx context.Context, def models.RequirementDefinition) error
}

// EventLister reads the audit trail of one applicant.
type EventLister interface {
	List(ctx context.Context, applicantNumber string) ([]audit.Event, error)
}

// PeriodService manages the active admission period.
type PeriodService interface {
	ActivePeriod(ctx context.Context) (domain.Period, error)
	ActivatePeriod(ctx context.Context, p domain.Period) error
}

// Handler wires admission endpoints to the lifecycle service.
type Handler struct {
	service      Service
	requirements RequirementService
	events       EventLister
	periods      PeriodService
	logger       *slog.Logger
}

// New constructs an admission handler with its dependencies.
func New(service Service, requirements RequirementService, events EventLister, periods PeriodService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:      service,
		requirements: requirements,
		events:       events,
		periods:      periods,
		logger:       logger,
	}
}

// Register mounts admission endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/applicants", h.HandleRegister)
	r.Route("/applicants/{number}", func(r chi.Router) {
		r.Get("/", h.HandleStatus)
		r.Delete("/", h.HandleDeleteApplicant)
		r.Get("/audit", h.HandleListEvents)
		r.Get("/consistency", h.HandleConsistency)
		r.Post("/submit", h.HandleSubmit)
		r.Post("/unsubmit", h.HandleUnsubmit)
		r.Route("/documents/{requirementID}", func(r chi.Router) {
			r.Post("/", h.HandleUpload)
			r.Get("/", h.HandleDownload)
			r.Delete("/", h.HandleDelete)
		})
	})
	r.Patch("/documents/{slotID}", h.HandleReview)
	r.Get("/requirements", h.HandleListRequirements)
	r.Post("/requirements", h.HandleCreateRequirement)
	r.Put("/requirements/{requirementID}", h.HandleUpdateRequirement)
	r.Get("/periods/active", h.HandleActivePeriod)
	r.Put("/periods/active", h.HandleActivatePeriod)
}

// HandleRegister handles POST /applicants requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Register(ctx, lifecycle.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Campus:    req.ParsedCampus(),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "registration failed",
			"request_id", requestID,
			"campus", req.Campus,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "applicant registered",
		"request_id", requestID,
		"applicant_number", res.Applicant.Number.String(),
		"campus", req.Campus,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, fromRegisterResult(res))
}

// HandleStatus handles GET /applicants/{number} requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	number, ok := h.pathNumber(w, r)
	if !ok {
		return
	}

	st, err := h.service.Status(ctx, number)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromStatus(st))
}

// HandleDeleteApplicant handles DELETE /applicants/{number} requests.
func (h *Handler) HandleDeleteApplicant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	number, ok := h.pathNumber(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteApplicant(ctx, number); err != nil {
		h.logger.ErrorContext(ctx, "applicant delete failed",
			"request_id", requestcontext.RequestID(ctx),
			"applicant_number", number.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpload handles POST /applicants/{number}/documents/{requirementID}
// requests. The document travels as the multipart field "document".
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	number, ok := h.pathNumber(w, r)
	if !ok {
		return
	}
	requirementID, ok := h.pathRequirementID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("document")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "multipart field \"document\" is required"))
		return
	}
	defer file.Close()

	sl, err := h.service.Upload(ctx, number, requirementID, file, header.Filename)
	if err != nil {
		h.logger.ErrorContext(ctx, "upload failed",
			"request_id", requestID,
			"applicant_number", number.String(),
			"requirement_id", requirementID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSlot(sl))
}

// HandleDownload handles GET /applicants/{number}/documents/{requirementID}
// requests, streaming the stored file back.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	number, ok := h.pathNumber(w, r)
	if !ok {
		return
	}
	requirementID, ok := h.pathRequirementID(w, r)
	if !ok {
		return
	}

	sl, file, err := h.service.Download(ctx, number, requirementID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer file.Close()

	name := sl.OriginalName
	if name == "" && sl.FileKey != nil {
		name = *sl.FileKey
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if _, err := io.Copy(w, file); err != nil {
		h.logger.WarnContext(ctx, "download interrupted",
			"applicant_number", number.String(),
			"error", err,
		)
	}
}

// HandleDelete handles DELETE /applicants/{number}/documents/{requirementID}
// requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	number, ok := h.pathNumber(w, r)
	if !ok {
		return
	}
	requirementID, ok := h.pathRequirementID(w, r)
	if !ok {
		return
	}

	sl, err := h.service.Delete(ctx, number, requirementID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSlot(sl))
}

// HandleReview handles PATCH /documents/{slotID} requests.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	slotID, err := domain.ParseSlotID(chi.URLParam(r, "slotID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[ReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sl, err := h.service.Review(ctx, slotID, lifecycle.ReviewInput{
		Verdict:      req.ParsedVerdict(),
		Remarks:      req.Remarks,
		ReviewStatus: req.ReviewStatus,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSlot(sl))
}

// HandleSubmit handles POST /applicants/{number}/submit requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, h.service.SubmitAll)
}

// HandleUnsubmit handles POST /applicants/{number}/unsubmit requests.
func (h *Handler) HandleUnsubmit(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, h.service.UnsubmitAll)
}

func (h *Handler) bulk(w http.ResponseWriter, r *http.Request, op func(context.Context, domain.ApplicantNumber) (int, error)) {
	ctx := r.Context()
	number, ok := h.pathNumber(w, r)
	if !ok {
		return
	}

	n, err := op(ctx, number)
	if err != nil {
		h.logger.ErrorContext(ctx, "registrar bulk operation failed",
			"request_id", requestcontext.RequestID(ctx),
			"applicant_number", number.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BulkResponse{UpdatedSlots: n})
}

// HandleListEvents handles GET /applicants/{number}/audit requests.
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	number, ok := h.pathNumber(w, r)
	if !ok {
		return
	}

	events, err := h.events.List(ctx, number.String())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromEvents(events))
}

// HandleConsistency handles GET /applicants/{number}/consistency requests.
func (h *Handler) HandleConsistency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	number, ok := h.pathNumber(w, r)
	if !ok {
		return
	}

	missing, err := h.service.CheckConsistency(ctx, number)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if missing == nil {
		missing = []string{}
	}
	httputil.WriteJSON(w, http.StatusOK, ConsistencyResponse{MissingFiles: missing})
}

// HandleListRequirements handles GET /requirements requests.
func (h *Handler) HandleListRequirements(w http.ResponseWriter, r *http.Request) {
	defs, err := h.requirements.ListRequirements(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromRequirements(defs))
}

// HandleCreateRequirement handles POST /requirements requests.
func (h *Handler) HandleCreateRequirement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RequirementRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	def, err := h.requirements.CreateRequirement(ctx, req.Definition())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fromRequirement(def))
}

// HandleUpdateRequirement handles PUT /requirements/{requirementID} requests.
func (h *Handler) HandleUpdateRequirement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	requirementID, ok := h.pathRequirementID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RequirementRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	existing, err := h.requirements.Requirement(ctx, requirementID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	def := req.Definition()
	def.ID = existing.ID
	def.CreatedAt = existing.CreatedAt
	if err := h.requirements.UpdateRequirement(ctx, def); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromRequirement(def))
}

// HandleActivePeriod handles GET /periods/active requests.
func (h *Handler) HandleActivePeriod(w http.ResponseWriter, r *http.Request) {
	p, err := h.periods.ActivePeriod(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromPeriod(p))
}

// HandleActivatePeriod handles PUT /periods/active requests.
func (h *Handler) HandleActivatePeriod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PeriodRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	p := req.Period()
	if err := h.periods.ActivatePeriod(ctx, p); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromPeriod(p))
}

func (h *Handler) pathNumber(w http.ResponseWriter, r *http.Request) (domain.ApplicantNumber, bool) {
	number, err := domain.ParseApplicantNumber(chi.URLParam(r, "number"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return number, true
}

func (h *Handler) pathRequirementID(w http.ResponseWriter, r *http.Request) (domain.RequirementID, bool) {
	id, err := domain.ParseRequirementID(chi.URLParam(r, "requirementID"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.RequirementID{}, false
	}
	return id, true
}
