// Package lifecycle owns the document slot state machine and the registrar
// bulk transitions. Every successful mutation emits one audit event; emission
// never blocks or fails the transition that produced it.
package lifecycle

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"matricula/internal/admission/metrics"
	"matricula/internal/admission/models"
	"matricula/internal/audit"
	"matricula/internal/blobstore"
	"matricula/internal/mailer"
	"matricula/internal/roster"
	"matricula/pkg/domain"
	dErrors "matricula/pkg/domain-errors"
	"matricula/pkg/email"
	"matricula/pkg/requestcontext"
)

// ApplicantStore resolves and removes applicant records.
type ApplicantStore interface {
	FindByNumber(ctx context.Context, number domain.ApplicantNumber) (models.Applicant, error)
	FindByPerson(ctx context.Context, personID domain.PersonID) (models.Applicant, error)
	Delete(ctx context.Context, personID domain.PersonID) error
}

// SlotStore is the slice of slot persistence the lifecycle needs beyond what
// the registry service covers: direct updates and the transactional bulk
// registrar flip.
type SlotStore interface {
	GetByID(ctx context.Context, id domain.SlotID) (models.DocumentSlot, error)
	Update(ctx context.Context, sl models.DocumentSlot) error
	SetRegistrarState(ctx context.Context, personID domain.PersonID, submitted bool, actor string, now time.Time) (int, error)
	DeleteByPerson(ctx context.Context, personID domain.PersonID) ([]models.DocumentSlot, error)
}

// Allocator mints applicant numbers.
type Allocator interface {
	Allocate(ctx context.Context, personID domain.PersonID, campus domain.Campus) (models.Applicant, string, error)
}

// Registry owns slot records and their backing files.
type Registry interface {
	GetOrCreate(ctx context.Context, app models.Applicant, requirementID domain.RequirementID) (models.DocumentSlot, error)
	List(ctx context.Context, personID domain.PersonID) ([]models.DocumentSlot, error)
	ReplaceFile(ctx context.Context, app models.Applicant, req models.RequirementDefinition, content io.Reader, originalName string) (models.DocumentSlot, error)
	RemoveFile(ctx context.Context, sl models.DocumentSlot) (models.DocumentSlot, error)
	OpenFile(ctx context.Context, sl models.DocumentSlot) (io.ReadCloser, error)
	CheckConsistency(ctx context.Context, personID domain.PersonID) ([]string, error)
	Requirement(ctx context.Context, id domain.RequirementID) (models.RequirementDefinition, error)
	ListRequirements(ctx context.Context) ([]models.RequirementDefinition, error)
}

// PersonStore persists roster persons (enrollment namespace).
type PersonStore interface {
	Create(ctx context.Context, p roster.Person) (roster.Person, error)
	FindByID(ctx context.Context, id domain.PersonID) (roster.Person, error)
	Delete(ctx context.Context, id domain.PersonID) error
}

// Publisher records audit events.
type Publisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service drives registrations and slot transitions.
type Service struct {
	applicants ApplicantStore
	slots      SlotStore
	registry   Registry
	allocator  Allocator
	persons    PersonStore
	blobs      blobstore.Store
	publisher  Publisher
	mail       mailer.Mailer
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches lifecycle metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMailer attaches the outbound mail port.
func WithMailer(m mailer.Mailer) Option {
	return func(s *Service) { s.mail = m }
}

// New constructs the lifecycle service.
func New(
	applicants ApplicantStore,
	slots SlotStore,
	reg Registry,
	alloc Allocator,
	persons PersonStore,
	blobs blobstore.Store,
	publisher Publisher,
	opts ...Option,
) (*Service, error) {
	switch {
	case applicants == nil:
		return nil, fmt.Errorf("applicant store is required")
	case slots == nil:
		return nil, fmt.Errorf("slot store is required")
	case reg == nil:
		return nil, fmt.Errorf("registry is required")
	case alloc == nil:
		return nil, fmt.Errorf("allocator is required")
	case persons == nil:
		return nil, fmt.Errorf("person store is required")
	case blobs == nil:
		return nil, fmt.Errorf("blob store is required")
	case publisher == nil:
		return nil, fmt.Errorf("audit publisher is required")
	}
	s := &Service{
		applicants: applicants,
		slots:      slots,
		registry:   reg,
		allocator:  alloc,
		persons:    persons,
		blobs:      blobs,
		publisher:  publisher,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterInput is one registration request.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Campus    domain.Campus
}

// RegisterResult is what registration hands back: the minted applicant, the
// person record, the pre-created empty slots and the one-time access code.
type RegisterResult struct {
	Applicant  models.Applicant
	Person     roster.Person
	Slots      []models.DocumentSlot
	AccessCode string
}

// Register creates the person, mints an applicant number and initializes an
// empty slot for every requirement that applies to the campus. If allocation
// fails the person record is rolled back; the number never leaks.
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	if in.Email == "" {
		return RegisterResult{}, dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	if !in.Campus.IsValid() {
		return RegisterResult{}, dErrors.Newf(dErrors.CodeInvalidInput, "unknown campus %q", in.Campus)
	}
	if in.FirstName == "" && in.LastName == "" {
		in.FirstName, in.LastName = email.DeriveNameFromEmail(in.Email)
	}

	person, err := s.persons.Create(ctx, roster.Person{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Campus:    in.Campus,
	})
	if err != nil {
		return RegisterResult{}, err
	}

	app, code, err := s.allocator.Allocate(ctx, person.ID, in.Campus)
	if err != nil {
		if delErr := s.persons.Delete(ctx, person.ID); delErr != nil {
			s.logger.WarnContext(ctx, "could not roll back person after failed allocation",
				"person_id", person.ID.String(), "error", delErr)
		}
		return RegisterResult{}, err
	}

	defs, err := s.registry.ListRequirements(ctx)
	if err != nil {
		return RegisterResult{}, err
	}
	var slots []models.DocumentSlot
	for _, def := range defs {
		if !def.AppliesTo(in.Campus) {
			continue
		}
		sl, err := s.registry.GetOrCreate(ctx, app, def.ID)
		if err != nil {
			return RegisterResult{}, err
		}
		slots = append(slots, sl)
	}

	s.emit(ctx, audit.TypeRegister, app.Number,
		fmt.Sprintf("registered for %s campus with %d requirement(s)", in.Campus, len(slots)))
	s.sendAccessCode(ctx, person, app, code)

	return RegisterResult{Applicant: app, Person: person, Slots: slots, AccessCode: code}, nil
}

// Upload stores a document for one requirement, creating the slot lazily and
// moving it to Uploaded. Re-uploads replace the previous file.
func (s *Service) Upload(ctx context.Context, number domain.ApplicantNumber, requirementID domain.RequirementID, content io.Reader, originalName string) (models.DocumentSlot, error) {
	if originalName == "" {
		return models.DocumentSlot{}, dErrors.New(dErrors.CodeInvalidInput, "no file supplied")
	}
	buffered, err := requireBytes(content)
	if err != nil {
		return models.DocumentSlot{}, err
	}

	app, err := s.applicants.FindByNumber(ctx, number)
	if err != nil {
		return models.DocumentSlot{}, err
	}
	req, err := s.registry.Requirement(ctx, requirementID)
	if err != nil {
		return models.DocumentSlot{}, err
	}

	current, err := s.registry.GetOrCreate(ctx, app, requirementID)
	if err != nil {
		return models.DocumentSlot{}, err
	}
	if !current.Status.CanTransition(models.StatusUploaded) {
		return models.DocumentSlot{}, dErrors.Newf(dErrors.CodeInvariantViolation,
			"cannot upload while document is %s", current.Status)
	}

	sl, err := s.registry.ReplaceFile(ctx, app, req, buffered, originalName)
	if err != nil {
		return models.DocumentSlot{}, err
	}

	s.metrics.RecordUpload()
	s.metrics.RecordTransition(models.StatusUploaded.String())
	s.emit(ctx, audit.TypeUpload, app.Number,
		fmt.Sprintf("uploaded %s (%s)", req.Description, originalName))
	audit.Log(ctx, s.logger, "document uploaded",
		"applicant_number", app.Number.String(),
		"requirement", req.ShortLabel,
		"file_key", deref(sl.FileKey),
	)
	return sl, nil
}

// Download opens the current file of one requirement slot.
func (s *Service) Download(ctx context.Context, number domain.ApplicantNumber, requirementID domain.RequirementID) (models.DocumentSlot, io.ReadCloser, error) {
	app, err := s.applicants.FindByNumber(ctx, number)
	if err != nil {
		return models.DocumentSlot{}, nil, err
	}
	sl, err := s.registry.GetOrCreate(ctx, app, requirementID)
	if err != nil {
		return models.DocumentSlot{}, nil, err
	}
	r, err := s.registry.OpenFile(ctx, sl)
	if err != nil {
		return models.DocumentSlot{}, nil, err
	}
	return sl, r, nil
}

// Delete removes the stored file of one requirement slot and returns the
// slot to Empty. Deleting an already-empty slot is a no-op.
func (s *Service) Delete(ctx context.Context, number domain.ApplicantNumber, requirementID domain.RequirementID) (models.DocumentSlot, error) {
	app, err := s.applicants.FindByNumber(ctx, number)
	if err != nil {
		return models.DocumentSlot{}, err
	}
	req, err := s.registry.Requirement(ctx, requirementID)
	if err != nil {
		return models.DocumentSlot{}, err
	}
	sl, err := s.registry.GetOrCreate(ctx, app, requirementID)
	if err != nil {
		return models.DocumentSlot{}, err
	}
	if sl.Status == models.StatusEmpty && !sl.HasFile() {
		return sl, nil
	}

	sl, err = s.registry.RemoveFile(ctx, sl)
	if err != nil {
		return models.DocumentSlot{}, err
	}

	s.metrics.RecordDeletion()
	s.metrics.RecordTransition(models.StatusEmpty.String())
	s.emit(ctx, audit.TypeDelete, app.Number, fmt.Sprintf("deleted %s", req.Description))
	return sl, nil
}

// ReviewInput carries an evaluator's update for one slot. Verdict moves the
// state machine; remarks and review status are carried fields.
type ReviewInput struct {
	Verdict      *models.SlotStatus
	Remarks      *string
	ReviewStatus *string
}

// Review applies an evaluator verdict and/or carried-field updates to one
// slot, recording the acting identity as the last updater.
func (s *Service) Review(ctx context.Context, slotID domain.SlotID, in ReviewInput) (models.DocumentSlot, error) {
	if in.Verdict == nil && in.Remarks == nil && in.ReviewStatus == nil {
		return models.DocumentSlot{}, dErrors.New(dErrors.CodeInvalidInput, "nothing to update")
	}

	sl, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return models.DocumentSlot{}, err
	}

	changedStatus := false
	if in.Verdict != nil {
		verdict := *in.Verdict
		if !verdict.IsReviewVerdict() {
			return models.DocumentSlot{}, dErrors.Newf(dErrors.CodeInvalidInput, "verdict must be %s or %s",
				models.StatusVerified, models.StatusRejected)
		}
		if !sl.Status.CanTransition(verdict) {
			return models.DocumentSlot{}, dErrors.Newf(dErrors.CodeInvariantViolation,
				"cannot move document from %s to %s", sl.Status, verdict)
		}
		sl.Status = verdict
		changedStatus = true
	}
	if in.Remarks != nil {
		sl.Remarks = *in.Remarks
	}
	if in.ReviewStatus != nil {
		sl.ReviewStatus = *in.ReviewStatus
	}
	sl.UpdatedBy = requestcontext.Actor(ctx).Name

	if err := s.slots.Update(ctx, sl); err != nil {
		return models.DocumentSlot{}, err
	}

	if changedStatus {
		s.metrics.RecordTransition(sl.Status.String())
		app, err := s.applicants.FindByPerson(ctx, sl.PersonID)
		if err != nil {
			s.logger.WarnContext(ctx, "status change not audited",
				"person_id", sl.PersonID.String(), "status", sl.Status.String(), "error", err)
		} else {
			s.emit(ctx, audit.TypeStatusChange, app.Number,
				fmt.Sprintf("document marked %s", sl.Status))
		}
	}
	return sl, nil
}

// SubmitAll applies registrar sign-off to every slot of the applicant as one
// all-or-nothing transition.
func (s *Service) SubmitAll(ctx context.Context, number domain.ApplicantNumber) (int, error) {
	return s.setRegistrarState(ctx, number, true)
}

// UnsubmitAll withdraws registrar sign-off from every slot of the applicant.
// Calling it twice yields the same final state as calling it once.
func (s *Service) UnsubmitAll(ctx context.Context, number domain.ApplicantNumber) (int, error) {
	return s.setRegistrarState(ctx, number, false)
}

func (s *Service) setRegistrarState(ctx context.Context, number domain.ApplicantNumber, submitted bool) (int, error) {
	app, err := s.applicants.FindByNumber(ctx, number)
	if err != nil {
		return 0, err
	}

	actor := requestcontext.Actor(ctx)
	n, err := s.slots.SetRegistrarState(ctx, app.PersonID, submitted, actor.Name, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodePersistence, "registrar bulk update failed")
	}

	op, eventType := "unsubmit", audit.TypeUnsubmit
	if submitted {
		op, eventType = "submit", audit.TypeSubmit
	}
	s.metrics.RecordBulkOp(op)
	s.emit(ctx, eventType, app.Number, fmt.Sprintf("registrar %s across %d slot(s)", op, n))
	audit.Log(ctx, s.logger, "registrar bulk "+op,
		"applicant_number", app.Number.String(),
		"slots", n,
	)
	return n, nil
}

// ApplicantStatus is the roll-up one GET returns: the applicant, its slots in
// insertion order and the short labels still missing a file.
type ApplicantStatus struct {
	Applicant        models.Applicant
	Person           roster.Person
	Slots            []models.DocumentSlot
	MissingDocuments []string
}

// Status loads the applicant roll-up.
func (s *Service) Status(ctx context.Context, number domain.ApplicantNumber) (ApplicantStatus, error) {
	app, err := s.applicants.FindByNumber(ctx, number)
	if err != nil {
		return ApplicantStatus{}, err
	}
	person, err := s.persons.FindByID(ctx, app.PersonID)
	if err != nil {
		return ApplicantStatus{}, err
	}
	slots, err := s.registry.List(ctx, app.PersonID)
	if err != nil {
		return ApplicantStatus{}, err
	}

	missing := make([]string, 0)
	for _, sl := range slots {
		if sl.HasFile() {
			continue
		}
		req, err := s.registry.Requirement(ctx, sl.RequirementID)
		if err != nil {
			return ApplicantStatus{}, err
		}
		missing = append(missing, req.ShortLabel)
	}
	return ApplicantStatus{Applicant: app, Person: person, Slots: slots, MissingDocuments: missing}, nil
}

// DeleteApplicant administratively removes the applicant, cascading to every
// slot and stored file. Blob deletions tolerate already-absent files.
func (s *Service) DeleteApplicant(ctx context.Context, number domain.ApplicantNumber) error {
	app, err := s.applicants.FindByNumber(ctx, number)
	if err != nil {
		return err
	}

	slots, err := s.slots.DeleteByPerson(ctx, app.PersonID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "cascade slot delete failed")
	}
	for _, sl := range slots {
		if !sl.HasFile() {
			continue
		}
		if err := s.blobs.Delete(ctx, *sl.FileKey); err != nil && !errors.Is(err, blobstore.ErrNotExist) {
			s.logger.WarnContext(ctx, "cascade file delete failed", "file_key", *sl.FileKey, "error", err)
		}
	}

	if err := s.applicants.Delete(ctx, app.PersonID); err != nil {
		return err
	}
	if err := s.persons.Delete(ctx, app.PersonID); err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return err
	}

	s.emit(ctx, audit.TypeDelete, app.Number, "applicant deleted")
	return nil
}

// CheckConsistency reports slot records whose blob has gone missing.
func (s *Service) CheckConsistency(ctx context.Context, number domain.ApplicantNumber) ([]string, error) {
	app, err := s.applicants.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.registry.CheckConsistency(ctx, app.PersonID)
}

// emit hands an event to the publisher. Audit persistence failures are logged
// and never fail the transition that already happened.
func (s *Service) emit(ctx context.Context, t audit.EventType, number domain.ApplicantNumber, message string) {
	event := audit.NewEvent(t, number, requestcontext.Actor(ctx), message)
	event.At = requestcontext.Now(ctx)
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit event not recorded",
			"event_type", string(t),
			"applicant_number", number.String(),
			"error", err,
		)
	}
}

func (s *Service) sendAccessCode(ctx context.Context, person roster.Person, app models.Applicant, code string) {
	if s.mail == nil {
		return
	}
	msg := mailer.Message{
		ToName:  person.FullName(),
		ToEmail: person.Email,
		Subject: "Your applicant number",
		TextBody: fmt.Sprintf(
			"Hello %s,\n\nYour applicant number is %s. Use access code %s to track your admission requirements.\n",
			person.FullName(), app.Number, code),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "access code mail not sent",
			"applicant_number", app.Number.String(), "error", err)
	}
}

// requireBytes rejects empty uploads without consuming the reader.
func requireBytes(content io.Reader) (io.Reader, error) {
	if content == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "no file supplied")
	}
	br := bufio.NewReader(content)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "no file supplied")
		}
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return br, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
