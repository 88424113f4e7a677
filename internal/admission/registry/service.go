// Package registry maintains document slots: the per-applicant,
// per-requirement bindings that own at most one stored file each.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"matricula/internal/admission/models"
	"matricula/internal/blobstore"
	"matricula/pkg/domain"
	dErrors "matricula/pkg/domain-errors"
	"matricula/pkg/requestcontext"
)

// SlotStore persists document slots.
type SlotStore interface {
	Create(ctx context.Context, sl models.DocumentSlot) (models.DocumentSlot, error)
	Update(ctx context.Context, sl models.DocumentSlot) error
	Get(ctx context.Context, personID domain.PersonID, requirementID domain.RequirementID) (models.DocumentSlot, error)
	GetByID(ctx context.Context, id domain.SlotID) (models.DocumentSlot, error)
	ListByPerson(ctx context.Context, personID domain.PersonID) ([]models.DocumentSlot, error)
}

// RequirementStore persists requirement definitions.
type RequirementStore interface {
	Create(ctx context.Context, def models.RequirementDefinition) (models.RequirementDefinition, error)
	Update(ctx context.Context, def models.RequirementDefinition) error
	FindByID(ctx context.Context, id domain.RequirementID) (models.RequirementDefinition, error)
	List(ctx context.Context) ([]models.RequirementDefinition, error)
}

// Service owns slot records and their backing files. File replacement for one
// slot is serialized on a per-slot lock held for the whole
// delete-old/write-new/update-record sequence.
type Service struct {
	slots        SlotStore
	requirements RequirementStore
	blobs        blobstore.Store
	locks        *keyedMutex
	logger       *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs the slot registry.
func New(slots SlotStore, requirements RequirementStore, blobs blobstore.Store, opts ...Option) (*Service, error) {
	if slots == nil {
		return nil, fmt.Errorf("slot store is required")
	}
	if requirements == nil {
		return nil, fmt.Errorf("requirement store is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	s := &Service{
		slots:        slots,
		requirements: requirements,
		blobs:        blobs,
		locks:        newKeyedMutex(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetOrCreate returns the slot binding the applicant to the requirement,
// creating an empty one if none exists yet.
func (s *Service) GetOrCreate(ctx context.Context, app models.Applicant, requirementID domain.RequirementID) (models.DocumentSlot, error) {
	if app.Number.IsZero() {
		return models.DocumentSlot{}, dErrors.New(dErrors.CodeInvalidInput, "applicant has no allocated number")
	}
	if _, err := s.requirements.FindByID(ctx, requirementID); err != nil {
		return models.DocumentSlot{}, err
	}

	sl, err := s.slots.Get(ctx, app.PersonID, requirementID)
	if err == nil {
		return sl, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return models.DocumentSlot{}, err
	}

	sl, err = s.slots.Create(ctx, models.DocumentSlot{
		PersonID:      app.PersonID,
		RequirementID: requirementID,
		Status:        models.StatusEmpty,
		UpdatedBy:     requestcontext.Actor(ctx).Name,
	})
	if err != nil {
		// Lost a create race; the winner's slot is the slot.
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return s.slots.Get(ctx, app.PersonID, requirementID)
		}
		return models.DocumentSlot{}, err
	}
	return sl, nil
}

// List returns the applicant's slots in insertion order.
func (s *Service) List(ctx context.Context, personID domain.PersonID) ([]models.DocumentSlot, error) {
	return s.slots.ListByPerson(ctx, personID)
}

// GetByID returns one slot.
func (s *Service) GetByID(ctx context.Context, id domain.SlotID) (models.DocumentSlot, error) {
	return s.slots.GetByID(ctx, id)
}

// ReplaceFile swaps the slot's stored file for new content and moves the slot
// to Uploaded. The old blob is deleted first (absence is a warning, not an
// error); a record-update failure after the new blob is written surfaces as
// CodePersistence and leaves the orphan for the consistency sweep.
func (s *Service) ReplaceFile(ctx context.Context, app models.Applicant, req models.RequirementDefinition, content io.Reader, originalName string) (models.DocumentSlot, error) {
	if app.Number.IsZero() {
		return models.DocumentSlot{}, dErrors.New(dErrors.CodeInvalidInput, "applicant has no allocated number")
	}

	unlock := s.locks.lock(slotLockKey(app.PersonID, req.ID))
	defer unlock()

	sl, err := s.GetOrCreate(ctx, app, req.ID)
	if err != nil {
		return models.DocumentSlot{}, err
	}

	newKey := models.DeriveFileKey(app.Number, req.ShortLabel, originalName)

	if sl.HasFile() && *sl.FileKey != newKey {
		s.deleteBlob(ctx, *sl.FileKey)
	}

	if err := s.blobs.Write(ctx, newKey, content); err != nil {
		return models.DocumentSlot{}, dErrors.Wrap(err, dErrors.CodeInternal, "storing document failed")
	}

	sl.FileKey = &newKey
	sl.OriginalName = originalName
	sl.Status = models.StatusUploaded
	sl.UpdatedBy = requestcontext.Actor(ctx).Name
	if err := s.slots.Update(ctx, sl); err != nil {
		// The new blob stays on disk; its name is derivable from slot data,
		// so the sweep can reconcile it.
		return models.DocumentSlot{}, dErrors.Wrap(err, dErrors.CodePersistence, "slot update failed after file write")
	}
	return sl, nil
}

// RemoveFile deletes the slot's stored file and returns the slot to Empty.
func (s *Service) RemoveFile(ctx context.Context, sl models.DocumentSlot) (models.DocumentSlot, error) {
	unlock := s.locks.lock(slotLockKey(sl.PersonID, sl.RequirementID))
	defer unlock()

	sl, err := s.slots.GetByID(ctx, sl.ID)
	if err != nil {
		return models.DocumentSlot{}, err
	}

	if sl.HasFile() {
		s.deleteBlob(ctx, *sl.FileKey)
	}

	sl.FileKey = nil
	sl.OriginalName = ""
	sl.Status = models.StatusEmpty
	sl.UpdatedBy = requestcontext.Actor(ctx).Name
	if err := s.slots.Update(ctx, sl); err != nil {
		return models.DocumentSlot{}, dErrors.Wrap(err, dErrors.CodePersistence, "slot update failed after file delete")
	}
	return sl, nil
}

// OpenFile opens the slot's current stored file.
func (s *Service) OpenFile(ctx context.Context, sl models.DocumentSlot) (io.ReadCloser, error) {
	if !sl.HasFile() {
		return nil, dErrors.New(dErrors.CodeNotFound, "slot has no stored file")
	}
	r, err := s.blobs.Open(ctx, *sl.FileKey)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotExist) {
			// Record points at a missing blob: detectable, not silent.
			return nil, dErrors.New(dErrors.CodePersistence, "stored file is missing from the blob store")
		}
		return nil, err
	}
	return r, nil
}

// CheckConsistency returns the file keys of slots whose record references a
// blob that is no longer present. This is the repair hook for the
// record-written-but-file-lost crash window.
func (s *Service) CheckConsistency(ctx context.Context, personID domain.PersonID) ([]string, error) {
	slots, err := s.slots.ListByPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, sl := range slots {
		if !sl.HasFile() {
			continue
		}
		exists, err := s.blobs.Exists(ctx, *sl.FileKey)
		if err != nil {
			return nil, err
		}
		if !exists {
			missing = append(missing, *sl.FileKey)
		}
	}
	return missing, nil
}

// Requirement loads one requirement definition.
func (s *Service) Requirement(ctx context.Context, id domain.RequirementID) (models.RequirementDefinition, error) {
	return s.requirements.FindByID(ctx, id)
}

// ListRequirements returns every requirement definition.
func (s *Service) ListRequirements(ctx context.Context) ([]models.RequirementDefinition, error) {
	return s.requirements.List(ctx)
}

// CreateRequirement persists an admin-defined requirement.
func (s *Service) CreateRequirement(ctx context.Context, def models.RequirementDefinition) (models.RequirementDefinition, error) {
	if err := def.Validate(); err != nil {
		return models.RequirementDefinition{}, err
	}
	return s.requirements.Create(ctx, def)
}

// UpdateRequirement updates an admin-defined requirement.
func (s *Service) UpdateRequirement(ctx context.Context, def models.RequirementDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	return s.requirements.Update(ctx, def)
}

// deleteBlob removes a blob, downgrading failures to warnings: a missing old
// file must never abort a replacement.
func (s *Service) deleteBlob(ctx context.Context, key string) {
	err := s.blobs.Delete(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, blobstore.ErrNotExist):
		s.logger.WarnContext(ctx, "previous file already absent", "file_key", key)
	default:
		s.logger.WarnContext(ctx, "previous file could not be deleted", "file_key", key, "error", err)
	}
}

func slotLockKey(personID domain.PersonID, requirementID domain.RequirementID) string {
	return personID.String() + "/" + requirementID.String()
}
