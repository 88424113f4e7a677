package registry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"matricula/internal/admission/models"
	applicantstore "matricula/internal/admission/store/applicant"
	requirementstore "matricula/internal/admission/store/requirement"
	slotstore "matricula/internal/admission/store/slot"
	"matricula/internal/blobstore"
	"matricula/pkg/domain"
	dErrors "matricula/pkg/domain-errors"
)

type RegistrySuite struct {
	suite.Suite
	slots        *slotstore.MemoryStore
	requirements *requirementstore.MemoryStore
	blobs        *blobstore.Memory
	service      *Service

	applicant models.Applicant
	form138   models.RequirementDefinition
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	ctx := context.Background()

	s.slots = slotstore.NewMemory()
	s.requirements = requirementstore.NewMemory()
	s.blobs = blobstore.NewMemory()

	var err error
	s.service, err = New(s.slots, s.requirements, s.blobs,
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	s.Require().NoError(err)

	apps := applicantstore.NewMemory()
	apps.SetActivePeriod(domain.Period{Year: 2025, SemesterCode: "1"})
	apps.SeedSequence(domain.Period{Year: 2025, SemesterCode: "1"}, 6)
	s.applicant, err = apps.Allocate(ctx, models.Applicant{PersonID: domain.NewPersonID(), Campus: domain.CampusMain})
	s.Require().NoError(err)
	s.Require().Equal("2025100007", s.applicant.Number.String())

	s.form138, err = s.requirements.Create(ctx, models.RequirementDefinition{
		Description: "Form 138 (Report Card)",
		ShortLabel:  "Form138",
		Category:    models.CategoryRegular,
		Verifiable:  true,
	})
	s.Require().NoError(err)
}

func (s *RegistrySuite) TestGetOrCreate() {
	ctx := context.Background()

	s.Run("creates an empty slot lazily", func() {
		sl, err := s.service.GetOrCreate(ctx, s.applicant, s.form138.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusEmpty, sl.Status)
		s.False(sl.HasFile())
	})

	s.Run("second call returns the same slot", func() {
		first, err := s.service.GetOrCreate(ctx, s.applicant, s.form138.ID)
		s.Require().NoError(err)
		second, err := s.service.GetOrCreate(ctx, s.applicant, s.form138.ID)
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)
	})

	s.Run("unknown requirement", func() {
		_, err := s.service.GetOrCreate(ctx, s.applicant, domain.NewRequirementID())
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("applicant without a number", func() {
		_, err := s.service.GetOrCreate(ctx, models.Applicant{PersonID: domain.NewPersonID()}, s.form138.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *RegistrySuite) TestReplaceFile() {
	ctx := context.Background()

	s.Run("derives the deterministic file key", func() {
		sl, err := s.service.ReplaceFile(ctx, s.applicant, s.form138, strings.NewReader("report card"), "report.pdf")
		s.Require().NoError(err)
		s.Require().True(sl.HasFile())
		s.Equal("2025100007_Form138_2025.pdf", *sl.FileKey)
		s.Equal("report.pdf", sl.OriginalName)
		s.Equal(models.StatusUploaded, sl.Status)
	})

	s.Run("replacement leaves exactly one blob", func() {
		_, err := s.service.ReplaceFile(ctx, s.applicant, s.form138, strings.NewReader("first"), "old.png")
		s.Require().NoError(err)
		sl, err := s.service.ReplaceFile(ctx, s.applicant, s.form138, strings.NewReader("second"), "new.pdf")
		s.Require().NoError(err)

		s.Equal(1, s.blobs.Len())
		exists, err := s.blobs.Exists(ctx, "2025100007_Form138_2025.png")
		s.Require().NoError(err)
		s.False(exists, "old blob must be gone")

		r, err := s.service.OpenFile(ctx, sl)
		s.Require().NoError(err)
		defer r.Close()
		data, err := io.ReadAll(r)
		s.Require().NoError(err)
		s.Equal("second", string(data))
	})

	s.Run("missing previous blob is non-fatal", func() {
		sl, err := s.service.ReplaceFile(ctx, s.applicant, s.form138, strings.NewReader("a"), "a.pdf")
		s.Require().NoError(err)
		s.Require().NoError(s.blobs.Delete(ctx, *sl.FileKey))

		_, err = s.service.ReplaceFile(ctx, s.applicant, s.form138, strings.NewReader("b"), "b.png")
		s.NoError(err)
	})
}

// TestConcurrentReplacements checks the per-slot serialization. Racing
// uploads must never leave two blobs or a record pointing at a deleted blob.
func (s *RegistrySuite) TestConcurrentReplacements() {
	ctx := context.Background()
	const n = 20

	exts := []string{".pdf", ".png", ".jpg", ".docx"}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.service.ReplaceFile(ctx, s.applicant, s.form138,
				strings.NewReader("content"), "scan"+exts[i%len(exts)])
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	s.Equal(1, s.blobs.Len(), "exactly one live blob after racing replacements")

	sl, err := s.service.GetOrCreate(ctx, s.applicant, s.form138.ID)
	s.Require().NoError(err)
	s.Require().True(sl.HasFile())
	exists, err := s.blobs.Exists(ctx, *sl.FileKey)
	s.Require().NoError(err)
	s.True(exists, "record must reference the surviving blob")
}

func (s *RegistrySuite) TestRemoveFile() {
	ctx := context.Background()

	sl, err := s.service.ReplaceFile(ctx, s.applicant, s.form138, strings.NewReader("x"), "x.pdf")
	s.Require().NoError(err)

	sl, err = s.service.RemoveFile(ctx, sl)
	s.Require().NoError(err)
	s.Equal(models.StatusEmpty, sl.Status)
	s.False(sl.HasFile())
	s.Equal(0, s.blobs.Len())
}

func (s *RegistrySuite) TestCheckConsistency() {
	ctx := context.Background()

	sl, err := s.service.ReplaceFile(ctx, s.applicant, s.form138, strings.NewReader("x"), "x.pdf")
	s.Require().NoError(err)

	missing, err := s.service.CheckConsistency(ctx, s.applicant.PersonID)
	s.Require().NoError(err)
	s.Empty(missing)

	// Simulate the crash window: record kept, blob lost.
	s.Require().NoError(s.blobs.Delete(ctx, *sl.FileKey))
	missing, err = s.service.CheckConsistency(ctx, s.applicant.PersonID)
	s.Require().NoError(err)
	s.Equal([]string{"2025100007_Form138_2025.pdf"}, missing)

	_, err = s.service.OpenFile(ctx, sl)
	s.Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePersistence))
}

func (s *RegistrySuite) TestRequirementAdmin() {
	ctx := context.Background()

	s.Run("rejects filename-unsafe short label", func() {
		_, err := s.service.CreateRequirement(ctx, models.RequirementDefinition{
			Description: "Good Moral Certificate",
			ShortLabel:  "Good Moral",
			Category:    models.CategoryRegular,
		})
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("duplicate short label conflicts", func() {
		_, err := s.service.CreateRequirement(ctx, models.RequirementDefinition{
			Description: "Another report card",
			ShortLabel:  "Form138",
			Category:    models.CategoryRegular,
		})
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("list returns definitions in creation order", func() {
		_, err := s.service.CreateRequirement(ctx, models.RequirementDefinition{
			Description: "Birth Certificate",
			ShortLabel:  "PSA",
			Category:    models.CategoryRegular,
		})
		s.Require().NoError(err)

		defs, err := s.service.ListRequirements(ctx)
		s.Require().NoError(err)
		s.Require().Len(defs, 2)
		s.Equal("Form138", defs[0].ShortLabel)
		s.Equal("PSA", defs[1].ShortLabel)
	})
}
