package audit

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"matricula/pkg/requestcontext"
)

func TestLogPromotesSubjectAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := requestcontext.WithRequestID(context.Background(), "req-42")

	Log(ctx, logger, "document uploaded",
		"applicant_number", "2025100007",
		"requirement", "Form138",
	)

	line := buf.String()
	assert.Contains(t, line, "subject=2025100007")
	assert.Contains(t, line, "request_id=req-42")
	assert.Contains(t, line, "log_type=audit")
}

func TestLogWithoutApplicantNumber(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	Log(context.Background(), logger, "registrar bulk submit", "slots", 3)

	line := buf.String()
	assert.NotContains(t, line, "subject=")
	assert.Contains(t, line, "log_type=audit")
}

func TestSubjectOf(t *testing.T) {
	assert.Equal(t, "2025100007", SubjectOf([]any{"applicant_number", "2025100007"}))
	assert.Equal(t, "", SubjectOf([]any{"applicant_number", 7}))
	assert.Equal(t, "", SubjectOf([]any{"slots", "3"}))
	assert.Equal(t, "", SubjectOf(nil))
}
