package audit

import (
	"context"
	"log/slog"

	"matricula/pkg/attrs"
	"matricula/pkg/requestcontext"
)

// Log writes an audit-flavored structured log line alongside the durable
// event. It enriches the attrs with the request ID, promotes the applicant
// number to a stable "subject" key and tags the line so log pipelines can
// route it without knowing each caller's attr names.
func Log(ctx context.Context, logger *slog.Logger, event string, attrList ...any) {
	if logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}
	if subject := SubjectOf(attrList); subject != "" {
		attrList = append(attrList, "subject", subject)
	}
	args := append(attrList, "event", event, "log_type", "audit")
	logger.InfoContext(ctx, event, args...)
}

// SubjectOf extracts the applicant number from an attr list.
func SubjectOf(attrList []any) string {
	return attrs.ExtractString(attrList, "applicant_number")
}
