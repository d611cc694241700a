package observability

import (
	contextutils "surveyapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FinishSpan ends a span and records any error pointed to by errPtr.
// Use with a named error return: `defer observability.FinishSpan(span, &err)`.
// Info and warn AppErrors (not found, validation, foreign question ids) are caller mistakes:
// they are recorded on the span without marking it failed.
func FinishSpan(span trace.Span, errPtr *error) {
	if span == nil {
		return
	}
	defer span.End()

	if errPtr == nil || *errPtr == nil {
		return
	}
	err := *errPtr

	var appErr *contextutils.AppError
	if contextutils.AsError(err, &appErr) {
		span.SetAttributes(
			attribute.String("error.code", string(appErr.Code)),
			attribute.String("error.severity", string(appErr.Severity)),
		)
		if appErr.Severity == contextutils.SeverityInfo || appErr.Severity == contextutils.SeverityWarn {
			span.RecordError(err)
			return
		}
	}

	span.RecordError(err, trace.WithStackTrace(true))
	span.SetStatus(codes.Error, err.Error())
}
