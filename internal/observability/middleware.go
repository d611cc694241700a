package observability

import (
	"errors"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contextutils "surveyapp/internal/utils"
)

// GinMiddleware creates OpenTelemetry middleware for Gin HTTP requests
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// GinMiddlewareWithErrorHandling returns the otelgin middleware followed by a handler that
// annotates the request span with error details once the request has been served.
// Use as router.Use(GinMiddlewareWithErrorHandling(name)...).
func GinMiddlewareWithErrorHandling(serviceName string) gin.HandlersChain {
	return gin.HandlersChain{otelgin.Middleware(serviceName), recordErrorAttributes}
}

// recordErrorAttributes runs inside the otelgin span so attributes land before the span ends
func recordErrorAttributes(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	statusCode := c.Writer.Status()
	if !span.SpanContext().IsValid() || statusCode < 400 {
		return
	}

	severity := determineErrorSeverity(statusCode, c.Errors)

	var errorMsg string
	switch {
	case statusCode >= 500:
		errorMsg = "server error"
	default:
		errorMsg = "client error"
	}

	var appErr *contextutils.AppError
	for _, err := range c.Errors {
		if errors.As(err.Err, &appErr) {
			errorMsg = appErr.Message
			break
		}
		errorMsg = err.Error()
	}

	span.RecordError(errors.New(errorMsg), trace.WithStackTrace(true))
	span.SetStatus(codes.Error, errorMsg)
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.path", c.Request.URL.Path),
		attribute.String("error.handler", c.HandlerName()),
		attribute.String("error.severity", severity),
	)

	if _, ok := c.Get(sessions.DefaultKey); ok {
		if userID, ok := sessions.Default(c).Get("user_id").(int); ok {
			span.SetAttributes(attribute.Int("error.user_id", userID))
		}
	}

	// Survey routes carry the survey id or slug in the path
	if id := c.Param("id"); id != "" {
		span.SetAttributes(attribute.String("error.survey_id", id))
	}
	if slug := c.Param("slug"); slug != "" {
		span.SetAttributes(attribute.String("error.survey_slug", slug))
	}

	if c.Request.ContentLength > 0 {
		span.SetAttributes(attribute.Int64("error.request_size", c.Request.ContentLength))
	}

	if appErr != nil {
		span.SetAttributes(
			attribute.String("error.code", string(appErr.Code)),
			attribute.Bool("error.retryable", contextutils.IsRetryable(appErr)),
		)
	}

	if statusCode >= 500 {
		span.SetAttributes(attribute.Bool("error.server_error", true))
	}
}

// determineErrorSeverity determines the severity level based on status code and error types
func determineErrorSeverity(statusCode int, errs []*gin.Error) string {
	for _, err := range errs {
		var appErr *contextutils.AppError
		if errors.As(err.Err, &appErr) {
			return string(appErr.Severity)
		}
	}

	switch {
	case statusCode >= 500:
		return string(contextutils.SeverityError)
	case statusCode >= 400:
		return string(contextutils.SeverityWarn)
	default:
		return string(contextutils.SeverityInfo)
	}
}
