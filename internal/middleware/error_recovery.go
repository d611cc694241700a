package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"surveyapp/internal/observability"
	contextutils "surveyapp/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorRecoveryMiddleware turns panics into a structured 500 response and logs the stack trace
func ErrorRecoveryMiddleware(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				stackTrace := string(debug.Stack())

				// Convert panic value to error if needed
				panicErr, ok := recovered.(error)
				if !ok {
					panicErr = contextutils.ErrorWithContextf("panic: %v", recovered)
				}

				if logger != nil {
					logger.Error(c.Request.Context(), "Panic recovered", panicErr, map[string]interface{}{
						"method":      c.Request.Method,
						"path":        c.Request.URL.Path,
						"stack_trace": stackTrace,
					})
				}

				appErr := contextutils.NewAppErrorWithCause(
					contextutils.ErrorCodeInternalError,
					contextutils.SeverityFatal,
					"Internal server error",
					"A panic occurred while processing the request",
					panicErr,
				)

				// Add stack trace to error details in development
				if gin.Mode() == gin.DebugMode {
					appErr.Details = fmt.Sprintf("%s\nStack trace: %s", appErr.Details, stackTrace)
				}

				HandleAppError(c, appErr)
				c.Abort()
			}
		}()

		c.Next()
	}
}

// HandleAppError sends the response for any error; AppErrors anywhere in the chain keep their code
func HandleAppError(c *gin.Context, err error) {
	var appErr *contextutils.AppError
	if contextutils.AsError(err, &appErr) {
		StandardizeAppError(c, appErr)
		return
	}

	// Fallback for non-AppError types
	StandardizeAppError(c, contextutils.NewAppErrorWithCause(
		contextutils.ErrorCodeInternalError,
		contextutils.SeverityError,
		"Internal server error",
		"",
		err,
	))
}

// StandardizeAppError sends a structured error response using AppError
func StandardizeAppError(c *gin.Context, err *contextutils.AppError) {
	_ = c.Error(err)
	c.JSON(StatusForCode(err.Code), err.ToJSON())
}

// StatusForCode maps AppError codes to HTTP status codes
func StatusForCode(code contextutils.ErrorCode) int {
	switch code {
	case contextutils.ErrorCodeValidationFailed:
		return http.StatusUnprocessableEntity

	// 4xx Client Errors
	case contextutils.ErrorCodeInvalidInput:
		return http.StatusBadRequest

	// Bad uploads and foreign question ids are the caller's fault
	case contextutils.ErrorCodeInvalidImageFormat, contextutils.ErrorCodeUnsupportedImageType,
		contextutils.ErrorCodeImageDecode, contextutils.ErrorCodeUnknownQuestion:
		return http.StatusBadRequest

	case contextutils.ErrorCodeUnauthorized, contextutils.ErrorCodeInvalidCredentials:
		return http.StatusUnauthorized

	case contextutils.ErrorCodeForbidden:
		return http.StatusForbidden

	case contextutils.ErrorCodeRecordNotFound:
		return http.StatusNotFound

	case contextutils.ErrorCodeRecordExists:
		return http.StatusConflict

	// 5xx Server Errors
	case contextutils.ErrorCodeServiceUnavailable, contextutils.ErrorCodeDatabaseConnection:
		return http.StatusServiceUnavailable

	case contextutils.ErrorCodeTimeout:
		return http.StatusRequestTimeout

	// Default to internal server error for unknown codes
	default:
		return http.StatusInternalServerError
	}
}
