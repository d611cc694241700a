package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"surveyapp/internal/config"
	"surveyapp/internal/validation"
	contextutils "surveyapp/internal/utils"

	"github.com/gin-gonic/gin"
)

// ValidateRequestBody checks the JSON body against a named schema before the handler runs.
// The body is restored so the handler can bind it.
func ValidateRequestBody(loader *validation.SchemaLoader, schemaName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil {
			HandleAppError(c, contextutils.NewAppError(
				contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn, "Request body is required", ""))
			c.Abort()
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, config.MaxRequestBodyBytes))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				HandleAppError(c, contextutils.NewAppError(
					contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn, "Request body too large", ""))
			} else {
				HandleAppError(c, contextutils.WrapError(err, "failed to read request body"))
			}
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if err := loader.ValidateJSON(schemaName, body); err != nil {
			HandleAppError(c, err)
			c.Abort()
			return
		}

		c.Next()
	}
}
