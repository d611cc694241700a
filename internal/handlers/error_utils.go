package handlers

import (
	"fmt"
	"strconv"

	"surveyapp/internal/middleware"
	contextutils "surveyapp/internal/utils"

	"github.com/gin-gonic/gin"
)

// HandleAppError sends the structured response for err and records it on the context
func HandleAppError(c *gin.Context, err error) {
	middleware.HandleAppError(c, err)
}

// HandleValidationError handles input validation errors consistently
func HandleValidationError(c *gin.Context, field string, value interface{}, reason string) {
	HandleAppError(c, contextutils.NewAppError(
		contextutils.ErrorCodeInvalidInput,
		contextutils.SeverityWarn,
		fmt.Sprintf("Invalid %s", field),
		fmt.Sprintf("Value '%v' is invalid: %s", value, reason),
	))
}

// pathID parses a positive integer path parameter, writing a 400 when it is malformed
func pathID(c *gin.Context, name string) (int, bool) {
	raw := c.Param(name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		HandleValidationError(c, name, raw, "must be a positive integer")
		return 0, false
	}
	return id, true
}
