package handlers

import (
	"surveyapp/internal/middleware"
	"surveyapp/internal/models"
	contextutils "surveyapp/internal/utils"

	"github.com/gin-gonic/gin"
)

var (
	// ErrUnauthenticated indicates no current user could be determined
	ErrUnauthenticated = contextutils.NewAppError(contextutils.ErrorCodeUnauthorized, contextutils.SeverityWarn, "user not authenticated", "")
	// ErrNotOwner indicates the survey belongs to another user
	ErrNotOwner = contextutils.NewAppError(contextutils.ErrorCodeForbidden, contextutils.SeverityWarn, "Unauthorized action", "survey belongs to another user")
)

// GetCurrentUserID returns the current authenticated user's ID.
// It first checks the Gin context (set by RequireAuth), then falls back to the session store.
func GetCurrentUserID(c *gin.Context) (int, error) {
	if rawID, exists := c.Get(middleware.UserIDKey); exists {
		if id, ok := rawID.(int); ok && id > 0 {
			return id, nil
		}
		return 0, ErrUnauthenticated
	}

	// Fallback to session lookup if context not populated
	if id, ok := GetUserIDFromSession(c); ok {
		return id, nil
	}
	return 0, ErrUnauthenticated
}

// RequireOwner permits the action only when currentID owns the survey
func RequireOwner(currentID int, survey *models.Survey) error {
	if currentID == 0 {
		return ErrUnauthenticated
	}
	if survey == nil || survey.UserID != currentID {
		return ErrNotOwner
	}
	return nil
}
