// Package middleware provides authentication, request validation and recovery middleware for the Gin web framework.
package middleware

import (
	contextutils "surveyapp/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys for storing user information
const (
	// UserIDKey is the key used to store user ID in session
	UserIDKey = "user_id"
	// UsernameKey is the key used to store username in session
	UsernameKey = "username"
)

// RequireAuth returns a middleware that requires an authenticated session.
// The user id is stored on the gin context and on the request context.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, username, ok := SessionUser(sessions.Default(c))
		if !ok {
			abortUnauthorized(c)
			return
		}

		// Store user info in context for handlers to use
		c.Set(UserIDKey, userID)
		c.Set(UsernameKey, username)
		c.Request = c.Request.WithContext(contextutils.WithUserID(c.Request.Context(), userID))

		c.Next()
	}
}

// SessionUser extracts the user id and username stored in the session
func SessionUser(session sessions.Session) (int, string, bool) {
	userID := session.Get(UserIDKey)
	if userID == nil {
		return 0, "", false
	}

	userIDInt, ok := userID.(int)
	if !ok {
		// Try to convert from float64 (JSON numbers are often stored as float64)
		userIDFloat, isFloat := userID.(float64)
		if !isFloat {
			return 0, "", false
		}
		userIDInt = int(userIDFloat)
	}

	username, ok := session.Get(UsernameKey).(string)
	if !ok || username == "" {
		return 0, "", false
	}

	return userIDInt, username, true
}

func abortUnauthorized(c *gin.Context) {
	HandleAppError(c, contextutils.NewAppError(
		contextutils.ErrorCodeUnauthorized,
		contextutils.SeverityWarn,
		"Authentication required",
		"",
	))
	c.Abort()
}
