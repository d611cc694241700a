package handlers

import (
	"net/http"

	"surveyapp/internal/config"
	"surveyapp/internal/middleware"
	"surveyapp/internal/models"
	"surveyapp/internal/observability"
	"surveyapp/internal/services"
	contextutils "surveyapp/internal/utils"
	"surveyapp/internal/validation"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// AuthHandler handles authentication related HTTP requests
type AuthHandler struct {
	userService services.UserServiceInterface
	validator   *validation.Validator
	config      *config.Config
	logger      *observability.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(userService services.UserServiceInterface, validator *validation.Validator, cfg *config.Config, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		validator:   validator,
		config:      cfg,
		logger:      logger,
	}
}

// bindCredentials decodes and validates a signup or login body, writing the error response on failure
func (h *AuthHandler) bindCredentials(c *gin.Context) (*models.Credentials, bool) {
	var req models.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, invalidBody(err))
		return nil, false
	}
	if err := h.validator.ValidateCredentials(&req); err != nil {
		HandleAppError(c, err)
		return nil, false
	}
	return &req, true
}

// startSession stores the user in the cookie session
func (h *AuthHandler) startSession(c *gin.Context, user *models.User) bool {
	session := sessions.Default(c)
	session.Set(middleware.UserIDKey, user.ID)
	session.Set(middleware.UsernameKey, user.Username)

	if err := session.Save(); err != nil {
		h.logger.Error(c.Request.Context(), "Failed to save session", err, map[string]interface{}{"user_id": user.ID})
		HandleAppError(c, contextutils.WrapError(err, "failed to create session"))
		return false
	}
	return true
}

// Login handles user login requests
func (h *AuthHandler) Login(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "login")
	defer observability.FinishSpan(span, nil)

	req, ok := h.bindCredentials(c)
	if !ok {
		return
	}

	span.SetAttributes(attribute.String("auth.username", req.Username))

	user, err := h.userService.AuthenticateUser(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Warn(c.Request.Context(), "Authentication failed for user", map[string]interface{}{"username": req.Username, "error": err.Error()})
		HandleAppError(c, contextutils.ErrInvalidCredentials)
		return
	}
	if user == nil {
		HandleAppError(c, contextutils.ErrInvalidCredentials)
		return
	}

	span.SetAttributes(attribute.Int("user.id", user.ID))

	if !h.startSession(c, user) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"user":    user,
	})
}

// Logout handles user logout requests
func (h *AuthHandler) Logout(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "logout")
	defer observability.FinishSpan(span, nil)

	session := sessions.Default(c)
	if userID, _, ok := middleware.SessionUser(session); ok {
		span.SetAttributes(attribute.Int("user.id", userID))
	}

	session.Clear()
	if err := session.Save(); err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to clear session"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logout successful",
	})
}

// Status returns the current authentication status
func (h *AuthHandler) Status(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "status")
	defer observability.FinishSpan(span, nil)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		span.SetAttributes(attribute.Bool("auth.authenticated", false))
		c.JSON(http.StatusOK, gin.H{
			"authenticated": false,
			"user":          nil,
		})
		return
	}

	span.SetAttributes(
		attribute.Bool("auth.authenticated", true),
		attribute.Int("user.id", userID),
	)

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error(c.Request.Context(), "Error getting user by ID", err, map[string]interface{}{"user_id": userID})
		HandleAppError(c, contextutils.ErrInternalError)
		return
	}

	if user == nil {
		// User not found, clear session
		session := sessions.Default(c)
		session.Clear()
		if err := session.Save(); err != nil {
			h.logger.Error(c.Request.Context(), "Error saving session", err, nil)
		}
		span.SetAttributes(attribute.Bool("auth.user_found", false))
		c.JSON(http.StatusOK, gin.H{
			"authenticated": false,
			"user":          nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user":          user,
	})
}

// Signup handles user registration requests and logs the new user in
func (h *AuthHandler) Signup(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "signup")
	defer observability.FinishSpan(span, nil)

	if h.config != nil && h.config.IsSignupDisabled() {
		span.SetAttributes(attribute.Bool("auth.signups_disabled", true))
		HandleAppError(c, contextutils.ErrForbidden)
		return
	}

	req, ok := h.bindCredentials(c)
	if !ok {
		return
	}

	span.SetAttributes(attribute.String("signup.username", req.Username))
	h.logger.Info(c.Request.Context(), "Attempting signup for user", map[string]interface{}{"username": req.Username})

	user, err := h.userService.CreateUserWithPassword(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordExists) {
			span.SetAttributes(attribute.Bool("signup.username_exists", true))
		}
		HandleAppError(c, err)
		return
	}

	if !h.startSession(c, user) {
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Account created successfully",
		"user":    user,
	})
}

// SignupStatus reports whether signups are currently allowed
func (h *AuthHandler) SignupStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"signups_disabled": h.config != nil && h.config.IsSignupDisabled(),
	})
}
