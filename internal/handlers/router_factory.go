package handlers

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"surveyapp/internal/config"
	"surveyapp/internal/middleware"
	"surveyapp/internal/observability"
	"surveyapp/internal/services"
	contextutils "surveyapp/internal/utils"
	"surveyapp/internal/validation"
	"surveyapp/internal/version"
)

// NewRouter creates the gin engine with all middleware and routes
func NewRouter(
	cfg *config.Config,
	userService services.UserServiceInterface,
	surveyService services.SurveyServiceInterface,
	answerService services.AnswerServiceInterface,
	dashboardService services.DashboardServiceInterface,
	schemaLoader *validation.SchemaLoader,
	validator *validation.Validator,
	logger *observability.Logger,
) *gin.Engine {
	// Setup Gin mode
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger))
	router.Use(requestLogger(logger))

	// Health check endpoint (defined before any middleware)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "survey-backend"})
	})

	// Add OpenTelemetry middleware for HTTP tracing and context propagation with automatic error attributes
	router.Use(observability.GinMiddlewareWithErrorHandling(cfg.OpenTelemetry.ServiceName)...)

	// Disable automatic redirection for trailing slashes, which is better for APIs
	router.RedirectTrailingSlash = false

	// Setup CORS middleware
	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowCredentials = len(cfg.Server.CORSOrigins) > 0
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Setup session middleware
	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   config.SessionSecure,
	}
	if cfg.Server.Debug {
		sessionOpts.SameSite = http.SameSiteDefaultMode
	} else {
		sessionOpts.SameSite = http.SameSiteLaxMode
		sessionOpts.Secure = true
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, store))

	// Security middleware
	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.IsDevelopment = cfg.Server.Debug
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	// Uploaded survey images
	if cfg.Storage.ImageDir != "" {
		router.Static("/"+cfg.Storage.ImageDir, filepath.Join(cfg.Storage.PublicDir, cfg.Storage.ImageDir))
	}

	authHandler := NewAuthHandler(userService, validator, cfg, logger)
	surveyHandler := NewSurveyHandler(surveyService, answerService, validator, cfg, logger)
	dashboardHandler := NewDashboardHandler(dashboardService, cfg)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, version.Info())
		})

		auth := v1.Group("/auth")
		{
			auth.POST("/signup", middleware.ValidateRequestBody(schemaLoader, validation.SchemaCredentials), authHandler.Signup)
			auth.GET("/signup/status", authHandler.SignupStatus)
			auth.POST("/login", middleware.ValidateRequestBody(schemaLoader, validation.SchemaCredentials), authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/status", authHandler.Status)
		}

		// Guest endpoints
		v1.GET("/surveys/:id/guest", surveyHandler.GetSurveyForGuest)
		v1.POST("/surveys/:id/answer", middleware.ValidateRequestBody(schemaLoader, validation.SchemaAnswerRequest), surveyHandler.SubmitAnswers)
		v1.GET("/public/surveys/:slug", surveyHandler.GetSurveyBySlug)

		surveys := v1.Group("/surveys", middleware.RequireAuth())
		{
			surveys.GET("", surveyHandler.ListSurveys)
			surveys.POST("", middleware.ValidateRequestBody(schemaLoader, validation.SchemaSurveyRequest), surveyHandler.CreateSurvey)
			surveys.GET("/:id", surveyHandler.GetSurvey)
			surveys.PUT("/:id", middleware.ValidateRequestBody(schemaLoader, validation.SchemaSurveyRequest), surveyHandler.UpdateSurvey)
			surveys.DELETE("/:id", surveyHandler.DeleteSurvey)
		}

		v1.GET("/dashboard", middleware.RequireAuth(), dashboardHandler.GetDashboard)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	// Automatic route listing at root path
	routeListing := NewRouteListingHandler("Survey Backend")
	routeListing.CollectRoutes(router)
	router.GET("/", routeListing.GetRouteListingJSON)

	return router
}

// requestLogger logs each request through the observability logger at a level matching its status
func requestLogger(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  time.Since(start).Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}

		if userID := contextutils.GetUserIDFromContext(c.Request.Context()); userID != 0 {
			fields["user_id"] = userID
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}

		switch {
		case statusCode >= 500:
			fields["http.error_type"] = "server_error"
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		case statusCode >= 400:
			fields["http.error_type"] = "client_error"
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		default:
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	}
}
