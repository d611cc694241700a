// Package main provides the main entry point for the survey backend server.
// It sets up the HTTP server, database connections, middleware, and API routes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"surveyapp/internal/config"
	"surveyapp/internal/di"
	"surveyapp/internal/handlers"
	"surveyapp/internal/observability"
	contextutils "surveyapp/internal/utils"
	"surveyapp/internal/version"

	"github.com/gin-gonic/gin"
)

// Application encapsulates the main application logic and can be tested
type Application struct {
	container di.ServiceContainerInterface
	router    *gin.Engine
	server    *http.Server
}

// NewApplication creates a new application instance
func NewApplication(container di.ServiceContainerInterface) (*Application, error) {
	userService, err := container.GetUserService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get user service")
	}

	surveyService, err := container.GetSurveyService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get survey service")
	}

	answerService, err := container.GetAnswerService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get answer service")
	}

	dashboardService, err := container.GetDashboardService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get dashboard service")
	}

	schemaLoader, err := container.GetSchemaLoader()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get schema loader")
	}

	validator, err := container.GetValidator()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get validator")
	}

	router := handlers.NewRouter(
		container.GetConfig(),
		userService,
		surveyService,
		answerService,
		dashboardService,
		schemaLoader,
		validator,
		container.GetLogger(),
	)

	return &Application{
		container: container,
		router:    router,
	}, nil
}

// Run serves HTTP until the server stops; it returns nil after a graceful Shutdown
func (a *Application) Run(port string) error {
	a.server = &http.Server{
		Addr:              ":" + port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      config.DefaultHTTPTimeout,
	}

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return contextutils.WrapError(err, "server failed")
	}
	return nil
}

// Shutdown drains in-flight requests and then releases the container's resources
func (a *Application) Shutdown(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return contextutils.WrapError(err, "failed to shut down http server")
		}
	}
	return a.container.Shutdown(ctx)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if cfg.OpenTelemetry.ServiceVersion == "" {
		cfg.OpenTelemetry.ServiceVersion = version.Version
	}

	// Setup observability (tracing/metrics/logging)
	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, cfg.OpenTelemetry.ServiceName, cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		observability.ShutdownProviders(shutdownCtx, tp, mp, logger)
		_ = logger.Sync()
	}()

	logger.Info(ctx, "Starting survey backend service", map[string]interface{}{
		"port":     cfg.Server.Port,
		"logLevel": cfg.Server.LogLevel,
	})

	container := di.NewServiceContainer(cfg, logger)
	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err, nil)
		os.Exit(1)
	}

	app, err := NewApplication(container)
	if err != nil {
		logger.Error(ctx, "Failed to create application", err, nil)
		_ = container.Shutdown(ctx)
		os.Exit(1)
	}

	appErr := make(chan error, 1)
	go func() {
		appErr <- app.Run(cfg.Server.Port)
	}()

	select {
	case <-shutdownCh:
		logger.Info(ctx, "Received shutdown signal, shutting down gracefully", nil)
	case err := <-appErr:
		logger.Error(ctx, "Application failed", err, nil)
		_ = container.Shutdown(ctx)
		os.Exit(1)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Error during application shutdown", err, nil)
		os.Exit(1)
	}

	logger.Info(ctx, "Shutdown completed successfully", nil)
}
