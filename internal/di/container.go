// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"database/sql"
	"sync"

	"surveyapp/internal/config"
	"surveyapp/internal/database"
	"surveyapp/internal/observability"
	"surveyapp/internal/services"
	contextutils "surveyapp/internal/utils"
	"surveyapp/internal/validation"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetUserService() (services.UserServiceInterface, error)
	GetSurveyService() (services.SurveyServiceInterface, error)
	GetAnswerService() (services.AnswerServiceInterface, error)
	GetDashboardService() (*services.DashboardService, error)
	GetSchemaLoader() (*validation.SchemaLoader, error)
	GetValidator() (*validation.Validator, error)
	GetDatabase() *sql.DB
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	dbManager     *database.Manager
	db            *sql.DB
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]interface{}),
	}
}

// Initialize opens the database, applies migrations and wires all services
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.dbManager = database.NewManager(sc.logger)
	db, err := sc.dbManager.InitDB(ctx, sc.cfg.Database)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to initialize database")
	}
	sc.db = db
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return db.Close()
	})

	if err := sc.initializeServices(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to initialize services")
	}

	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetUserService returns the user service
func (sc *ServiceContainer) GetUserService() (services.UserServiceInterface, error) {
	return GetServiceAs[services.UserServiceInterface](sc, "user")
}

// GetSurveyService returns the survey service
func (sc *ServiceContainer) GetSurveyService() (services.SurveyServiceInterface, error) {
	return GetServiceAs[services.SurveyServiceInterface](sc, "survey")
}

// GetAnswerService returns the answer service
func (sc *ServiceContainer) GetAnswerService() (services.AnswerServiceInterface, error) {
	return GetServiceAs[services.AnswerServiceInterface](sc, "answer")
}

// GetDashboardService returns the dashboard service, which also serves the admin statistics
func (sc *ServiceContainer) GetDashboardService() (*services.DashboardService, error) {
	return GetServiceAs[*services.DashboardService](sc, "dashboard")
}

// GetSchemaLoader returns the compiled request schemas
func (sc *ServiceContainer) GetSchemaLoader() (*validation.SchemaLoader, error) {
	return GetServiceAs[*validation.SchemaLoader](sc, "schemas")
}

// GetValidator returns the struct validator
func (sc *ServiceContainer) GetValidator() (*validation.Validator, error) {
	return GetServiceAs[*validation.Validator](sc, "validator")
}

// GetDatabase returns the database instance
func (sc *ServiceContainer) GetDatabase() *sql.DB {
	return sc.db
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// cleanup runs the shutdown functions in reverse order of registration
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errors []error

	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			sc.logger.Error(ctx, "Shutdown step failed", err, nil)
			errors = append(errors, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errors) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errors)
	}
	return nil
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices(_ context.Context) error {
	schemaLoader, err := validation.NewSchemaLoader()
	if err != nil {
		return contextutils.WrapError(err, "failed to load request schemas")
	}
	sc.services["schemas"] = schemaLoader

	validator := validation.NewValidator()
	sc.services["validator"] = validator

	sc.services["user"] = services.NewUserServiceWithLogger(sc.db, sc.logger)

	// Survey, answer and dashboard services share one repository
	repo := services.NewPostgresSurveyRepository(sc.db, sc.logger)
	images := services.NewFileImageStore(&sc.cfg.Storage, sc.logger)
	questionService := services.NewQuestionService(validator)

	sc.services["survey"] = services.NewSurveyService(repo, questionService, images, validator, sc.logger)
	sc.services["answer"] = services.NewAnswerService(repo, sc.logger)
	sc.services["dashboard"] = services.NewDashboardService(repo)

	return nil
}
