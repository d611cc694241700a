// Package database provides database connection and migration functionality.
package database

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"surveyapp/internal/config"
	"surveyapp/internal/observability"
	contextutils "surveyapp/internal/utils"

	// Import PostgreSQL driver for database/sql
	_ "github.com/lib/pq"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // required for golang-migrate postgres driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // required for golang-migrate file source

	// OpenTelemetry SQL instrumentation
	"go.nhat.io/otelsql"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// MigrationsDirEnv overrides the migrations directory lookup
const MigrationsDirEnv = "SURVEY_MIGRATIONS_DIR"

// Manager handles database operations with proper logging
type Manager struct {
	logger *observability.Logger
}

var (
	otelDriverNameCache string
	otelDriverOnce      sync.Once
	otelDriverErr       error
)

// NewManager creates a new database manager with the provided logger
func NewManager(logger *observability.Logger) *Manager {
	return &Manager{
		logger: logger,
	}
}

// DefaultDatabaseConfig returns the default database configuration
func DefaultDatabaseConfig() config.DatabaseConfig {
	cfg := config.DatabaseConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: config.DatabaseConnMaxLifetime,
	}

	// Check for TEST_DATABASE_URL first (for tests)
	if testURL := os.Getenv("TEST_DATABASE_URL"); testURL != "" {
		cfg.URL = testURL
	}

	return cfg
}

// InitDB opens the database described by cfg and applies pending migrations
func (dm *Manager) InitDB(ctx context.Context, cfg config.DatabaseConfig) (result0 *sql.DB, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "InitDB",
		attribute.String("db.name", extractDatabaseName(cfg.URL)),
		attribute.String("db.system", "postgresql"),
		attribute.Int("db.max_open_conns", cfg.MaxOpenConns),
		attribute.Int("db.max_idle_conns", cfg.MaxIdleConns),
		attribute.String("db.conn_max_lifetime", cfg.ConnMaxLifetime.String()),
	)
	defer observability.FinishSpan(span, &err)

	db, err := dm.InitDBWithoutMigrations(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := dm.RunMigrations(ctx, cfg.URL); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			dm.logger.Error(ctx, "Failed to close database connection after migration failure", closeErr)
		}
		return nil, err
	}

	return db, nil
}

// extractDatabaseName extracts the database name from a PostgreSQL connection string
func extractDatabaseName(databaseURL string) string {
	if u, err := url.Parse(databaseURL); err == nil && u.Scheme != "" && u.Path != "" {
		if dbName := strings.TrimPrefix(u.Path, "/"); dbName != "" {
			return dbName
		}
	}

	// key=value form: "host=localhost dbname=survey_db sslmode=disable"
	for _, part := range strings.Fields(databaseURL) {
		if name, ok := strings.CutPrefix(part, "dbname="); ok && name != "" {
			return name
		}
	}

	return "survey_db"
}

// InitDBWithoutMigrations initializes and returns a database connection without running migrations
func (dm *Manager) InitDBWithoutMigrations(ctx context.Context, cfg config.DatabaseConfig) (result0 *sql.DB, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "InitDBWithoutMigrations",
		attribute.String("db.name", extractDatabaseName(cfg.URL)),
	)
	defer observability.FinishSpan(span, &err)

	if cfg.URL == "" {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeDatabaseConnection, contextutils.SeverityError,
			"Database connection failed", "database url is not configured")
	}

	// Register OpenTelemetry SQL driver once per process and reuse the name
	otelDriverOnce.Do(func() {
		otelDriverNameCache, otelDriverErr = otelsql.Register("postgres",
			otelsql.WithDatabaseName(extractDatabaseName(cfg.URL)),
			otelsql.TraceQueryWithArgs(),
			otelsql.WithSystem(semconv.DBSystemPostgreSQL),
			otelsql.TraceRowsAffected(),
		)
	})
	if otelDriverErr != nil {
		return nil, contextutils.WrapError(otelDriverErr, "failed to register otelsql driver")
	}

	db, err := sql.Open(otelDriverNameCache, cfg.URL)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to open database connection")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			dm.logger.Error(ctx, "Failed to close database connection after ping failure", closeErr)
		}
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDatabaseConnection, contextutils.SeverityError,
			"Database connection failed", "failed to ping database", err)
	}

	dm.logger.Info(ctx, "Database connection established", map[string]interface{}{
		"max_open_conns":    cfg.MaxOpenConns,
		"max_idle_conns":    cfg.MaxIdleConns,
		"conn_max_lifetime": cfg.ConnMaxLifetime.String(),
	})

	return db, nil
}

// RunMigrations applies every pending migration from the migrations directory
func (dm *Manager) RunMigrations(ctx context.Context, databaseURL string) (err error) {
	m, migrationsPath, err := dm.newMigrate(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer dm.closeMigrate(ctx, m)

	ctx, span := observability.TraceDatabaseFunction(ctx, "RunMigrations",
		attribute.String("db.system", "postgresql"),
		attribute.String("migration.path", migrationsPath),
	)
	defer observability.FinishSpan(span, &err)

	dm.logger.Info(ctx, "Starting database migrations", map[string]interface{}{"migrations_path": migrationsPath})

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		dm.logger.Info(ctx, "No new migrations to apply")
		return nil
	}
	if err != nil {
		return contextutils.WrapError(err, "migrate up failed")
	}

	dm.logger.Info(ctx, "Database migrations applied successfully")
	return nil
}

// RollbackMigrations reverts the given number of applied migrations
func (dm *Manager) RollbackMigrations(ctx context.Context, databaseURL string, steps int) (err error) {
	if steps <= 0 {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "steps must be positive, got %d", steps)
	}

	m, _, err := dm.newMigrate(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer dm.closeMigrate(ctx, m)

	ctx, span := observability.TraceDatabaseFunction(ctx, "RollbackMigrations", attribute.Int("migration.steps", steps))
	defer observability.FinishSpan(span, &err)

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return contextutils.WrapError(err, "migrate down failed")
	}
	dm.logger.Info(ctx, "Database migrations rolled back", map[string]interface{}{"steps": steps})
	return nil
}

// MigrationVersion reports the current schema version and whether the last migration left it dirty
func (dm *Manager) MigrationVersion(ctx context.Context, databaseURL string) (version uint, dirty bool, err error) {
	m, _, err := dm.newMigrate(ctx, databaseURL)
	if err != nil {
		return 0, false, err
	}
	defer dm.closeMigrate(ctx, m)

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, contextutils.WrapError(err, "failed to read migration version")
	}
	return version, dirty, nil
}

func (dm *Manager) newMigrate(ctx context.Context, databaseURL string) (*migrate.Migrate, string, error) {
	if databaseURL == "" {
		return nil, "", contextutils.WrapError(contextutils.ErrInvalidInput, "database url must be set for migrations")
	}

	migrationsPath, err := GetMigrationsPath()
	if err != nil {
		dm.logger.Error(ctx, "Could not find migrations path", err)
		return nil, "", err
	}

	m, err := migrate.New("file://"+filepath.ToSlash(migrationsPath), databaseURL)
	if err != nil {
		return nil, "", contextutils.WrapError(err, "failed to initialize golang-migrate")
	}
	return m, migrationsPath, nil
}

func (dm *Manager) closeMigrate(ctx context.Context, m *migrate.Migrate) {
	if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
		dm.logger.Error(ctx, "Error closing migration", errors.Join(srcErr, dbErr))
	}
}

// GetMigrationsPath returns the migrations directory: $SURVEY_MIGRATIONS_DIR if set,
// otherwise the first "migrations" directory found walking up from the working directory.
func GetMigrationsPath() (string, error) {
	if dir := os.Getenv(MigrationsDirEnv); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(abs); err != nil {
			return "", contextutils.WrapErrorf(err, "migrations directory %s is not accessible", abs)
		}
		return abs, nil
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		migrationsPath := filepath.Join(currentDir, "migrations")
		if info, statErr := os.Stat(migrationsPath); statErr == nil && info.IsDir() {
			return migrationsPath, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", contextutils.ErrorWithContextf("migrations directory not found in any parent directory")
		}
		currentDir = parentDir
	}
}
