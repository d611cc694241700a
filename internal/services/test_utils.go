//go:build integration

package services

import (
	"context"
	"database/sql"
	"testing"

	"surveyapp/internal/config"
	"surveyapp/internal/database"
	"surveyapp/internal/models"
	"surveyapp/internal/observability"

	"github.com/stretchr/testify/require"
)

// SharedTestDBSetup provides a migrated, empty database for each integration test.
// It skips the test when TEST_DATABASE_URL is not set.
func SharedTestDBSetup(t *testing.T) *sql.DB {
	t.Helper()

	cfg := database.DefaultDatabaseConfig()
	if cfg.URL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	dbManager := database.NewManager(testLogger())
	db, err := dbManager.InitDB(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	CleanupTestDatabase(db, t)
	return db
}

// CleanupTestDatabase truncates every application table and resets the id sequences
func CleanupTestDatabase(db *sql.DB, t *testing.T) {
	t.Helper()

	_, err := db.ExecContext(context.Background(), `TRUNCATE TABLE survey_question_answers, survey_answers,
		survey_questions, surveys, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

// createTestUser inserts an account to own test surveys
func createTestUser(t *testing.T, db *sql.DB, username string) *models.User {
	t.Helper()

	user, err := NewUserServiceWithLogger(db, testLogger()).CreateUserWithPassword(context.Background(), username, "password123")
	require.NoError(t, err)
	return user
}

func testLogger() *observability.Logger {
	return observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
}
