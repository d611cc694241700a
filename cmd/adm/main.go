// Package main provides the admin CLI for the survey backend.
package main

import (
	"context"
	"fmt"
	"os"

	"surveyapp/cmd/adm/commands"
	"surveyapp/internal/config"
	"surveyapp/internal/database"
	"surveyapp/internal/observability"
	"surveyapp/internal/services"

	"github.com/spf13/cobra"
)

func main() {
	ctx := context.Background()

	// Fall back to a config file next to the binary or one level up
	if os.Getenv(config.ConfigFileEnv) == "" {
		for _, path := range []string{"config.yaml", "../config.yaml", "../../config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				if err := os.Setenv(config.ConfigFileEnv, path); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to set %s environment variable: %v\n", config.ConfigFileEnv, err)
					os.Exit(1)
				}
				break
			}
		}
	}

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Disable all OpenTelemetry features for admin CLI to avoid connection errors
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "survey-admin", "error")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer observability.ShutdownProviders(ctx, tp, mp, logger)

	dbManager := database.NewManager(logger)

	// The admin tool never migrates implicitly; use "adm db migrate up"
	db, err := dbManager.InitDBWithoutMigrations(ctx, cfg.Database)
	if err != nil {
		logger.Error(ctx, "Failed to connect to database", err, nil)
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Warning: failed to close database connection", map[string]interface{}{"error": err.Error()})
		}
	}()

	userService := services.NewUserServiceWithLogger(db, logger)
	dashboardService := services.NewDashboardService(services.NewPostgresSurveyRepository(db, logger))

	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Survey backend administration tool",
		Long: `Survey backend administration tool

Provides commands for user management, schema migrations and survey reporting.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.UserCommands(userService, logger, commands.TerminalPasswordPrompt))
	rootCmd.AddCommand(commands.DatabaseCommands(dbManager, logger, db, cfg.Database.URL))
	rootCmd.AddCommand(commands.SurveyCommands(dashboardService))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
