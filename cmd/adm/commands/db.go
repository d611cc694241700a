// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"database/sql"
	"fmt"

	"surveyapp/internal/observability"
	contextutils "surveyapp/internal/utils"

	"github.com/spf13/cobra"
)

// Migrator applies and inspects schema migrations
type Migrator interface {
	RunMigrations(ctx context.Context, databaseURL string) error
	RollbackMigrations(ctx context.Context, databaseURL string, steps int) error
	MigrationVersion(ctx context.Context, databaseURL string) (uint, bool, error)
}

// DatabaseCommands returns the database management commands
func DatabaseCommands(migrator Migrator, logger *observability.Logger, db *sql.DB, databaseURL string) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands for the survey backend.

Available commands:
  info      - Show connection information
  migrate   - Apply, roll back or inspect schema migrations`,
	}

	dbCmd.AddCommand(infoCmd(db, databaseURL))
	dbCmd.AddCommand(migrateCmd(migrator, logger, databaseURL))

	return dbCmd
}

func infoCmd(db *sql.DB, databaseURL string) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show database connection information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "URL:    %s\n", maskDatabaseURL(databaseURL))
			fmt.Fprintf(out, "Status: %s\n", getDatabaseInfo(cmd.Context(), db))
			return nil
		},
	}
}

func migrateCmd(migrator Migrator, logger *observability.Logger, databaseURL string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Schema migration commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := migrator.RunMigrations(ctx, databaseURL); err != nil {
				logger.Error(ctx, "Migration failed", err, nil)
				return contextutils.WrapError(err, "failed to apply migrations")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return contextutils.ErrorWithContextf("steps must be at least 1")
			}
			ctx := cmd.Context()
			if err := migrator.RollbackMigrations(ctx, databaseURL, steps); err != nil {
				logger.Error(ctx, "Rollback failed", err, map[string]interface{}{"steps": steps})
				return contextutils.WrapError(err, "failed to roll back migrations")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			version, dirty, err := migrator.MigrationVersion(cmd.Context(), databaseURL)
			if err != nil {
				return contextutils.WrapError(err, "failed to read migration version")
			}
			state := "clean"
			if dirty {
				state = "dirty"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %d (%s)\n", version, state)
			return nil
		},
	})

	return cmd
}
