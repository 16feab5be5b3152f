package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/BradenHooton/warden/internal/config"
	"github.com/BradenHooton/warden/internal/database"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back or inspect the embedded PostgreSQL migrations.`,
	}

	cmd.AddCommand(
		newMigrateStep("up", "Apply all pending migrations", database.MigrateUp),
		newMigrateStep("down", "Roll back the most recent migration", database.MigrateDown),
		newMigrateStep("status", "Show the state of every migration", database.MigrationStatus),
	)

	return cmd
}

func newMigrateStep(use, short string, run func(context.Context, *pgxpool.Pool, *slog.Logger) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(os.Getenv("LOG_LEVEL"), cmd.ErrOrStderr())
			cfg := config.LoadDatabase()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			db, err := database.NewConnection(ctx, &cfg, logger)
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
			}
			defer db.Close()

			if err := run(ctx, db.Pool, logger); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "migrate "+use).Wrap(err)
			}

			cmd.Printf("migrate %s completed\n", use)
			return nil
		},
	}
}
