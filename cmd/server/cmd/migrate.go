package cmd

import (
	"context"
	"fmt"

	"github.com/courserate-sg/server/internal/config"
	"github.com/courserate-sg/server/internal/jobs"
	"github.com/courserate-sg/server/internal/storage/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	var withoutJobs bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database schema migrations",
		Long: `Manage the CourseRate database schema.

Migrations are read from DB_MIGRATIONS_PATH (default: internal/storage/postgres/migrations).
"migrate up" also installs the River job queue tables unless --skip-jobs is set.`,
	}
	cmd.PersistentFlags().BoolVar(&withoutJobs, "skip-jobs", false, "do not touch the River job queue schema")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if err := postgres.MigrateUp(cfg.Database.DSN(), migrationsPath(cfg)); err != nil {
				return err
			}
			if !withoutJobs {
				if err := migrateJobQueue(cmd.Context(), cfg); err != nil {
					return err
				}
			}
			return printMigrationStatus(cmd, cfg)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if err := postgres.MigrateDown(cfg.Database.DSN(), migrationsPath(cfg), steps); err != nil {
				return err
			}
			return printMigrationStatus(cmd, cfg)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			return printMigrationStatus(cmd, cfg)
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

func migrationsPath(cfg config.Config) string {
	if cfg.Database.MigrationsPath != "" {
		return cfg.Database.MigrationsPath
	}
	return postgres.DefaultMigrationsPath
}

func migrateJobQueue(ctx context.Context, cfg config.Config) error {
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()
	return jobs.Migrate(ctx, pool)
}

func printMigrationStatus(cmd *cobra.Command, cfg config.Config) error {
	status, err := postgres.CurrentMigration(cfg.Database.DSN(), migrationsPath(cfg))
	if err != nil {
		return err
	}
	dirty := ""
	if status.Dirty {
		dirty = " (dirty)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d%s\n", status.Version, dirty)
	return nil
}
