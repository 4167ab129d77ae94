package cmd

import (
	"errors"
	"fmt"

	"github.com/courserate-sg/server/internal/storage/postgres"
	"github.com/spf13/cobra"
)

func newSeedCommand(opts *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the sample universities, courses, professors and reviews",
		Long: `Load sample data for local development.

Without --force the command refuses to touch a database that already has universities.
With --force every table is truncated and identities restart from 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if force && cfg.IsProduction() {
				return fmt.Errorf("refusing to truncate a production database")
			}

			pool, err := postgres.NewPool(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			defer pool.Close()

			result, err := postgres.Seed(cmd.Context(), pool, force)
			if err != nil {
				if errors.Is(err, postgres.ErrSeedDataExists) {
					return fmt.Errorf("%w (rerun with --force to replace it)", err)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d universities, %d professors, %d courses, %d reviews\n",
				result.Universities, result.Professors, result.Courses, result.Reviews)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "truncate existing data before seeding")
	return cmd
}
