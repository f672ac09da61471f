package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/learnhub/learnhub/internal/repository"
	"github.com/learnhub/learnhub/migrations"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert schema migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := opts.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			migs, err := repository.LoadMigrations(migrations.FS)
			if err != nil {
				return err
			}
			n, err := repo.MigrateUp(cmd.Context(), migs)
			if err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			opts.logger.Info("migrations applied", "count", n)
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			repo, err := opts.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			migs, err := repository.LoadMigrations(migrations.FS)
			if err != nil {
				return err
			}
			n, err := repo.MigrateDown(cmd.Context(), migs, steps)
			if err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}
			opts.logger.Info("migrations reverted", "count", n)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to revert")

	cmd.AddCommand(up, down)
	return cmd
}
