package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/learnhub/learnhub/internal/cache"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/service"
)

// catalogInvalidator drops shared cache entries after a CLI seed.
// A nil cache makes it a no-op.
type catalogInvalidator struct {
	cache  *cache.Cache
	logger *slog.Logger
}

func (c catalogInvalidator) EvictCourse(ctx context.Context, course *model.Course) {
	if c.cache == nil {
		return
	}
	if err := c.cache.DeleteCourse(ctx, course); err != nil {
		c.logger.Warn("failed to evict course", "slug", course.Slug, "error", err)
	}
}

func (c catalogInvalidator) InvalidateCatalog(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.DeleteCategories(ctx); err != nil {
		c.logger.Warn("failed to invalidate category cache", "error", err)
	}
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample course catalog (existing slugs are skipped)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := opts.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			c, err := opts.openCache(cmd.Context())
			if err != nil {
				return err
			}
			if c != nil {
				defer c.Close()
			}

			svc := service.NewSeedService(repo, catalogInvalidator{cache: c, logger: opts.logger}, opts.logger)
			result, err := svc.Seed(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("inserted %d courses, skipped %d existing\n", result.Inserted, result.Skipped)
			return nil
		},
	}
}
