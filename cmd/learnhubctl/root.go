package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/spf13/cobra"

	"github.com/learnhub/learnhub/internal/cache"
	"github.com/learnhub/learnhub/internal/repository"
)

// ctlConfig is read from the environment; flags take precedence.
type ctlConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

type rootOptions struct {
	cfg    ctlConfig
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	if err := env.Parse(&opts.cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse environment: %v\n", err)
	}

	cmd := &cobra.Command{
		Use:   "learnhubctl",
		Short: "learnhubctl manages the LearnHub database",
		Example: `learnhubctl migrate up
  learnhubctl seed --redis-url redis://localhost:6379/0
  learnhubctl promote --username ada`,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		SilenceUsage:      true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			var level slog.Level
			if err := level.UnmarshalText([]byte(opts.cfg.LogLevel)); err != nil {
				level = slog.LevelInfo
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfg.DatabaseURL, "database-url", opts.cfg.DatabaseURL, "PostgreSQL connection URL (default $DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.cfg.RedisURL, "redis-url", opts.cfg.RedisURL, "Redis URL for cache invalidation (default $REDIS_URL)")
	cmd.PersistentFlags().StringVar(&opts.cfg.LogLevel, "log-level", opts.cfg.LogLevel, "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newSeedCmd(opts),
		newPromoteCmd(opts),
	)
	return cmd
}

func (o *rootOptions) openRepository(ctx context.Context) (*repository.Repository, error) {
	if o.cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required (--database-url or DATABASE_URL)")
	}
	return repository.New(ctx, o.cfg.DatabaseURL)
}

// openCache returns nil when no Redis URL is configured.
func (o *rootOptions) openCache(ctx context.Context) (*cache.Cache, error) {
	if o.cfg.RedisURL == "" {
		return nil, nil
	}
	return cache.New(ctx, o.cfg.RedisURL)
}
