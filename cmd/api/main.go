// Package main is the entrypoint for the LearnHub API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/learnhub/learnhub/internal/activity"
	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/cache"
	"github.com/learnhub/learnhub/internal/config"
	"github.com/learnhub/learnhub/internal/handler"
	"github.com/learnhub/learnhub/internal/metrics"
	"github.com/learnhub/learnhub/internal/middleware"
	"github.com/learnhub/learnhub/internal/repository"
	"github.com/learnhub/learnhub/internal/scheduler"
	"github.com/learnhub/learnhub/internal/server"
	"github.com/learnhub/learnhub/internal/service"
	"github.com/learnhub/learnhub/migrations"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const categoryWarmInterval = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	migs, err := repository.LoadMigrations(migrations.FS)
	if err != nil {
		logger.Error("failed to load migrations", "error", err)
		os.Exit(1)
	}
	applied, err := repo.MigrateUp(ctx, migs)
	if err != nil {
		logger.Error("failed to apply migrations", "error", err, "applied", applied)
		os.Exit(1)
	}
	logger.Info("database schema up to date", "applied", applied)

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	var recorder metrics.Recorder = metrics.NewNoop()
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		prom := metrics.NewPrometheus()
		recorder = prom
		metricsHandler = prom.Handler()
	}

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		logger.Error("failed to initialise token manager", "error", err)
		os.Exit(1)
	}

	// Services
	eventsRepo := repository.NewEnrollmentEventRepository(repo)
	publisher := activity.NewPublisher(cacheClient.Client(), logger, recorder)

	courseService := service.NewCourseService(repo, eventsRepo, cacheClient, cache.NewLocalCache(categoryWarmInterval), logger, recorder)
	recommendationService := service.NewRecommendationService(repo, cacheClient, service.RecommendationConfig{
		DefaultLimit: cfg.RecommendationDefaultLimit,
		MaxLimit:     cfg.RecommendationMaxLimit,
		CacheTTL:     cfg.RecommendationCacheTTL,
	}, logger, recorder)
	authService := service.NewAuthService(repo, cacheClient, tokens, logger, recorder)
	enrollmentService := service.NewEnrollmentService(repo, courseService, cacheClient, publisher, logger, recorder)
	seedService := service.NewSeedService(repo, courseService, logger)

	if cfg.SeedOnStart {
		result, err := seedService.Seed(ctx)
		if err != nil {
			logger.Error("failed to seed sample catalog", "error", err)
			os.Exit(1)
		}
		logger.Info("sample catalog seeded", "inserted", result.Inserted, "skipped", result.Skipped)
	}

	// Background jobs
	sched, err := scheduler.New(logger)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}
	refresher := scheduler.NewPopularRefresher(repo, cacheClient, cfg.PopularRefreshInterval, recorder)
	if err := sched.AddSingletonJob(scheduler.JobRefreshPopular, "Refresh popular-course snapshot",
		cfg.PopularRefreshInterval, refresher.Refresh, true); err != nil {
		logger.Error("failed to register job", "error", err)
		os.Exit(1)
	}
	if err := sched.AddSingletonJob(scheduler.JobWarmCategories, "Warm category cache",
		categoryWarmInterval, courseService.WarmCategories, true); err != nil {
		logger.Error("failed to register job", "error", err)
		os.Exit(1)
	}

	// Handlers
	router := handler.NewRouter(handler.RouterConfig{
		Logger:             logger,
		Metrics:            recorder,
		MetricsHandler:     metricsHandler,
		IsDevelopment:      cfg.IsDevelopment(),
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		Auth: middleware.AuthConfig{
			Logger:  logger,
			Tokens:  tokens,
			Revoked: cacheClient,
		},
		RateLimit: middleware.RateLimitConfig{
			Logger:      logger,
			Limiter:     cacheClient,
			UserEnabled: cfg.RateLimitAPIEnabled,
			UserRPM:     cfg.RateLimitAPIRPM,
			UserBurst:   cfg.RateLimitAPIBurst,
			IPEnabled:   cfg.RateLimitIPEnabled,
			IPRPS:       cfg.RateLimitIPRPS,
			IPBurst:     cfg.RateLimitIPBurst,
		},
		Roles:          repo,
		AuthRateLimit:  cfg.AuthRateLimitRequests,
		AuthRateWindow: cfg.AuthRateLimitWindow,

		Root:            handler.New(version),
		Health:          handler.NewHealthHandler(repo, cacheClient),
		Accounts:        handler.NewAuthHandler(authService, enrollmentService, logger),
		Courses:         handler.NewCourseHandler(courseService, enrollmentService, logger),
		Recommendations: handler.NewRecommendationHandler(recommendationService, logger),
		Admin:           handler.NewAdminHandler(seedService, sched, logger),
	})

	srv := server.New(router, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Components stop in reverse registration order after the HTTP server,
	// and all of them before the deferred Redis and Postgres closes.
	// The worker stops reading and finishes its in-flight batch; the
	// publisher drains last.
	srv.OnShutdown("activity-publisher", publisher.Shutdown)

	if cfg.ActivityWorkerEnabled {
		worker := activity.NewWorker(cacheClient.Client(), eventsRepo, logger, activity.NewConsumerID(), recorder)
		go func() {
			if err := worker.Run(context.Background()); err != nil {
				logger.Error("activity worker stopped", "error", err)
			}
		}()
		srv.OnShutdown("activity-worker", worker.Shutdown)
	}

	sched.Start()
	srv.OnShutdown("scheduler", sched.Shutdown)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"version", version,
		"metrics", cfg.MetricsEnabled,
		"activity_worker", cfg.ActivityWorkerEnabled,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

// redactURL keeps the username of a connection URL and drops its password.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			username = "redacted"
		}
		parsed.User = url.User(username)
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
