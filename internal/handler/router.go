package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/learnhub/learnhub/internal/metrics"
	"github.com/learnhub/learnhub/internal/middleware"
)

// RouterConfig wires handlers and middleware into the API router.
type RouterConfig struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
	// MetricsHandler serves /metrics; nil disables the endpoint.
	MetricsHandler http.Handler

	IsDevelopment      bool
	CORSAllowedOrigins []string
	MaxRequestBodySize int64

	Auth      middleware.AuthConfig
	RateLimit middleware.RateLimitConfig
	// Roles re-reads the caller's role on admin routes.
	Roles middleware.RoleLookup
	// AuthRateLimit caps register/login attempts per IP within AuthRateWindow.
	AuthRateLimit  int
	AuthRateWindow time.Duration

	Root            *Handler
	Health          *HealthHandler
	Accounts        *AuthHandler
	Courses         *CourseHandler
	Recommendations *RecommendationHandler
	Admin           *AdminHandler
}

// NewRouter builds the chi router with every API route.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(cfg.IsDevelopment))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}
	r.Get("/", cfg.Root.Info)

	authenticated := middleware.Auth(cfg.Auth)
	perUser := middleware.RateLimitUser(cfg.RateLimit)
	perIP := middleware.RateLimitIP(cfg.RateLimit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.AuthRateLimit(cfg.AuthRateLimit, cfg.AuthRateWindow))
				r.Post("/register", cfg.Accounts.Register)
				r.Post("/login", cfg.Accounts.Login)
			})
			r.With(authenticated).Post("/logout", cfg.Accounts.Logout)
		})

		// Public catalog.
		r.Group(func(r chi.Router) {
			r.Use(perIP)
			r.Get("/courses", cfg.Courses.List)
			r.Get("/courses/trending", cfg.Courses.Trending)
			r.Get("/courses/{id}", cfg.Courses.Get)
			r.Get("/courses/{id}/stats", cfg.Courses.Stats)
			r.Get("/categories", cfg.Courses.Categories)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticated, perUser)

			r.Get("/me", cfg.Accounts.Me)
			r.Put("/me/interests", cfg.Accounts.UpdateInterests)
			r.Get("/me/enrollments", cfg.Accounts.Enrollments)

			r.Post("/courses/{id}/enroll", cfg.Courses.Enroll)
			r.Post("/courses/{id}/complete", cfg.Courses.Complete)
			r.Put("/courses/{id}/progress", cfg.Courses.Progress)

			r.Get("/recommendations", cfg.Recommendations.List)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.CurrentRole(cfg.Roles, cfg.Logger), middleware.RequireAdmin())
				r.Post("/courses", cfg.Courses.Create)
				r.Post("/seed", cfg.Admin.Seed)
				r.Get("/jobs", cfg.Admin.Jobs)
				r.Post("/jobs/{id}/run", cfg.Admin.RunJob)
			})
		})
	})

	r.NotFound(cfg.Root.NotFound)
	r.MethodNotAllowed(cfg.Root.MethodNotAllowed)

	return r
}
