package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/scheduler"
	"github.com/learnhub/learnhub/internal/service"
)

// Seeder is implemented by *service.SeedService.
type Seeder interface {
	Seed(ctx context.Context) (*service.SeedResult, error)
}

// JobRunner is implemented by *scheduler.Scheduler.
type JobRunner interface {
	Jobs() []scheduler.JobInfo
	RunNow(id string) error
}

// AdminHandler provides admin-only operational endpoints.
type AdminHandler struct {
	seeder Seeder
	jobs   JobRunner
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler. jobs may be nil when the
// scheduler is disabled.
func NewAdminHandler(seeder Seeder, jobs JobRunner, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		seeder: seeder,
		jobs:   jobs,
		logger: logger.With("component", "admin_handler"),
	}
}

// Seed handles POST /api/v1/admin/seed.
func (h *AdminHandler) Seed(w http.ResponseWriter, r *http.Request) {
	result, err := h.seeder.Seed(r.Context())
	if err != nil {
		writeInternalError(w, r, h.logger, err)
		return
	}

	h.logger.Info("catalog_seeded",
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"admin_id", auth.UserIDFromContext(r.Context()),
	)

	writeJSON(w, http.StatusOK, result)
}

// Jobs handles GET /api/v1/admin/jobs.
func (h *AdminHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeJSON(w, http.StatusOK, map[string]any{"data": []scheduler.JobInfo{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": h.jobs.Jobs()})
}

// RunJob handles POST /api/v1/admin/jobs/{id}/run.
func (h *AdminHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeError(w, http.StatusNotFound, "JOB_NOT_FOUND", "job not found")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.jobs.RunNow(id); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "JOB_NOT_FOUND", "job not found")
			return
		}
		writeInternalError(w, r, h.logger, err)
		return
	}

	h.logger.Info("job_triggered", "job_id", id, "admin_id", auth.UserIDFromContext(r.Context()))
	w.WriteHeader(http.StatusAccepted)
}
