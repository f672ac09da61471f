package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/handler/dto"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/service"
)

// CatalogService is implemented by *service.CourseService.
type CatalogService interface {
	ListCourses(ctx context.Context, input service.ListCoursesInput) (*service.ListCoursesOutput, error)
	GetCourse(ctx context.Context, idOrSlug string) (*model.Course, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	TrendingCourses(ctx context.Context, days, limit int) ([]*model.Course, error)
	CourseStats(ctx context.Context, idOrSlug string, from, to time.Time) (*model.CourseStatsResponse, error)
	CreateCourse(ctx context.Context, input service.CreateCourseInput) (*model.Course, error)
}

// EnrollmentActions is implemented by *service.EnrollmentService.
type EnrollmentActions interface {
	Enroll(ctx context.Context, userID, idOrSlug string) (*model.Enrollment, error)
	Complete(ctx context.Context, userID, idOrSlug string) (*model.Enrollment, error)
	UpdateProgress(ctx context.Context, userID, idOrSlug string, progress int) (*model.Enrollment, error)
}

// CourseHandler serves the catalog and enrollment endpoints.
type CourseHandler struct {
	catalog     CatalogService
	enrollments EnrollmentActions
	logger      *slog.Logger
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(catalog CatalogService, enrollments EnrollmentActions, logger *slog.Logger) *CourseHandler {
	return &CourseHandler{
		catalog:     catalog,
		enrollments: enrollments,
		logger:      logger.With("component", "course_handler"),
	}
}

// List handles GET /api/v1/courses.
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "limit must be a positive integer")
		return
	}

	q := r.URL.Query()
	result, err := h.catalog.ListCourses(r.Context(), service.ListCoursesInput{
		Category: q.Get("category"),
		Level:    q.Get("level"),
		Tag:      q.Get("tag"),
		Query:    q.Get("q"),
		Sort:     q.Get("sort"),
		Cursor:   q.Get("cursor"),
		Limit:    limit,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CourseListResponse{
		Data:       dto.ToCourseResponses(result.Courses),
		Pagination: &dto.Pagination{NextCursor: result.NextCursor, HasMore: result.HasMore},
	})
}

// Get handles GET /api/v1/courses/{id}. The parameter may be an ID or a slug.
func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	course, err := h.catalog.GetCourse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToCourseResponse(course))
}

// Categories handles GET /api/v1/categories.
func (h *CourseHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}

	writeJSON(w, http.StatusOK, dto.CategoryListResponse{Data: categories})
}

// Trending handles GET /api/v1/courses/trending?days=&limit=.
func (h *CourseHandler) Trending(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil || days < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "days must be a positive integer")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "limit must be a positive integer")
		return
	}

	courses, err := h.catalog.TrendingCourses(r.Context(), days, limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TrendingResponse{
		Days: service.ClampTrendingDays(days),
		Data: dto.ToCourseResponses(courses),
	})
}

// Stats handles GET /api/v1/courses/{id}/stats?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *CourseHandler) Stats(w http.ResponseWriter, r *http.Request) {
	from, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "from must be a date (YYYY-MM-DD)")
		return
	}
	to, err := parseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "to must be a date (YYYY-MM-DD)")
		return
	}

	stats, err := h.catalog.CourseStats(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Enroll handles POST /api/v1/courses/{id}/enroll.
func (h *CourseHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	enrollment, err := h.enrollments.Enroll(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToEnrollmentResponse(enrollment))
}

// Complete handles POST /api/v1/courses/{id}/complete.
func (h *CourseHandler) Complete(w http.ResponseWriter, r *http.Request) {
	enrollment, err := h.enrollments.Complete(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToEnrollmentResponse(enrollment))
}

// Progress handles PUT /api/v1/courses/{id}/progress.
func (h *CourseHandler) Progress(w http.ResponseWriter, r *http.Request) {
	var req dto.ProgressRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	enrollment, err := h.enrollments.UpdateProgress(r.Context(),
		auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"), *req.Progress)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToEnrollmentResponse(enrollment))
}

// Create handles POST /api/v1/admin/courses.
func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCourseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	course, err := h.catalog.CreateCourse(r.Context(), service.CreateCourseInput{
		Title:           req.Title,
		Slug:            req.Slug,
		Description:     req.Description,
		Category:        req.Category,
		Tags:            req.Tags,
		Level:           req.Level,
		Instructor:      req.Instructor,
		DurationMinutes: req.DurationMinutes,
		ThumbnailURL:    req.ThumbnailURL,
		Rating:          req.Rating,
		Published:       req.Published,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("course_created",
		"course_id", course.ID,
		"slug", course.Slug,
		"admin_id", auth.UserIDFromContext(r.Context()),
	)

	writeJSON(w, http.StatusCreated, dto.ToCourseResponse(course))
}

func (h *CourseHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		writeError(w, http.StatusNotFound, "COURSE_NOT_FOUND", "course not found")
	case errors.Is(err, service.ErrAlreadyEnrolled):
		writeError(w, http.StatusConflict, "ALREADY_ENROLLED", "already enrolled in course")
	case errors.Is(err, service.ErrNotEnrolled):
		writeError(w, http.StatusNotFound, "NOT_ENROLLED", "not enrolled in course")
	case errors.Is(err, service.ErrSlugTaken):
		writeError(w, http.StatusConflict, "SLUG_TAKEN", "course slug already exists")
	case errors.Is(err, service.ErrInvalidTitle):
		writeValidationError(w, map[string]string{"title": "title must be 3 to 200 characters"})
	case errors.Is(err, service.ErrInvalidSlug):
		writeValidationError(w, map[string]string{"slug": "slug cannot be derived from title"})
	case errors.Is(err, service.ErrInvalidLevel):
		writeValidationError(w, map[string]string{"level": "level must be one of: beginner intermediate advanced"})
	case errors.Is(err, service.ErrTooManyTags):
		writeValidationError(w, map[string]string{"tags": "tags must contain at most 20 items"})
	case errors.Is(err, service.ErrInvalidProgress):
		writeValidationError(w, map[string]string{"progress": "progress must be between 0 and 100"})
	case errors.Is(err, service.ErrInvalidSort):
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "sort must be newest or popular")
	case errors.Is(err, service.ErrInvalidCursor):
		writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "invalid pagination cursor")
	case errors.Is(err, service.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "invalid date range")
	default:
		writeInternalError(w, r, h.logger, err)
	}
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, raw)
}
