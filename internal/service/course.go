package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/learnhub/learnhub/internal/cache"
	"github.com/learnhub/learnhub/internal/metrics"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/repository"
)

const (
	defaultCoursePageSize = 20
	maxCoursePageSize     = 100
	maxCourseTags         = 20
	minTitleLen           = 3
	maxTitleLen           = 200

	defaultTrendingDays  = 7
	maxTrendingDays      = 30
	defaultTrendingLimit = 10
	maxTrendingLimit     = 50

	defaultStatsDays = 30
	maxStatsDays     = 90

	dateLayout = "2006-01-02"
)

// CourseStore is the persistence needed by the catalog.
type CourseStore interface {
	CreateCourse(ctx context.Context, course *model.Course) error
	GetCourse(ctx context.Context, idOrSlug string) (*model.Course, error)
	GetCoursesByIDs(ctx context.Context, ids []string) ([]*model.Course, error)
	ListCourses(ctx context.Context, filter repository.CourseFilter, cursor string, limit int) ([]*model.Course, string, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	PopularCourses(ctx context.Context, exclude []string, limit int) ([]*model.Course, error)
}

// CourseCache is the Redis layer in front of CourseStore.
type CourseCache interface {
	GetCourse(ctx context.Context, idOrSlug string) (*model.Course, error)
	SetCourse(ctx context.Context, course *model.Course) error
	DeleteCourse(ctx context.Context, course *model.Course) error
	IsNegativelyCached(ctx context.Context, idOrSlug string) (bool, error)
	SetNegativeCache(ctx context.Context, idOrSlug string) error
	GetCategories(ctx context.Context) ([]model.Category, error)
	SetCategories(ctx context.Context, categories []model.Category) error
	DeleteCategories(ctx context.Context) error
}

// StatsStore reads the daily activity rollups.
type StatsStore interface {
	GetDailyStats(ctx context.Context, courseID string, from, to time.Time) ([]*model.CourseDailyStats, error)
	TrendingCourseIDs(ctx context.Context, since time.Time, limit int) ([]string, error)
}

// CourseService handles catalog business logic.
type CourseService struct {
	store   CourseStore
	stats   StatsStore
	cache   CourseCache
	local   *cache.LocalCache
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewCourseService creates a new CourseService.
func NewCourseService(store CourseStore, stats StatsStore, c CourseCache, local *cache.LocalCache, logger *slog.Logger, recorder metrics.Recorder) *CourseService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if local == nil {
		local = cache.NewLocalCache(time.Minute)
	}
	return &CourseService{
		store:   store,
		stats:   stats,
		cache:   c,
		local:   local,
		logger:  componentLogger(logger, "service.course"),
		metrics: recorder,
		now:     time.Now,
	}
}

// ListCoursesInput defines input for listing courses.
type ListCoursesInput struct {
	Category string
	Level    string
	Tag      string
	Query    string
	Sort     string
	Cursor   string
	Limit    int
}

// ListCoursesOutput defines output for listing courses.
type ListCoursesOutput struct {
	Courses    []*model.Course
	NextCursor string
	HasMore    bool
}

// ListCourses returns a page of published courses.
func (s *CourseService) ListCourses(ctx context.Context, input ListCoursesInput) (*ListCoursesOutput, error) {
	if input.Limit <= 0 {
		input.Limit = defaultCoursePageSize
	}
	if input.Limit > maxCoursePageSize {
		input.Limit = maxCoursePageSize
	}

	level := model.Level(strings.ToLower(strings.TrimSpace(input.Level)))
	if level != "" && !level.IsValid() {
		return nil, ErrInvalidLevel
	}

	sort := strings.ToLower(strings.TrimSpace(input.Sort))
	switch sort {
	case "":
		sort = repository.SortNewest
	case repository.SortNewest, repository.SortPopular:
	default:
		return nil, ErrInvalidSort
	}

	filter := repository.CourseFilter{
		Category: strings.ToLower(strings.TrimSpace(input.Category)),
		Level:    level,
		Tag:      strings.ToLower(strings.TrimSpace(input.Tag)),
		Query:    strings.TrimSpace(input.Query),
		Sort:     sort,
	}

	courses, next, err := s.store.ListCourses(ctx, filter, input.Cursor, input.Limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, ErrInvalidCursor
		}
		return nil, err
	}

	return &ListCoursesOutput{
		Courses:    courses,
		NextCursor: next,
		HasMore:    next != "",
	}, nil
}

// GetCourse looks up a published course by ID or slug, cache first.
func (s *CourseService) GetCourse(ctx context.Context, idOrSlug string) (*model.Course, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return nil, ErrCourseNotFound
	}

	cached, err := s.cache.GetCourse(ctx, idOrSlug)
	if err == nil {
		s.metrics.IncCourseCacheHit()
		return cached, nil
	}

	if errors.Is(err, cache.ErrCacheMiss) {
		s.metrics.IncCourseCacheMiss()
		if negative, _ := s.cache.IsNegativelyCached(ctx, idOrSlug); negative {
			return nil, ErrCourseNotFound
		}
	} else {
		s.logger.Warn("course cache read failed", "course", idOrSlug, "error", err)
	}

	course, err := s.store.GetCourse(ctx, idOrSlug)
	if err != nil {
		if errors.Is(err, repository.ErrCourseNotFound) {
			_ = s.cache.SetNegativeCache(ctx, idOrSlug)
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	if err := s.cache.SetCourse(ctx, course); err != nil {
		s.logger.Warn("course cache write failed", "course_id", course.ID, "error", err)
	}

	return course, nil
}

// ListCategories returns categories with published course counts, served
// from the in-process cache, then Redis, then the database.
func (s *CourseService) ListCategories(ctx context.Context) ([]model.Category, error) {
	if categories, ok := s.local.GetCategories(); ok {
		return categories, nil
	}

	categories, err := s.cache.GetCategories(ctx)
	if err == nil {
		s.local.SetCategories(categories)
		return categories, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("category cache read failed", "error", err)
	}

	categories, err = s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	s.local.SetCategories(categories)
	if err := s.cache.SetCategories(ctx, categories); err != nil {
		s.logger.Warn("category cache write failed", "error", err)
	}

	return categories, nil
}

// WarmCategories reloads the category list into both cache layers.
func (s *CourseService) WarmCategories(ctx context.Context) error {
	s.InvalidateCatalog(ctx)
	_, err := s.ListCategories(ctx)
	return err
}

// InvalidateCatalog drops cached catalog aggregates after the catalog changes.
func (s *CourseService) InvalidateCatalog(ctx context.Context) {
	s.local.ClearCategories()
	if err := s.cache.DeleteCategories(ctx); err != nil {
		s.logger.Warn("failed to invalidate categories", "error", err)
	}
}

// EvictCourse removes a course from the cache, e.g. after its counters change.
func (s *CourseService) EvictCourse(ctx context.Context, course *model.Course) {
	if err := s.cache.DeleteCourse(ctx, course); err != nil {
		s.logger.Warn("failed to evict course", "course_id", course.ID, "error", err)
	}
}

// CreateCourseInput defines input for creating a course.
type CreateCourseInput struct {
	Title           string
	Slug            string
	Description     string
	Category        string
	Tags            []string
	Level           string
	Instructor      string
	DurationMinutes int
	ThumbnailURL    string
	Rating          float64
	Published       *bool
}

// NewCourse validates input and builds a course ready to insert.
func NewCourse(input CreateCourseInput, now time.Time) (*model.Course, error) {
	level := model.Level(strings.ToLower(strings.TrimSpace(input.Level)))
	if level == "" {
		level = model.LevelBeginner
	}
	if !level.IsValid() {
		return nil, ErrInvalidLevel
	}

	title := strings.TrimSpace(input.Title)
	if n := utf8.RuneCountInString(title); n < minTitleLen || n > maxTitleLen {
		return nil, ErrInvalidTitle
	}

	slug := model.Slugify(input.Slug)
	if slug == "" {
		slug = model.Slugify(title)
	}
	if slug == "" {
		return nil, ErrInvalidSlug
	}

	tags := model.NormalizeLabels(input.Tags)
	if len(tags) > maxCourseTags {
		return nil, ErrTooManyTags
	}

	published := true
	if input.Published != nil {
		published = *input.Published
	}

	now = now.UTC()
	return &model.Course{
		ID:              ulid.Make().String(),
		Slug:            slug,
		Title:           title,
		Description:     strings.TrimSpace(input.Description),
		Category:        strings.ToLower(strings.TrimSpace(input.Category)),
		Tags:            tags,
		Level:           level,
		Instructor:      strings.TrimSpace(input.Instructor),
		DurationMinutes: input.DurationMinutes,
		ThumbnailURL:    strings.TrimSpace(input.ThumbnailURL),
		Rating:          input.Rating,
		Published:       published,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// CreateCourse adds a course to the catalog.
func (s *CourseService) CreateCourse(ctx context.Context, input CreateCourseInput) (*model.Course, error) {
	course, err := NewCourse(input, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateCourse(ctx, course); err != nil {
		if errors.Is(err, repository.ErrSlugExists) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	// A lookup that missed before the insert may have cached a 404.
	s.EvictCourse(ctx, course)
	s.InvalidateCatalog(ctx)
	s.logger.Info("course created", "course_id", course.ID, "slug", course.Slug)

	return course, nil
}

// TrendingCourses ranks courses by enrollments over the last days. With no
// recorded activity it falls back to overall popularity.
func (s *CourseService) TrendingCourses(ctx context.Context, days, limit int) ([]*model.Course, error) {
	days = ClampTrendingDays(days)
	if limit <= 0 {
		limit = defaultTrendingLimit
	}
	if limit > maxTrendingLimit {
		limit = maxTrendingLimit
	}

	since := startOfDay(s.now()).AddDate(0, 0, -(days - 1))
	ids, err := s.stats.TrendingCourseIDs(ctx, since, limit)
	if err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		courses, err := s.store.GetCoursesByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		if len(courses) > 0 {
			return courses, nil
		}
	}

	return s.store.PopularCourses(ctx, nil, limit)
}

// ClampTrendingDays applies the default and maximum trending window.
func ClampTrendingDays(days int) int {
	if days <= 0 {
		return defaultTrendingDays
	}
	return min(days, maxTrendingDays)
}

// CourseStats returns daily enrollments and completions for a course.
// Zero values select the last 30 days; the window is capped at 90 days.
func (s *CourseService) CourseStats(ctx context.Context, idOrSlug string, from, to time.Time) (*model.CourseStatsResponse, error) {
	course, err := s.GetCourse(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	today := startOfDay(s.now())
	if to.IsZero() || to.After(today) {
		to = today
	}
	to = startOfDay(to)
	if from.IsZero() {
		from = to.AddDate(0, 0, -(defaultStatsDays - 1))
	}
	from = startOfDay(from)
	if from.After(to) {
		return nil, ErrInvalidWindow
	}
	if earliest := to.AddDate(0, 0, -(maxStatsDays - 1)); from.Before(earliest) {
		from = earliest
	}

	stats, err := s.stats.GetDailyStats(ctx, course.ID, from, to)
	if err != nil {
		return nil, err
	}

	return buildStatsResponse(course.ID, from, to, stats, s.now().UTC()), nil
}

// buildStatsResponse lays out one entry per day in [from, to], filling days
// without activity with zeros.
func buildStatsResponse(courseID string, from, to time.Time, stats []*model.CourseDailyStats, generatedAt time.Time) *model.CourseStatsResponse {
	byDay := make(map[string]*model.CourseDailyStats, len(stats))
	for _, st := range stats {
		byDay[st.Date.UTC().Format(dateLayout)] = st
	}

	resp := &model.CourseStatsResponse{
		CourseID:    courseID,
		Daily:       []model.DailyActivity{},
		GeneratedAt: generatedAt,
	}
	resp.Period.From = from.Format(dateLayout)
	resp.Period.To = to.Format(dateLayout)

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(dateLayout)
		entry := model.DailyActivity{Date: key}
		if st, ok := byDay[key]; ok {
			entry.Enrollments = st.Enrollments
			entry.Completions = st.Completions
		}
		resp.TotalEnrollments += entry.Enrollments
		resp.TotalCompletions += entry.Completions
		resp.Daily = append(resp.Daily, entry)
	}

	return resp
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
