package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/learnhub/learnhub/internal/cache"
	"github.com/learnhub/learnhub/internal/metrics"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/repository"
)

// RecommendationStore is the persistence needed to build recommendations.
type RecommendationStore interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetEnrollmentHistory(ctx context.Context, userID string) (*repository.EnrollmentHistory, error)
	GetCoursesByIDs(ctx context.Context, ids []string) ([]*model.Course, error)
	CoursesMatchingLabels(ctx context.Context, labels, exclude []string, limit int) ([]*model.Course, error)
	CoursesInCategories(ctx context.Context, categories, exclude []string, limit int) ([]*model.Course, error)
	PopularCourses(ctx context.Context, exclude []string, limit int) ([]*model.Course, error)
}

// RecommendationCache stores computed lists and the popular snapshot.
type RecommendationCache interface {
	RecommendationGeneration(ctx context.Context, userID string) (int64, error)
	GetRecommendations(ctx context.Context, userID string, gen int64, limit int) ([]model.Recommendation, error)
	SetRecommendations(ctx context.Context, userID string, gen int64, limit int, recs []model.Recommendation, ttl time.Duration) error
	GetPopularSnapshot(ctx context.Context) ([]string, error)
}

// RecommendationConfig bounds the result size and cache lifetime.
type RecommendationConfig struct {
	DefaultLimit int
	MaxLimit     int
	CacheTTL     time.Duration
}

// RecommendationService builds per-user course recommendations.
type RecommendationService struct {
	store   RecommendationStore
	cache   RecommendationCache
	cfg     RecommendationConfig
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewRecommendationService creates a new RecommendationService.
func NewRecommendationService(store RecommendationStore, c RecommendationCache, cfg RecommendationConfig, logger *slog.Logger, recorder metrics.Recorder) *RecommendationService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = cfg.DefaultLimit
	}
	return &RecommendationService{
		store:   store,
		cache:   c,
		cfg:     cfg,
		logger:  componentLogger(logger, "service.recommendation"),
		metrics: recorder,
	}
}

// RecommendationsOutput is the result of Recommend.
type RecommendationsOutput struct {
	Items  []model.Recommendation
	Limit  int
	Cached bool
}

// Stage is one ordered list of candidate courses and the reason attached to
// every item it contributes.
type Stage struct {
	Reason  model.Reason
	Courses []*model.Course
}

// Compose merges stages in order. Courses in exclude and repeats of an
// already selected course are skipped; the result never exceeds limit.
func Compose(stages []Stage, exclude []string, limit int) []model.Recommendation {
	recs := make([]model.Recommendation, 0, limit)
	if limit <= 0 {
		return recs
	}

	seen := make(map[string]struct{}, len(exclude)+limit)
	for _, id := range exclude {
		seen[id] = struct{}{}
	}

	for _, stage := range stages {
		for _, course := range stage.Courses {
			if course == nil {
				continue
			}
			if _, dup := seen[course.ID]; dup {
				continue
			}
			seen[course.ID] = struct{}{}
			recs = append(recs, model.Recommendation{Course: course.Summary(), Reason: stage.Reason})
			if len(recs) == limit {
				return recs
			}
		}
	}

	return recs
}

// ClampLimit applies the default and maximum result size.
func (s *RecommendationService) ClampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}

type stageFetcher func(ctx context.Context, exclude []string, limit int) ([]*model.Course, error)

// Recommend returns up to limit courses for a user: interest matches first,
// then courses in the categories the user already studies, then the most
// popular courses. Enrolled and completed courses are never recommended.
func (s *RecommendationService) Recommend(ctx context.Context, userID string, limit int) (*RecommendationsOutput, error) {
	start := time.Now()
	limit = s.ClampLimit(limit)

	// The generation is read before the enrollment history so that an
	// invalidation racing with this computation hides its result.
	gen, err := s.cache.RecommendationGeneration(ctx, userID)
	useCache := err == nil
	if err != nil {
		s.logger.Warn("recommendation cache generation read failed", "user_id", userID, "error", err)
	}

	if useCache {
		cached, err := s.cache.GetRecommendations(ctx, userID, gen, limit)
		if err == nil {
			s.metrics.IncRecommendationServed("cache")
			return &RecommendationsOutput{Items: cached, Limit: limit, Cached: true}, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("recommendation cache read failed", "user_id", userID, "error", err)
		}
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	history, err := s.store.GetEnrollmentHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollment history: %w", err)
	}
	exclude := history.CourseIDs

	type plannedStage struct {
		reason model.Reason
		fetch  stageFetcher
	}
	var plan []plannedStage
	if len(user.Interests) > 0 {
		plan = append(plan, plannedStage{model.ReasonInterest, func(ctx context.Context, skip []string, n int) ([]*model.Course, error) {
			return s.store.CoursesMatchingLabels(ctx, user.Interests, skip, n)
		}})
	}
	if len(history.Categories) > 0 {
		plan = append(plan, plannedStage{model.ReasonCategory, func(ctx context.Context, skip []string, n int) ([]*model.Course, error) {
			return s.store.CoursesInCategories(ctx, history.Categories, skip, n)
		}})
	}
	plan = append(plan, plannedStage{model.ReasonPopular, s.popularCourses})

	var stages []Stage
	recs := []model.Recommendation{}
	for _, p := range plan {
		if len(recs) >= limit {
			break
		}
		skip := append(lo.Map(recs, func(r model.Recommendation, _ int) string { return r.Course.ID }), exclude...)
		courses, err := p.fetch(ctx, skip, limit-len(recs))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s candidates: %w", p.reason, err)
		}
		stages = append(stages, Stage{Reason: p.reason, Courses: courses})
		recs = Compose(stages, exclude, limit)
	}

	for reason, items := range lo.GroupBy(recs, func(r model.Recommendation) model.Reason { return r.Reason }) {
		s.metrics.ObserveRecommendationItems(string(reason), len(items))
	}
	s.metrics.IncRecommendationServed("computed")
	s.metrics.ObserveRecommendationDuration(time.Since(start))

	if useCache {
		if err := s.cache.SetRecommendations(ctx, userID, gen, limit, recs, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("recommendation cache write failed", "user_id", userID, "error", err)
		}
	}

	return &RecommendationsOutput{Items: recs, Limit: limit}, nil
}

// popularCourses serves the popular stage from the cached snapshot and tops
// up from the database when the snapshot is missing or too short.
func (s *RecommendationService) popularCourses(ctx context.Context, exclude []string, limit int) ([]*model.Course, error) {
	snapshot, err := s.cache.GetPopularSnapshot(ctx)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("popular snapshot read failed", "error", err)
		}
		return s.store.PopularCourses(ctx, exclude, limit)
	}

	ids := lo.Without(snapshot, exclude...)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	courses, err := s.store.GetCoursesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(courses) >= limit {
		return courses, nil
	}

	more, err := s.store.PopularCourses(ctx, append(lo.Map(courses, func(c *model.Course, _ int) string { return c.ID }), exclude...), limit-len(courses))
	if err != nil {
		return nil, err
	}
	return append(courses, more...), nil
}
