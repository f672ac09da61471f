package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/learnhub/learnhub/internal/activity"
	"github.com/learnhub/learnhub/internal/metrics"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/repository"
)

// EnrollmentStore is the persistence needed for enrollments.
type EnrollmentStore interface {
	Enroll(ctx context.Context, userID, courseID string) (*model.Enrollment, error)
	CompleteEnrollment(ctx context.Context, userID, courseID string) (*model.Enrollment, bool, error)
	UpdateProgress(ctx context.Context, userID, courseID string, progress int) (*model.Enrollment, error)
	ListEnrollments(ctx context.Context, userID string, status model.EnrollmentStatus) ([]*model.Enrollment, error)
}

// CourseResolver finds a published course by ID or slug.
type CourseResolver interface {
	GetCourse(ctx context.Context, idOrSlug string) (*model.Course, error)
	EvictCourse(ctx context.Context, course *model.Course)
}

// RecommendationInvalidator drops a user's cached recommendations.
type RecommendationInvalidator interface {
	InvalidateRecommendations(ctx context.Context, userID string) error
}

// EventPublisher emits enrollment activity without blocking.
type EventPublisher interface {
	PublishAsync(event activity.EventPayload)
}

// EnrollmentService handles enrolling in and completing courses.
type EnrollmentService struct {
	store     EnrollmentStore
	courses   CourseResolver
	recs      RecommendationInvalidator
	publisher EventPublisher
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewEnrollmentService creates a new EnrollmentService. publisher may be nil.
func NewEnrollmentService(store EnrollmentStore, courses CourseResolver, recs RecommendationInvalidator, publisher EventPublisher, logger *slog.Logger, recorder metrics.Recorder) *EnrollmentService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &EnrollmentService{
		store:     store,
		courses:   courses,
		recs:      recs,
		publisher: publisher,
		logger:    componentLogger(logger, "service.enrollment"),
		metrics:   recorder,
	}
}

// Enroll enrolls the user in a published course.
func (s *EnrollmentService) Enroll(ctx context.Context, userID, idOrSlug string) (*model.Enrollment, error) {
	course, err := s.courses.GetCourse(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.store.Enroll(ctx, userID, course.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCourseNotFound):
			return nil, ErrCourseNotFound
		case errors.Is(err, repository.ErrAlreadyEnrolled):
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("failed to enroll: %w", err)
	}

	summary := course.Summary()
	summary.EnrollmentCount++
	enrollment.Course = &summary

	s.afterChange(ctx, model.EventEnrolled, userID, course)
	return enrollment, nil
}

// Complete marks the user's enrollment completed. Completing twice is a no-op.
func (s *EnrollmentService) Complete(ctx context.Context, userID, idOrSlug string) (*model.Enrollment, error) {
	course, err := s.courses.GetCourse(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	enrollment, changed, err := s.store.CompleteEnrollment(ctx, userID, course.ID)
	if err != nil {
		if errors.Is(err, repository.ErrEnrollmentNotFound) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("failed to complete enrollment: %w", err)
	}

	summary := course.Summary()
	enrollment.Course = &summary

	if changed {
		s.afterChange(ctx, model.EventCompleted, userID, course)
	}
	return enrollment, nil
}

// UpdateProgress records progress on an enrollment; 100 completes it.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, userID, idOrSlug string, progress int) (*model.Enrollment, error) {
	if progress < 0 || progress > 100 {
		return nil, ErrInvalidProgress
	}
	if progress == 100 {
		return s.Complete(ctx, userID, idOrSlug)
	}

	course, err := s.courses.GetCourse(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.store.UpdateProgress(ctx, userID, course.ID, progress)
	if err != nil {
		if errors.Is(err, repository.ErrEnrollmentNotFound) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}

	summary := course.Summary()
	enrollment.Course = &summary
	return enrollment, nil
}

// ListEnrollments returns the user's enrollments, optionally by status.
func (s *EnrollmentService) ListEnrollments(ctx context.Context, userID, status string) ([]*model.Enrollment, error) {
	st := model.EnrollmentStatus(status)
	if st != "" && !st.IsValid() {
		return nil, ErrInvalidStatus
	}
	return s.store.ListEnrollments(ctx, userID, st)
}

func (s *EnrollmentService) afterChange(ctx context.Context, event model.EventType, userID string, course *model.Course) {
	s.metrics.IncEnrollment(string(event))

	if err := s.recs.InvalidateRecommendations(ctx, userID); err != nil {
		s.logger.Warn("failed to invalidate recommendations", "user_id", userID, "error", err)
	}
	s.courses.EvictCourse(ctx, course)

	if s.publisher != nil {
		s.publisher.PublishAsync(activity.NewEventPayload(event, userID, course.ID))
	}

	s.logger.Info("enrollment changed", "event", event, "user_id", userID, "course_id", course.ID)
}
