package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/learnhub/learnhub/internal/model"
)

// SeedStore inserts catalog entries, skipping existing slugs.
type SeedStore interface {
	SeedCourses(ctx context.Context, courses []*model.Course) (int, error)
}

// CatalogInvalidator drops cached catalog aggregates and course entries.
type CatalogInvalidator interface {
	InvalidateCatalog(ctx context.Context)
	EvictCourse(ctx context.Context, course *model.Course)
}

// SeedResult reports how many sample courses were inserted.
type SeedResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// SeedService loads the sample catalog.
type SeedService struct {
	store   SeedStore
	catalog CatalogInvalidator
	logger  *slog.Logger
}

// NewSeedService creates a new SeedService. catalog may be nil.
func NewSeedService(store SeedStore, catalog CatalogInvalidator, logger *slog.Logger) *SeedService {
	return &SeedService{
		store:   store,
		catalog: catalog,
		logger:  componentLogger(logger, "service.seed"),
	}
}

// Seed inserts the sample catalog. Running it again inserts nothing.
func (s *SeedService) Seed(ctx context.Context) (*SeedResult, error) {
	courses, err := SampleCourses(time.Now())
	if err != nil {
		return nil, err
	}

	inserted, err := s.store.SeedCourses(ctx, courses)
	if err != nil {
		return nil, fmt.Errorf("failed to seed courses: %w", err)
	}

	if inserted > 0 && s.catalog != nil {
		// Clears not-found entries cached for the new slugs.
		for _, course := range courses {
			s.catalog.EvictCourse(ctx, course)
		}
		s.catalog.InvalidateCatalog(ctx)
	}

	result := &SeedResult{Inserted: inserted, Skipped: len(courses) - inserted}
	s.logger.Info("sample catalog seeded", "inserted", result.Inserted, "skipped", result.Skipped)
	return result, nil
}

// SampleCourses builds the sample catalog. Creation times are spread one
// minute apart so newest-first ordering is stable.
func SampleCourses(now time.Time) ([]*model.Course, error) {
	courses := make([]*model.Course, 0, len(sampleCatalog))
	for i, input := range sampleCatalog {
		course, err := NewCourse(input, now.Add(-time.Duration(len(sampleCatalog)-i)*time.Minute))
		if err != nil {
			return nil, fmt.Errorf("sample course %q: %w", input.Title, err)
		}
		courses = append(courses, course)
	}
	return courses, nil
}

var sampleCatalog = []CreateCourseInput{
	{
		Title:           "Go Fundamentals",
		Description:     "Types, functions, interfaces and the standard library, from first program to tested package.",
		Category:        "programming",
		Tags:            []string{"go", "backend", "beginner-friendly"},
		Level:           "beginner",
		Instructor:      "Ada Park",
		DurationMinutes: 360,
		Rating:          4.7,
	},
	{
		Title:           "Concurrency in Go",
		Description:     "Goroutines, channels, context cancellation and the sync package in real services.",
		Category:        "programming",
		Tags:            []string{"go", "concurrency", "backend"},
		Level:           "advanced",
		Instructor:      "Ada Park",
		DurationMinutes: 300,
		Rating:          4.8,
	},
	{
		Title:           "Python for Data Analysis",
		Description:     "Load, clean and explore datasets with pandas and notebooks.",
		Category:        "data-science",
		Tags:            []string{"python", "pandas", "analytics"},
		Level:           "beginner",
		Instructor:      "Miguel Santos",
		DurationMinutes: 420,
		Rating:          4.6,
	},
	{
		Title:           "Machine Learning Foundations",
		Description:     "Supervised learning, model evaluation and feature engineering with scikit-learn.",
		Category:        "data-science",
		Tags:            []string{"python", "machine-learning", "statistics"},
		Level:           "intermediate",
		Instructor:      "Priya Nair",
		DurationMinutes: 540,
		Rating:          4.5,
	},
	{
		Title:           "SQL for Analysts",
		Description:     "Joins, window functions and query tuning on PostgreSQL.",
		Category:        "data-science",
		Tags:            []string{"sql", "postgresql", "analytics"},
		Level:           "beginner",
		Instructor:      "Miguel Santos",
		DurationMinutes: 240,
		Rating:          4.4,
	},
	{
		Title:           "Modern JavaScript",
		Description:     "ES modules, async/await and the browser platform without a framework.",
		Category:        "web-development",
		Tags:            []string{"javascript", "frontend"},
		Level:           "beginner",
		Instructor:      "Lena Fischer",
		DurationMinutes: 300,
		Rating:          4.3,
	},
	{
		Title:           "Building SPAs with React",
		Description:     "Components, hooks, routing and data fetching for single-page applications.",
		Category:        "web-development",
		Tags:            []string{"javascript", "react", "frontend"},
		Level:           "intermediate",
		Instructor:      "Lena Fischer",
		DurationMinutes: 480,
		Rating:          4.6,
	},
	{
		Title:           "REST API Design",
		Description:     "Resource modeling, pagination, errors and versioning for HTTP APIs.",
		Category:        "web-development",
		Tags:            []string{"api", "backend", "http"},
		Level:           "intermediate",
		Instructor:      "Ada Park",
		DurationMinutes: 180,
		Rating:          4.5,
	},
	{
		Title:           "UI Design Principles",
		Description:     "Layout, typography, color and accessibility for product interfaces.",
		Category:        "design",
		Tags:            []string{"ui", "accessibility"},
		Level:           "beginner",
		Instructor:      "Noor Haddad",
		DurationMinutes: 200,
		Rating:          4.2,
	},
	{
		Title:           "UX Research Methods",
		Description:     "Interviews, usability testing and turning findings into product decisions.",
		Category:        "design",
		Tags:            []string{"ux", "research"},
		Level:           "intermediate",
		Instructor:      "Noor Haddad",
		DurationMinutes: 260,
		Rating:          4.4,
	},
	{
		Title:           "Startup Finance Basics",
		Description:     "Unit economics, cash flow and fundraising for early-stage founders.",
		Category:        "business",
		Tags:            []string{"finance", "startups"},
		Level:           "beginner",
		Instructor:      "Tomas Varga",
		DurationMinutes: 150,
		Rating:          4.1,
	},
	{
		Title:           "Product Management Essentials",
		Description:     "Discovery, prioritization and roadmaps for new product managers.",
		Category:        "business",
		Tags:            []string{"product", "strategy"},
		Level:           "intermediate",
		Instructor:      "Tomas Varga",
		DurationMinutes: 220,
		Rating:          4.3,
	},
	{
		Title:           "Linux Command Line",
		Description:     "Shell navigation, pipes, permissions and scripting for developers.",
		Category:        "devops",
		Tags:            []string{"linux", "shell"},
		Level:           "beginner",
		Instructor:      "Sam Okafor",
		DurationMinutes: 180,
		Rating:          4.5,
	},
	{
		Title:           "Containers and Kubernetes",
		Description:     "Images, deployments, services and rollouts on a Kubernetes cluster.",
		Category:        "devops",
		Tags:            []string{"docker", "kubernetes", "backend"},
		Level:           "advanced",
		Instructor:      "Sam Okafor",
		DurationMinutes: 450,
		Rating:          4.7,
	},
}
