package repository

import (
	"context"
	"fmt"

	"github.com/learnhub/learnhub/internal/model"
)

// Candidate queries for the recommendation stages. All of them return
// published courses not in exclude, ordered by enrollment_count desc,
// rating desc, id.

const candidateOrder = ` ORDER BY enrollment_count DESC, rating DESC, id`

// CoursesMatchingLabels returns courses whose category or any tag is in labels.
func (r *Repository) CoursesMatchingLabels(ctx context.Context, labels, exclude []string, limit int) ([]*model.Course, error) {
	if len(labels) == 0 || limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT ` + courseColumns + `
		FROM courses
		WHERE published
		  AND (category = ANY($1) OR tags && $1::text[])
		  AND NOT (id = ANY($2))
	` + candidateOrder + ` LIMIT $3`

	courses, err := r.queryCourses(ctx, query, labels, nonNil(exclude), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interest candidates: %w", err)
	}
	return courses, nil
}

// CoursesInCategories returns courses in any of categories.
func (r *Repository) CoursesInCategories(ctx context.Context, categories, exclude []string, limit int) ([]*model.Course, error) {
	if len(categories) == 0 || limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT ` + courseColumns + `
		FROM courses
		WHERE published
		  AND category = ANY($1)
		  AND NOT (id = ANY($2))
	` + candidateOrder + ` LIMIT $3`

	courses, err := r.queryCourses(ctx, query, categories, nonNil(exclude), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query category candidates: %w", err)
	}
	return courses, nil
}

// PopularCourses returns the most enrolled courses.
func (r *Repository) PopularCourses(ctx context.Context, exclude []string, limit int) ([]*model.Course, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT ` + courseColumns + `
		FROM courses
		WHERE published
		  AND NOT (id = ANY($1))
	` + candidateOrder + ` LIMIT $2`

	courses, err := r.queryCourses(ctx, query, nonNil(exclude), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query popular candidates: %w", err)
	}
	return courses, nil
}
