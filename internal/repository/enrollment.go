package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/samber/lo"
)

// Common errors for enrollment repository operations.
var (
	ErrAlreadyEnrolled    = errors.New("already enrolled")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
)

const enrollmentColumns = `e.user_id, e.course_id, e.status, e.progress, e.enrolled_at, e.completed_at`

// Enroll inserts an enrollment and increments the course's enrollment count
// in one transaction. The course must exist and be published.
func (r *Repository) Enroll(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var published bool
		err := tx.QueryRow(ctx, `SELECT published FROM courses WHERE id = $1`, courseID).Scan(&published)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrCourseNotFound
			}
			return fmt.Errorf("failed to load course: %w", err)
		}
		if !published {
			return ErrCourseNotFound
		}

		insert := `
			INSERT INTO enrollments (user_id, course_id, status, progress, enrolled_at)
			VALUES ($1, $2, 'enrolled', 0, NOW())
			ON CONFLICT (user_id, course_id) DO NOTHING
			RETURNING user_id, course_id, status, progress, enrolled_at, completed_at
		`
		err = tx.QueryRow(ctx, insert, userID, courseID).Scan(
			&enrollment.UserID,
			&enrollment.CourseID,
			&enrollment.Status,
			&enrollment.Progress,
			&enrollment.EnrolledAt,
			&enrollment.CompletedAt,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAlreadyEnrolled
			}
			return fmt.Errorf("failed to insert enrollment: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE courses
			SET enrollment_count = enrollment_count + 1, updated_at = NOW()
			WHERE id = $1
		`, courseID)
		if err != nil {
			return fmt.Errorf("failed to increment enrollment count: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &enrollment, nil
}

// GetEnrollment retrieves a single enrollment.
func (r *Repository) GetEnrollment(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments e WHERE e.user_id = $1 AND e.course_id = $2`

	e, err := scanEnrollment(r.pool.QueryRow(ctx, query, userID, courseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}

	return e, nil
}

// CompleteEnrollment marks an enrollment completed. The returned bool is false
// when the enrollment was already completed.
func (r *Repository) CompleteEnrollment(ctx context.Context, userID, courseID string) (*model.Enrollment, bool, error) {
	query := `
		UPDATE enrollments e
		SET status = 'completed', progress = 100, completed_at = NOW()
		WHERE e.user_id = $1 AND e.course_id = $2 AND e.status <> 'completed'
		RETURNING ` + enrollmentColumns

	e, err := scanEnrollment(r.pool.QueryRow(ctx, query, userID, courseID))
	if err == nil {
		return e, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to complete enrollment: %w", err)
	}

	existing, err := r.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// UpdateProgress sets progress on an active enrollment.
// Completed enrollments are returned unchanged.
func (r *Repository) UpdateProgress(ctx context.Context, userID, courseID string, progress int) (*model.Enrollment, error) {
	query := `
		UPDATE enrollments e
		SET progress = $3
		WHERE e.user_id = $1 AND e.course_id = $2 AND e.status = 'enrolled'
		RETURNING ` + enrollmentColumns

	e, err := scanEnrollment(r.pool.QueryRow(ctx, query, userID, courseID, progress))
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}

	return r.GetEnrollment(ctx, userID, courseID)
}

// ListEnrollments returns a user's enrollments with course summaries, newest first.
// An empty status returns all enrollments.
func (r *Repository) ListEnrollments(ctx context.Context, userID string, status model.EnrollmentStatus) ([]*model.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `,
			c.id, c.slug, c.title, c.category, c.level, c.thumbnail_url, c.rating, c.enrollment_count
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		WHERE e.user_id = $1 AND ($2 = '' OR e.status = $2)
		ORDER BY e.enrolled_at DESC, e.course_id
	`

	rows, err := r.pool.Query(ctx, query, userID, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	enrollments := make([]*model.Enrollment, 0)
	for rows.Next() {
		var e model.Enrollment
		var c model.CourseSummary
		err := rows.Scan(
			&e.UserID,
			&e.CourseID,
			&e.Status,
			&e.Progress,
			&e.EnrolledAt,
			&e.CompletedAt,
			&c.ID,
			&c.Slug,
			&c.Title,
			&c.Category,
			&c.Level,
			&c.ThumbnailURL,
			&c.Rating,
			&c.EnrollmentCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		e.Course = &c
		enrollments = append(enrollments, &e)
	}

	return enrollments, rows.Err()
}

// EnrollmentHistory is the set of courses a user has touched, used to build
// the recommendation exclusion set and category stage.
type EnrollmentHistory struct {
	CourseIDs  []string
	Categories []string
}

// GetEnrollmentHistory returns the enrolled or completed course IDs of a user
// and the distinct categories of those courses.
func (r *Repository) GetEnrollmentHistory(ctx context.Context, userID string) (*EnrollmentHistory, error) {
	query := `
		SELECT e.course_id, c.category
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		WHERE e.user_id = $1
		ORDER BY e.enrolled_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollment history: %w", err)
	}
	defer rows.Close()

	history := &EnrollmentHistory{CourseIDs: []string{}, Categories: []string{}}
	for rows.Next() {
		var courseID, category string
		if err := rows.Scan(&courseID, &category); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment history: %w", err)
		}
		history.CourseIDs = append(history.CourseIDs, courseID)
		history.Categories = append(history.Categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enrollment history: %w", err)
	}

	history.Categories = lo.Uniq(history.Categories)
	return history, nil
}

// scanEnrollment scans a single row into an Enrollment model.
func scanEnrollment(row pgx.Row) (*model.Enrollment, error) {
	var e model.Enrollment
	err := row.Scan(
		&e.UserID,
		&e.CourseID,
		&e.Status,
		&e.Progress,
		&e.EnrolledAt,
		&e.CompletedAt,
	)
	return &e, err
}
