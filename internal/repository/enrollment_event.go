package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/learnhub/learnhub/internal/model"
)

// EnrollmentEventRepository provides database access for enrollment activity.
type EnrollmentEventRepository struct {
	repo *Repository
}

// NewEnrollmentEventRepository creates a new EnrollmentEventRepository.
func NewEnrollmentEventRepository(repo *Repository) *EnrollmentEventRepository {
	return &EnrollmentEventRepository{repo: repo}
}

// BulkInsert inserts multiple events with idempotency via ON CONFLICT DO NOTHING.
func (r *EnrollmentEventRepository) BulkInsert(ctx context.Context, events []*model.EnrollmentEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	query := `
		INSERT INTO enrollment_events (id, event_id, event_type, user_id, course_id, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`

	for _, event := range events {
		batch.Queue(query,
			event.ID,
			event.EventID,
			event.Type,
			event.UserID,
			event.CourseID,
			event.OccurredAt,
		)
	}

	results := r.repo.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(events); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert event %d: %w", i, err)
		}
	}

	return nil
}

// UpdateDailyStats recalculates course_daily_stats for every course/day touched by events.
// Counts are recomputed from enrollment_events so replays do not double count.
func (r *EnrollmentEventRepository) UpdateDailyStats(ctx context.Context, events []*model.EnrollmentEvent) error {
	if len(events) == 0 {
		return nil
	}

	for _, key := range uniqueDailyKeys(events) {
		if err := r.upsertDailyStat(ctx, key); err != nil {
			return fmt.Errorf("upsert daily stat %s:%s: %w", key.courseID, key.date.Format("2006-01-02"), err)
		}
	}

	return nil
}

type dailyStatsKey struct {
	courseID string
	date     time.Time
}

func uniqueDailyKeys(events []*model.EnrollmentEvent) []dailyStatsKey {
	seen := make(map[string]bool)
	keys := make([]dailyStatsKey, 0, len(events))
	for _, event := range events {
		day := event.OccurredAt.UTC().Truncate(24 * time.Hour)
		id := event.CourseID + ":" + day.Format("2006-01-02")
		if seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, dailyStatsKey{courseID: event.CourseID, date: day})
	}
	return keys
}

func (r *EnrollmentEventRepository) upsertDailyStat(ctx context.Context, key dailyStatsKey) error {
	query := `
		INSERT INTO course_daily_stats (course_id, date, enrollments, completions, updated_at)
		SELECT $1, $2::date,
			COUNT(*) FILTER (WHERE event_type = 'enrolled'),
			COUNT(*) FILTER (WHERE event_type = 'completed'),
			NOW()
		FROM enrollment_events
		WHERE course_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ON CONFLICT (course_id, date) DO UPDATE SET
			enrollments = EXCLUDED.enrollments,
			completions = EXCLUDED.completions,
			updated_at = NOW()
	`

	_, err := r.repo.pool.Exec(ctx, query, key.courseID, key.date, key.date.Add(24*time.Hour))
	return err
}

// GetDailyStats retrieves daily stats for a course within a date range, oldest first.
func (r *EnrollmentEventRepository) GetDailyStats(ctx context.Context, courseID string, from, to time.Time) ([]*model.CourseDailyStats, error) {
	query := `
		SELECT course_id, date, enrollments, completions, updated_at
		FROM course_daily_stats
		WHERE course_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`

	rows, err := r.repo.pool.Query(ctx, query, courseID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []*model.CourseDailyStats
	for rows.Next() {
		var s model.CourseDailyStats
		if err := rows.Scan(&s.CourseID, &s.Date, &s.Enrollments, &s.Completions, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan daily stat: %w", err)
		}
		stats = append(stats, &s)
	}

	return stats, rows.Err()
}

// TrendingCourseIDs returns course IDs ranked by enrollments since the given day.
func (r *EnrollmentEventRepository) TrendingCourseIDs(ctx context.Context, since time.Time, limit int) ([]string, error) {
	query := `
		SELECT course_id
		FROM course_daily_stats
		WHERE date >= $1
		GROUP BY course_id
		HAVING SUM(enrollments) > 0
		ORDER BY SUM(enrollments) DESC, course_id
		LIMIT $2
	`

	rows, err := r.repo.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query trending courses: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan trending course: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
