package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

// Common errors for course repository operations.
var (
	ErrCourseNotFound = errors.New("course not found")
	ErrSlugExists     = errors.New("slug already exists")
)

// Sort orders supported by ListCourses.
const (
	SortNewest  = "newest"
	SortPopular = "popular"
)

// CourseFilter defines filters for listing courses.
type CourseFilter struct {
	Category string
	Level    model.Level
	Tag      string
	Query    string
	Sort     string
}

// PaginationCursor represents decoded cursor for pagination.
// Count is set for popularity ordering, CreatedAt for newest-first.
type PaginationCursor struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	Count     int64     `json:"count,omitempty"`
}

const courseColumns = `id, slug, title, description, category, tags, level, instructor,
	duration_minutes, thumbnail_url, rating, enrollment_count, published, created_at, updated_at`

// CreateCourse inserts a new course into the database.
func (r *Repository) CreateCourse(ctx context.Context, course *model.Course) error {
	_, err := r.pool.Exec(ctx, insertCourseQuery, courseArgs(course)...)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrSlugExists
		}
		return fmt.Errorf("failed to create course: %w", err)
	}

	return nil
}

const insertCourseQuery = `
	INSERT INTO courses (id, slug, title, description, category, tags, level, instructor,
		duration_minutes, thumbnail_url, rating, enrollment_count, published, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
`

func courseArgs(c *model.Course) []any {
	return []any{
		c.ID,
		c.Slug,
		c.Title,
		c.Description,
		c.Category,
		pq.Array(c.Tags),
		c.Level,
		c.Instructor,
		c.DurationMinutes,
		c.ThumbnailURL,
		c.Rating,
		c.EnrollmentCount,
		c.Published,
		c.CreatedAt,
		c.UpdatedAt,
	}
}

// SeedCourses inserts courses, skipping any whose slug already exists.
// Returns the number of rows actually inserted.
func (r *Repository) SeedCourses(ctx context.Context, courses []*model.Course) (int, error) {
	if len(courses) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	query := insertCourseQuery + ` ON CONFLICT (slug) DO NOTHING`
	for _, c := range courses {
		batch.Queue(query, courseArgs(c)...)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for i := range courses {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("seed course %d: %w", i, err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// GetCourse retrieves a published course by ID or slug.
func (r *Repository) GetCourse(ctx context.Context, idOrSlug string) (*model.Course, error) {
	query := `
		SELECT ` + courseColumns + `
		FROM courses
		WHERE (id = $1 OR slug = $1) AND published
		LIMIT 1
	`

	course, err := scanCourse(r.pool.QueryRow(ctx, query, idOrSlug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	return course, nil
}

// GetCoursesByIDs returns the published courses among ids, in the order given.
func (r *Repository) GetCoursesByIDs(ctx context.Context, ids []string) ([]*model.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = ANY($1) AND published`

	courses, err := r.queryCourses(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get courses by IDs: %w", err)
	}

	byID := lo.KeyBy(courses, func(c *model.Course) string { return c.ID })
	ordered := make([]*model.Course, 0, len(courses))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}

	return ordered, nil
}

// ListCourses retrieves a paginated list of published courses.
func (r *Repository) ListCourses(ctx context.Context, filter CourseFilter, cursor string, limit int) ([]*model.Course, string, error) {
	// Decode cursor if provided
	var cursorData *PaginationCursor
	if cursor != "" {
		var err error
		cursorData, err = decodeCursor(cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
	}

	popular := filter.Sort == SortPopular

	query := `SELECT ` + courseColumns + ` FROM courses WHERE published`
	args := []any{}
	argIndex := 1

	if filter.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, strings.ToLower(filter.Category))
		argIndex++
	}

	if filter.Level != "" {
		query += fmt.Sprintf(" AND level = $%d", argIndex)
		args = append(args, filter.Level)
		argIndex++
	}

	if filter.Tag != "" {
		query += fmt.Sprintf(" AND $%d = ANY(tags)", argIndex)
		args = append(args, strings.ToLower(filter.Tag))
		argIndex++
	}

	if filter.Query != "" {
		query += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+escapeLike(filter.Query)+"%")
		argIndex++
	}

	if cursorData != nil {
		if popular {
			query += fmt.Sprintf(" AND (enrollment_count, id) < ($%d, $%d)", argIndex, argIndex+1)
			args = append(args, cursorData.Count, cursorData.ID)
		} else {
			query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIndex, argIndex+1)
			args = append(args, cursorData.CreatedAt, cursorData.ID)
		}
		argIndex += 2
	}

	if popular {
		query += " ORDER BY enrollment_count DESC, id DESC"
	} else {
		query += " ORDER BY created_at DESC, id DESC"
	}
	query += fmt.Sprintf(" LIMIT $%d", argIndex)
	args = append(args, limit+1) // Fetch one extra to determine hasMore

	courses, err := r.queryCourses(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list courses: %w", err)
	}

	// Determine if there are more results
	var nextCursor string
	if len(courses) > limit {
		courses = courses[:limit] // Remove extra row
		last := courses[len(courses)-1]
		next := &PaginationCursor{ID: last.ID}
		if popular {
			next.Count = last.EnrollmentCount
		} else {
			next.CreatedAt = last.CreatedAt
		}
		nextCursor = encodeCursor(next)
	}

	return courses, nextCursor, nil
}

// ListCategories returns distinct categories of published courses with counts.
func (r *Repository) ListCategories(ctx context.Context) ([]model.Category, error) {
	query := `
		SELECT category, COUNT(*)
		FROM courses
		WHERE published
		GROUP BY category
		ORDER BY category
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.Name, &c.CourseCount); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// TopCourseIDs returns the IDs of the most enrolled published courses.
func (r *Repository) TopCourseIDs(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT id
		FROM courses
		WHERE published
		ORDER BY enrollment_count DESC, rating DESC, id
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top courses: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan course id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *Repository) queryCourses(ctx context.Context, query string, args ...any) ([]*model.Course, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := make([]*model.Course, 0)
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, course)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating courses: %w", err)
	}

	return courses, nil
}

// scanCourse scans a single row into a Course model.
func scanCourse(row pgx.Row) (*model.Course, error) {
	var c model.Course
	var tags []string
	err := row.Scan(
		&c.ID,
		&c.Slug,
		&c.Title,
		&c.Description,
		&c.Category,
		pq.Array(&tags),
		&c.Level,
		&c.Instructor,
		&c.DurationMinutes,
		&c.ThumbnailURL,
		&c.Rating,
		&c.EnrollmentCount,
		&c.Published,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	c.Tags = nonNil(tags)
	return &c, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// encodeCursor encodes pagination cursor to base64.
func encodeCursor(cursor *PaginationCursor) string {
	data, _ := json.Marshal(cursor)
	return base64.URLEncoding.EncodeToString(data)
}

// decodeCursor decodes base64 pagination cursor.
func decodeCursor(s string) (*PaginationCursor, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}

	var cursor PaginationCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, err
	}

	if cursor.ID == "" {
		return nil, ErrInvalidCursor
	}

	return &cursor, nil
}
