package dto

import (
	"time"

	"github.com/learnhub/learnhub/internal/model"
)

// CreateCourseRequest is the body of POST /api/v1/admin/courses.
type CreateCourseRequest struct {
	Title           string   `json:"title" validate:"required,min=3,max=200"`
	Slug            string   `json:"slug,omitempty" validate:"max=80"`
	Description     string   `json:"description,omitempty" validate:"max=5000"`
	Category        string   `json:"category" validate:"required,max=50"`
	Tags            []string `json:"tags,omitempty" validate:"max=20,dive,required,max=50"`
	Level           string   `json:"level,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Instructor      string   `json:"instructor,omitempty" validate:"max=100"`
	DurationMinutes int      `json:"duration_minutes,omitempty" validate:"gte=0,lte=100000"`
	ThumbnailURL    string   `json:"thumbnail_url,omitempty" validate:"omitempty,url,max=2048"`
	Rating          float64  `json:"rating,omitempty" validate:"gte=0,lte=5"`
	Published       *bool    `json:"published,omitempty"`
}

// CourseResponse represents a course in API responses.
type CourseResponse struct {
	ID              string      `json:"id"`
	Slug            string      `json:"slug"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Category        string      `json:"category"`
	Tags            []string    `json:"tags"`
	Level           model.Level `json:"level"`
	Instructor      string      `json:"instructor"`
	DurationMinutes int         `json:"duration_minutes"`
	ThumbnailURL    string      `json:"thumbnail_url,omitempty"`
	Rating          float64     `json:"rating"`
	EnrollmentCount int64       `json:"enrollment_count"`
	Published       bool        `json:"published"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// CourseListResponse represents a page of courses.
type CourseListResponse struct {
	Data       []CourseResponse `json:"data"`
	Pagination *Pagination      `json:"pagination"`
}

// CategoryListResponse lists categories with their course counts.
type CategoryListResponse struct {
	Data []model.Category `json:"data"`
}

// TrendingResponse lists trending courses for a window.
type TrendingResponse struct {
	Days int              `json:"days"`
	Data []CourseResponse `json:"data"`
}

// ToCourseResponse converts a Course model to its DTO.
func ToCourseResponse(c *model.Course) CourseResponse {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return CourseResponse{
		ID:              c.ID,
		Slug:            c.Slug,
		Title:           c.Title,
		Description:     c.Description,
		Category:        c.Category,
		Tags:            tags,
		Level:           c.Level,
		Instructor:      c.Instructor,
		DurationMinutes: c.DurationMinutes,
		ThumbnailURL:    c.ThumbnailURL,
		Rating:          c.Rating,
		EnrollmentCount: c.EnrollmentCount,
		Published:       c.Published,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// ToCourseResponses converts a slice of courses, never returning nil.
func ToCourseResponses(courses []*model.Course) []CourseResponse {
	out := make([]CourseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, ToCourseResponse(c))
	}
	return out
}
