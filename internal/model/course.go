package model

import (
	"regexp"
	"strings"
	"time"
)

// Level represents the difficulty of a course.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// IsValid checks if the level is valid.
func (l Level) IsValid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Course represents a catalog entry.
type Course struct {
	ID              string    `json:"id"`
	Slug            string    `json:"slug"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	Tags            []string  `json:"tags"`
	Level           Level     `json:"level"`
	Instructor      string    `json:"instructor"`
	DurationMinutes int       `json:"duration_minutes"`
	ThumbnailURL    string    `json:"thumbnail_url,omitempty"`
	Rating          float64   `json:"rating"`
	EnrollmentCount int64     `json:"enrollment_count"`
	Published       bool      `json:"published"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CourseSummary is the compact course shape embedded in enrollment and
// recommendation responses.
type CourseSummary struct {
	ID              string  `json:"id"`
	Slug            string  `json:"slug"`
	Title           string  `json:"title"`
	Category        string  `json:"category"`
	Level           Level   `json:"level"`
	ThumbnailURL    string  `json:"thumbnail_url,omitempty"`
	Rating          float64 `json:"rating"`
	EnrollmentCount int64   `json:"enrollment_count"`
}

// Summary returns the compact representation of the course.
func (c *Course) Summary() CourseSummary {
	return CourseSummary{
		ID:              c.ID,
		Slug:            c.Slug,
		Title:           c.Title,
		Category:        c.Category,
		Level:           c.Level,
		ThumbnailURL:    c.ThumbnailURL,
		Rating:          c.Rating,
		EnrollmentCount: c.EnrollmentCount,
	}
}

// MatchesAny reports whether the course category or one of its tags is in labels.
// Labels are expected to be normalized.
func (c *Course) MatchesAny(labels []string) bool {
	for _, l := range labels {
		if c.Category == l {
			return true
		}
		for _, t := range c.Tags {
			if t == l {
				return true
			}
		}
	}
	return false
}

// Category is a distinct course category with its published course count.
type Category struct {
	Name        string `json:"name"`
	CourseCount int64  `json:"course_count"`
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a title.
func Slugify(title string) string {
	s := slugInvalid.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if len(s) > 80 {
		s = strings.TrimRight(s[:80], "-")
	}
	return s
}
