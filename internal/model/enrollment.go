package model

import "time"

// EnrollmentStatus represents the state of a learner's enrollment.
type EnrollmentStatus string

const (
	EnrollmentStatusEnrolled  EnrollmentStatus = "enrolled"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
)

// IsValid checks if the status is valid.
func (s EnrollmentStatus) IsValid() bool {
	return s == EnrollmentStatusEnrolled || s == EnrollmentStatusCompleted
}

// Enrollment links a user to a course.
type Enrollment struct {
	UserID      string           `json:"user_id"`
	CourseID    string           `json:"course_id"`
	Status      EnrollmentStatus `json:"status"`
	Progress    int              `json:"progress"`
	EnrolledAt  time.Time        `json:"enrolled_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`

	// Populated on reads that join courses.
	Course *CourseSummary `json:"course,omitempty"`
}

// IsCompleted returns true if the enrollment is completed.
func (e *Enrollment) IsCompleted() bool {
	return e.Status == EnrollmentStatusCompleted
}

// EventType identifies an enrollment activity event.
type EventType string

const (
	EventEnrolled  EventType = "enrolled"
	EventCompleted EventType = "completed"
)

// IsValid checks if the event type is known.
func (t EventType) IsValid() bool {
	return t == EventEnrolled || t == EventCompleted
}

// EnrollmentEvent represents a single enroll or complete action.
type EnrollmentEvent struct {
	ID         string    `json:"id"`       // ULID (time-sortable)
	EventID    string    `json:"event_id"` // Idempotency key (Redis stream ID)
	Type       EventType `json:"type"`
	UserID     string    `json:"user_id"`
	CourseID   string    `json:"course_id"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// CourseDailyStats holds pre-aggregated activity for one course on one UTC day.
type CourseDailyStats struct {
	CourseID    string    `json:"course_id"`
	Date        time.Time `json:"date"`
	Enrollments int64     `json:"enrollments"`
	Completions int64     `json:"completions"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CourseStatsResponse is the API shape for course activity stats.
type CourseStatsResponse struct {
	CourseID string `json:"course_id"`
	Period   struct {
		From string `json:"from"` // ISO date
		To   string `json:"to"`   // ISO date
	} `json:"period"`
	TotalEnrollments int64           `json:"total_enrollments"`
	TotalCompletions int64           `json:"total_completions"`
	Daily            []DailyActivity `json:"daily"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

// DailyActivity represents enrollments and completions for a single day.
type DailyActivity struct {
	Date        string `json:"date"` // ISO date
	Enrollments int64  `json:"enrollments"`
	Completions int64  `json:"completions"`
}
