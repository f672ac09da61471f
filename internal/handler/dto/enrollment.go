package dto

import (
	"time"

	"github.com/learnhub/learnhub/internal/model"
)

// ProgressRequest is the body of PUT /api/v1/courses/{id}/progress.
type ProgressRequest struct {
	Progress *int `json:"progress" validate:"required,gte=0,lte=100"`
}

// EnrollmentResponse represents an enrollment in API responses.
type EnrollmentResponse struct {
	CourseID    string                 `json:"course_id"`
	Status      model.EnrollmentStatus `json:"status"`
	Progress    int                    `json:"progress"`
	EnrolledAt  time.Time              `json:"enrolled_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Course      *model.CourseSummary   `json:"course,omitempty"`
}

// EnrollmentListResponse lists a user's enrollments.
type EnrollmentListResponse struct {
	Data []EnrollmentResponse `json:"data"`
}

// ToEnrollmentResponse converts an Enrollment model to its DTO.
func ToEnrollmentResponse(e *model.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		CourseID:    e.CourseID,
		Status:      e.Status,
		Progress:    e.Progress,
		EnrolledAt:  e.EnrolledAt,
		CompletedAt: e.CompletedAt,
		Course:      e.Course,
	}
}

// ToEnrollmentResponses converts a slice of enrollments, never returning nil.
func ToEnrollmentResponses(enrollments []*model.Enrollment) []EnrollmentResponse {
	out := make([]EnrollmentResponse, 0, len(enrollments))
	for _, e := range enrollments {
		out = append(out, ToEnrollmentResponse(e))
	}
	return out
}
