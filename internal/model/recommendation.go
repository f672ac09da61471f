package model

// Reason names the stage that produced a recommendation.
type Reason string

const (
	ReasonInterest Reason = "interest"
	ReasonCategory Reason = "category"
	ReasonPopular  Reason = "popular"
)

// Recommendation is a course suggested to a user.
type Recommendation struct {
	Course CourseSummary `json:"course"`
	Reason Reason        `json:"reason"`
}
