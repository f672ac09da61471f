package dto

import "github.com/learnhub/learnhub/internal/model"

// RecommendationsResponse is returned by GET /api/v1/recommendations.
type RecommendationsResponse struct {
	Data   []model.Recommendation `json:"data"`
	Limit  int                    `json:"limit"`
	Cached bool                   `json:"cached"`
}
