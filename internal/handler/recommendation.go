package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/handler/dto"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/service"
)

// Recommender is implemented by *service.RecommendationService.
type Recommender interface {
	Recommend(ctx context.Context, userID string, limit int) (*service.RecommendationsOutput, error)
}

// RecommendationHandler serves personalised course recommendations.
type RecommendationHandler struct {
	svc    Recommender
	logger *slog.Logger
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(svc Recommender, logger *slog.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		svc:    svc,
		logger: logger.With("component", "recommendation_handler"),
	}
}

// List handles GET /api/v1/recommendations?limit=. Out-of-range limits are
// clamped by the service rather than rejected.
func (h *RecommendationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "limit must be an integer")
		return
	}

	out, err := h.svc.Recommend(r.Context(), auth.UserIDFromContext(r.Context()), limit)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "account no longer exists")
			return
		}
		writeInternalError(w, r, h.logger, err)
		return
	}

	items := out.Items
	if items == nil {
		items = []model.Recommendation{}
	}
	writeJSON(w, http.StatusOK, dto.RecommendationsResponse{
		Data:   items,
		Limit:  out.Limit,
		Cached: out.Cached,
	})
}
