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

// AccountService is implemented by *service.AuthService.
type AccountService interface {
	Register(ctx context.Context, input service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, identifier, password string) (*service.AuthResult, error)
	Logout(ctx context.Context, principal *auth.Principal) error
	Me(ctx context.Context, userID string) (*service.Profile, error)
	UpdateInterests(ctx context.Context, userID string, interests []string) (*model.User, error)
}

// EnrollmentLister is implemented by *service.EnrollmentService.
type EnrollmentLister interface {
	ListEnrollments(ctx context.Context, userID, status string) ([]*model.Enrollment, error)
}

// AuthHandler serves registration, login and the caller's profile.
type AuthHandler struct {
	svc         AccountService
	enrollments EnrollmentLister
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc AccountService, enrollments EnrollmentLister, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:         svc,
		enrollments: enrollments,
		logger:      logger.With("component", "auth_handler"),
	}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.svc.Register(r.Context(), service.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Interests:   req.Interests,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToAuthResponse(result.User, result.Token, result.ExpiresAt))
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.svc.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToAuthResponse(result.User, result.Token, result.ExpiresAt))
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal := auth.AuthFromContext(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	if err := h.svc.Logout(r.Context(), principal); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Me(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ProfileResponse{
		User:        dto.ToUserResponse(profile.User),
		Enrollments: dto.ToEnrollmentResponses(profile.Enrollments),
	})
}

// UpdateInterests handles PUT /api/v1/me/interests.
func (h *AuthHandler) UpdateInterests(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateInterestsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.svc.UpdateInterests(r.Context(), auth.UserIDFromContext(r.Context()), req.Interests)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// Enrollments handles GET /api/v1/me/enrollments?status=.
func (h *AuthHandler) Enrollments(w http.ResponseWriter, r *http.Request) {
	enrollments, err := h.enrollments.ListEnrollments(r.Context(),
		auth.UserIDFromContext(r.Context()), r.URL.Query().Get("status"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EnrollmentListResponse{Data: dto.ToEnrollmentResponses(enrollments)})
}

func (h *AuthHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username/email or password")
	case errors.Is(err, service.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "USERNAME_TAKEN", "username already taken")
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, "EMAIL_TAKEN", "email already registered")
	case errors.Is(err, service.ErrTooManyInterests):
		writeValidationError(w, map[string]string{"interests": "interests must contain at most 20 items"})
	case errors.Is(err, service.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "INVALID_STATUS", "status must be enrolled or completed")
	case errors.Is(err, service.ErrUserNotFound):
		// Token outlived its account.
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "account no longer exists")
	default:
		writeInternalError(w, r, h.logger, err)
	}
}
