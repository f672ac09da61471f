package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/metrics"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/repository"
)

// AccountStore is the persistence needed for accounts and profiles.
type AccountStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByLogin(ctx context.Context, identifier string) (*model.User, error)
	UpdateInterests(ctx context.Context, userID string, interests []string) error
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
	ListEnrollments(ctx context.Context, userID string, status model.EnrollmentStatus) ([]*model.Enrollment, error)
}

// SessionCache revokes tokens and drops per-user cached data.
type SessionCache interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	InvalidateRecommendations(ctx context.Context, userID string) error
}

// AuthService handles registration, login and profile operations.
type AuthService struct {
	store   AccountStore
	cache   SessionCache
	tokens  *auth.TokenManager
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(store AccountStore, c SessionCache, tokens *auth.TokenManager, logger *slog.Logger, recorder metrics.Recorder) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthService{
		store:   store,
		cache:   c,
		tokens:  tokens,
		logger:  componentLogger(logger, "service.auth"),
		metrics: recorder,
		now:     time.Now,
	}
}

// RegisterInput defines input for creating an account.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	Interests   []string
}

// AuthResult is a user together with a freshly issued access token.
type AuthResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// Profile is a user with their enrollments and course summaries.
type Profile struct {
	User        *model.User
	Enrollments []*model.Enrollment
}

// Register creates a learner account and signs the user in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	interests, err := normalizeInterests(input.Interests)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:           ulid.Make().String(),
		Username:     strings.TrimSpace(input.Username),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		Interests:    interests,
		Role:         model.RoleLearner,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, ErrUsernameTaken
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.IncUserRegistered()
	s.logger.Info("user registered", "user_id", user.ID)

	return s.issue(user)
}

// Login authenticates by username or email. Unknown accounts and wrong
// passwords return the same error.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	user, err := s.store.GetUserByLogin(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			auth.BurnVerify(password)
			s.metrics.IncLogin("failure")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash is unreadable", "user_id", user.ID, "error", err)
		s.metrics.IncLogin("failure")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		s.metrics.IncLogin("failure")
		return nil, ErrInvalidCredentials
	}

	if auth.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, password)
	}

	s.metrics.IncLogin("success")
	return s.issue(user)
}

// rehash upgrades a hash made with weaker parameters. Failures only cost the
// upgrade, never the login.
func (s *AuthService) rehash(ctx context.Context, userID, password string) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		s.logger.Warn("failed to rehash password", "user_id", userID, "error", err)
		return
	}
	if err := s.store.UpdatePasswordHash(ctx, userID, hash); err != nil {
		s.logger.Warn("failed to store rehashed password", "user_id", userID, "error", err)
		return
	}
	s.logger.Info("password hash upgraded", "user_id", userID)
}

// Logout revokes the caller's token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, principal *auth.Principal) error {
	if principal == nil || principal.TokenID == "" {
		return nil
	}
	ttl := principal.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.cache.RevokeToken(ctx, principal.TokenID, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Me returns the caller's profile with their enrollments.
func (s *AuthService) Me(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	enrollments, err := s.store.ListEnrollments(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	return &Profile{User: user, Enrollments: enrollments}, nil
}

// UpdateInterests replaces the user's interests and drops their cached
// recommendations.
func (s *AuthService) UpdateInterests(ctx context.Context, userID string, interests []string) (*model.User, error) {
	normalized, err := normalizeInterests(interests)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateInterests(ctx, userID, normalized); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := s.cache.InvalidateRecommendations(ctx, userID); err != nil {
		s.logger.Warn("failed to invalidate recommendations", "user_id", userID, "error", err)
	}

	return s.getUser(ctx, userID)
}

func (s *AuthService) getUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func normalizeInterests(interests []string) ([]string, error) {
	normalized := model.NormalizeLabels(interests)
	if len(normalized) > model.MaxInterests {
		return nil, ErrTooManyInterests
	}
	return normalized, nil
}
