package dto

import (
	"time"

	"github.com/learnhub/learnhub/internal/model"
)

// RegisterRequest is the body of POST /api/v1/auth/register.
type RegisterRequest struct {
	Username    string   `json:"username" validate:"required,min=3,max=32,username"`
	Email       string   `json:"email" validate:"required,email,max=254"`
	Password    string   `json:"password" validate:"required,min=8,max=128"`
	DisplayName string   `json:"display_name,omitempty" validate:"max=100"`
	Interests   []string `json:"interests,omitempty" validate:"max=20,dive,required,max=50"`
}

// LoginRequest is the body of POST /api/v1/auth/login. Identifier is a
// username or an email address.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Password   string `json:"password" validate:"required,max=128"`
}

// UpdateInterestsRequest is the body of PUT /api/v1/me/interests.
type UpdateInterestsRequest struct {
	Interests []string `json:"interests" validate:"max=20,dive,required,max=50"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name,omitempty"`
	Interests   []string   `json:"interests"`
	Role        model.Role `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// ProfileResponse is returned by GET /api/v1/me.
type ProfileResponse struct {
	User        UserResponse         `json:"user"`
	Enrollments []EnrollmentResponse `json:"enrollments"`
}

// ToUserResponse converts a User model to its DTO.
func ToUserResponse(u *model.User) UserResponse {
	interests := u.Interests
	if interests == nil {
		interests = []string{}
	}
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Interests:   interests,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
	}
}

// ToAuthResponse builds the register/login response.
func ToAuthResponse(u *model.User, token string, expiresAt time.Time) AuthResponse {
	return AuthResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      ToUserResponse(u),
	}
}
