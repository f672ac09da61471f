// Package model defines domain entities for the application.
package model

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// MaxInterests is the upper bound on interests stored per user.
const MaxInterests = 20

// Role represents a user's authorization role.
type Role string

const (
	RoleLearner Role = "learner"
	RoleAdmin   Role = "admin"
)

// IsValid checks if the role is known.
func (r Role) IsValid() bool {
	return r == RoleLearner || r == RoleAdmin
}

// User represents a registered learner or administrator.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name,omitempty"`
	Interests    []string  `json:"interests"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeLabels lower-cases and trims labels (interests, tags, categories),
// drops empty values and keeps the first occurrence of each.
func NormalizeLabels(values []string) []string {
	cleaned := lo.FilterMap(values, func(v string, _ int) (string, bool) {
		v = strings.ToLower(strings.TrimSpace(v))
		return v, v != ""
	})
	return lo.Uniq(cleaned)
}
