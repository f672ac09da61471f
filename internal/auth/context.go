package auth

import (
	"context"
	"time"

	"github.com/learnhub/learnhub/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// authContextKey is the context key for storing Principal.
	authContextKey contextKey = "auth_principal"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    string
	Username  string
	Role      model.Role
	TokenID   string
	ExpiresAt time.Time
}

// IsAdmin returns true if the caller holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p.Role == model.RoleAdmin
}

// PrincipalFromClaims builds a Principal from validated token claims.
func PrincipalFromClaims(c *Claims) *Principal {
	p := &Principal{
		UserID:   c.Subject,
		Username: c.Username,
		Role:     c.Role,
		TokenID:  c.ID,
	}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}
	return p
}

// ContextWithAuth adds the Principal to the context.
func ContextWithAuth(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, authContextKey, p)
}

// AuthFromContext retrieves the Principal from the context.
// Returns nil if not present.
func AuthFromContext(ctx context.Context) *Principal {
	p, ok := ctx.Value(authContextKey).(*Principal)
	if !ok {
		return nil
	}
	return p
}

// UserIDFromContext is a convenience function to get user ID from context.
// Returns empty string if not authenticated.
func UserIDFromContext(ctx context.Context) string {
	p := AuthFromContext(ctx)
	if p == nil {
		return ""
	}
	return p.UserID
}
