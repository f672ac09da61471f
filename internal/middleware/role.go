package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/repository"
)

// RoleLookup reads a user's stored role.
type RoleLookup interface {
	GetUserRole(ctx context.Context, userID string) (model.Role, error)
}

// CurrentRole replaces the role carried by the token with the stored one, so
// a promotion or demotion applies before the token expires. A deleted user
// gets 401 and a failed lookup 503. Must be applied after Auth; a nil lookup
// keeps the token's role.
func CurrentRole(lookup RoleLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if lookup == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.AuthFromContext(r.Context())
			if principal == nil {
				next.ServeHTTP(w, r)
				return
			}

			role, err := lookup.GetUserRole(r.Context(), principal.UserID)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					writeAuthError(w)
					return
				}
				logger.Error("role lookup failed",
					slog.String("user_id", principal.UserID),
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "unable to verify permissions")
				return
			}

			if role != principal.Role {
				refreshed := *principal
				refreshed.Role = role
				r = r.WithContext(auth.ContextWithAuth(r.Context(), &refreshed))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole allows the request when the caller holds any of the roles.
// Must be applied after Auth.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.AuthFromContext(r.Context())
			if principal == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}
			if !slices.Contains(roles, principal.Role) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is RequireRole(model.RoleAdmin).
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(model.RoleAdmin)
}
