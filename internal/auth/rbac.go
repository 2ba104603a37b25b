package auth

import (
	"net/http"

	"github.com/vkoval/docuchat/internal/models"
	"github.com/vkoval/docuchat/internal/project"
)

// RequireRole gates a route behind a user role. Admins pass every check.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := project.UserFromContext(r.Context())
			if user == nil {
				writeError(w, http.StatusForbidden, "no user in context")
				return
			}

			if user.Role != role && user.Role != models.RoleAdmin {
				writeError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
