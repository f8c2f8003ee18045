package middleware

import (
	"net/http"

	"zone-coverage-backend/internal/domain"
	"zone-coverage-backend/pkg/utils"
)

// AdminMiddleware ensures the authenticated principal has the admin role.
// MUST be used AFTER AuthMiddleware.
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := r.Context().Value(domain.PrincipalContextKey).(*domain.Principal)
		if !ok || principal == nil {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized: no principal in context")
			return
		}

		if !principal.IsAdmin() {
			utils.WriteError(w, http.StatusForbidden, "Forbidden: admins only")
			return
		}

		next.ServeHTTP(w, r)
	})
}
