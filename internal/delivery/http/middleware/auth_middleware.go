package middleware

import (
	"context"
	"errors"
	"net/http"

	"zone-coverage-backend/internal/domain"
	"zone-coverage-backend/pkg/logger"
	"zone-coverage-backend/pkg/utils"
)

func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := utils.ExtractClaims(r)
		if errors.Is(err, utils.ErrNoToken) {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized: no token provided")
			return
		}
		if err != nil {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized: invalid token")
			return
		}

		// Token claims are trusted as-is; admins are provisioned by dbtool.
		principal := &domain.Principal{
			ID:    claims.UserID,
			Email: claims.Email,
			Role:  claims.Role,
		}

		ctx := context.WithValue(r.Context(), domain.PrincipalContextKey, principal)
		l := logger.WithUserID(*logger.WithContext(ctx), principal.ID)
		ctx = logger.NewContext(ctx, &l)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
