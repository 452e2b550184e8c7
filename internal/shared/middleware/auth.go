package middleware

import (
	"context"
	"net/http"
	"strings"

	"spendsync/internal/shared/auth"
)

type ContextKey string

const (
	OwnerIDKey ContextKey = "owner_id"
	EmailKey   ContextKey = "email"
)

// Auth verifies the bearer token issued by the auth service and puts the
// owner id on the request context.
func Auth(jwt *auth.JWT) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := jwt.Validate(parts[1])
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), OwnerIDKey, claims.OwnerID)
			ctx = context.WithValue(ctx, EmailKey, claims.Email)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OwnerID returns the authenticated owner id placed by Auth.
func OwnerID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(OwnerIDKey).(int64)
	return id, ok
}
