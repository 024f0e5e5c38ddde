package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/lumenspa/booking/libs/auth"
)

type ctxKey int

const roleKey ctxKey = 0

// RoleFromContext returns the verified token role for the request, or ""
// when the caller is anonymous.
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}

// WithOptionalAuth attaches the token role to the request context when a
// valid bearer token is present, and leaves the request anonymous otherwise.
func WithOptionalAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				if claims, err := auth.Verify(secret, token, time.Now()); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), roleKey, claims.Role))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects requests without a valid bearer token carrying one of
// the allowed roles.
func RequireRole(secret []byte, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			claims, err := auth.Verify(secret, token, time.Now())
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			if !allowed[claims.Role] {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), roleKey, claims.Role))
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
