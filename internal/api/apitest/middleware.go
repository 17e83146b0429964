package apitest

import (
	"context"
	"net/http"
	"strings"

	"github.com/example/coffee-storefront/internal/auth"
)

type contextKey string

const userContextKey contextKey = "user"

// extractToken extracts the JWT from the Authorization header or the access_token cookie
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// requireAuth validates JWT tokens and adds user claims to context
func requireAuth(issuer *auth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				respondError(w, "Please log in to continue", http.StatusUnauthorized)
				return
			}

			claims, err := issuer.ValidateAccessToken(tokenString)
			if err != nil {
				respondError(w, "Session expired, please log in again", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireRole checks if the user has one of the required roles
func requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(userContextKey).(*auth.Claims)
			if !ok {
				respondError(w, "Please log in to continue", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondError(w, "Forbidden", http.StatusForbidden)
		})
	}
}

func userID(r *http.Request) string {
	claims, ok := r.Context().Value(userContextKey).(*auth.Claims)
	if !ok {
		return ""
	}
	return claims.UserID
}
