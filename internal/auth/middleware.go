package auth

import (
	"context"
	"net/http"

	"github.com/BradenHooton/adminauth/internal/models"
	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// SessionContextKey is the key for storing the admin session in context
	SessionContextKey contextKey = "admin_session"
)

// SessionRequirer is the enforcement primitive protected routes consume
type SessionRequirer interface {
	RequireSession(w http.ResponseWriter, r *http.Request) (*models.Session, error)
}

// RequireSession rejects requests without a valid admin session with
// 401 {"error":"Unauthorized"} and injects the session into the context
func RequireSession(sessions SessionRequirer) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := sessions.RequireSession(w, r)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionFromContext extracts the admin session from request context
func GetSessionFromContext(r *http.Request) *models.Session {
	session, ok := r.Context().Value(SessionContextKey).(*models.Session)
	if !ok {
		return nil
	}
	return session
}
