package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKeyType string

const (
	userIDKey    contextKeyType = "user_id"
	sessionIDKey contextKeyType = "session_id"
	adminKey     contextKeyType = "is_admin"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "virasat_session"

// SessionClaims is what the session resolver hands back for an authenticated
// request.
type SessionClaims struct {
	UserID    string
	SessionID string
	IsAdmin   bool
}

// SessionResolver validates a session token and returns the claims. Resolution
// is expected to hit the session store, so a revoked session fails even when
// the token signature is still valid.
type SessionResolver func(ctx context.Context, token string) (*SessionClaims, error)

// SessionAuth reads the session cookie, resolves it and injects the user,
// session and admin flag into the request context. Requests without a valid
// session get 401.
func SessionAuth(resolve SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				writeAuthError(w, "authentication required")
				return
			}

			claims, err := resolve(r.Context(), cookie.Value)
			if err != nil {
				writeAuthError(w, "invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			ctx = context.WithValue(ctx, sessionIDKey, claims.SessionID)
			ctx = context.WithValue(ctx, adminKey, claims.IsAdmin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose session does not belong to an admin
// user. Must be mounted after SessionAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdminFromContext(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"code":    "FORBIDDEN",
				"message": "insufficient permissions",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserIDFromContext extracts the authenticated user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// SessionIDFromContext extracts the current session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// IsAdminFromContext reports whether the authenticated user is an admin.
func IsAdminFromContext(ctx context.Context) bool {
	if admin, ok := ctx.Value(adminKey).(bool); ok {
		return admin
	}
	return false
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    "UNAUTHORIZED",
		"message": message,
	})
}
