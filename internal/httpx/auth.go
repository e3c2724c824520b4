package httpx

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey int

const userIDKey ctxKey = iota

// SessionResolver is satisfied by identity.Sessions.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// RequireAuth resolves the bearer token to a user id and stores it in the
// request context.
func RequireAuth(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || token == r.Header.Get("Authorization") {
				writeErr(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			userID, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				writeErr(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}

// UserID returns the authenticated user id, empty if the request skipped
// the auth middleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
