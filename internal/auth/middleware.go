package auth

import (
	"context"
	"net/http"
	"strings"

	svcErr "github.com/emberdating/ember-backend/internal/errors"
)

type contextKey string

const userKey contextKey = "user_id"

// Middleware resolves the caller's identity from a bearer token and
// binds it into the request context. The token is read from the
// Authorization header, with a query-param fallback for WebSocket
// connects (browsers cannot set headers on the upgrade request).
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ""

		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			tokenString = r.URL.Query().Get("token")
		}

		if tokenString == "" {
			svcErr.Write(w, svcErr.Unauthorized("missing authentication token"))
			return
		}

		userID, err := m.VerifyToken(tokenString)
		if err != nil {
			svcErr.Write(w, svcErr.Unauthorized("invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), userKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext returns the verified user id bound by Middleware.
func FromContext(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(userKey).(uint64)
	return id, ok
}
