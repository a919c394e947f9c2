package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/avern/mediavault/internal/server/auth"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

// authMiddleware validates the bearer token on every request and stores
// the authenticated user id in the request context. Requests without a
// valid token never reach a handler.
func authMiddleware(secretKey []byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		userID, err := auth.GetUserIDFromToken(token, secretKey)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userIDFromContext returns the authenticated user id placed there by
// authMiddleware. The empty string means the middleware did not run.
func userIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDContextKey).(string)
	return userID
}
