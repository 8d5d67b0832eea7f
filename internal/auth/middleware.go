package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// WithUserID returns ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id set by Middleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(userIDKey).(string)
	return uid, ok && uid != ""
}

// DenyFunc writes the rejection for an unauthenticated request.
type DenyFunc func(w http.ResponseWriter, r *http.Request, status int, message string)

// Middleware rejects requests without a valid session cookie: 401 when the
// cookie is absent, 403 when the token does not verify.
func Middleware(tokens *Tokens, deny DenyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, err := tokens.Verify(TokenFromRequest(r))
			switch {
			case errors.Is(err, ErrTokenMissing):
				deny(w, r, http.StatusUnauthorized, "Token is required")
				return
			case err != nil:
				slog.DebugContext(r.Context(), "Rejected session token", "error", err)
				deny(w, r, http.StatusForbidden, "Token is invalid")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
		})
	}
}
