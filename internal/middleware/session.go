// Package middleware provides HTTP middlewares for authentication,
// ownership checks, logging and metrics.
package middleware

import (
	"context"
	"net/http"

	"github.com/atinyakov/HeroKeeper/internal/auth"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

type ctxKey string

const (
	userKey ctxKey = "user"
	heroKey ctxKey = "hero"
)

// ErrorWriter renders err as an HTTP response. Middlewares hand every
// failure to it so the status mapping lives in one place.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// SessionResolver turns a cookie token into a live session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.AuthSession, error)
}

// RequireSession rejects requests without a valid session cookie and stores
// the session's user id in the request context.
func RequireSession(sessions SessionResolver, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Resolve(r.Context(), auth.TokenFromRequest(r))
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), sess.UserID)))
		})
	}
}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, id models.ID) context.Context {
	return context.WithValue(ctx, userKey, id)
}

// UserIDFromContext extracts the authenticated user id. ok is false outside
// RequireSession.
func UserIDFromContext(ctx context.Context) (models.ID, bool) {
	id, ok := ctx.Value(userKey).(models.ID)
	return id, ok && id != 0
}
