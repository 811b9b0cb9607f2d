package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

// childKey scopes a context value to the child entity type T.
type childKey[T any] struct{}

// HeroLoader resolves a hero for its owner.
type HeroLoader func(ctx context.Context, userID, heroID models.ID) (*models.Hero, error)

// ChildLoader resolves a child entity and its parent hero for the owner.
type ChildLoader[T any] func(ctx context.Context, userID, id models.ID) (*T, *models.Hero, error)

// RequireHero loads the hero named by the {id} URL parameter and rejects
// the request unless the session user owns it. Must run after RequireSession.
func RequireHero(load HeroLoader, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				onError(w, r, apperr.ErrUnauthenticated)
				return
			}
			id, err := models.ParseID(chi.URLParam(r, "id"))
			if err != nil {
				onError(w, r, apperr.Invalid("id", "must be a positive integer"))
				return
			}
			hero, err := load(r.Context(), userID, id)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), heroKey, hero)))
		})
	}
}

// RequireChild is RequireHero for NPCs, session logs and quests: the owning
// hero is found through the child's heroId. Both are stored in the context.
func RequireChild[T any](load ChildLoader[T], onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				onError(w, r, apperr.ErrUnauthenticated)
				return
			}
			id, err := models.ParseID(chi.URLParam(r, "id"))
			if err != nil {
				onError(w, r, apperr.Invalid("id", "must be a positive integer"))
				return
			}
			child, hero, err := load(r.Context(), userID, id)
			if err != nil {
				onError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), heroKey, hero)
			ctx = context.WithValue(ctx, childKey[T]{}, child)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// HeroFromContext returns the hero loaded by RequireHero or RequireChild.
func HeroFromContext(ctx context.Context) *models.Hero {
	h, _ := ctx.Value(heroKey).(*models.Hero)
	return h
}

// ChildFromContext returns the entity loaded by RequireChild[T].
func ChildFromContext[T any](ctx context.Context) *T {
	c, _ := ctx.Value(childKey[T]{}).(*T)
	return c
}
