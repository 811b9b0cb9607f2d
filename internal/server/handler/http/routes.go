package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/HeroKeeper/internal/middleware"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

// Guard resolves entities for their owner. It is satisfied by
// *service.Guard.
type Guard interface {
	HeroForUser(ctx context.Context, userID, heroID models.ID) (*models.Hero, error)
	NpcForUser(ctx context.Context, userID, id models.ID) (*models.Npc, *models.Hero, error)
	SessionLogForUser(ctx context.Context, userID, id models.ID) (*models.SessionLog, *models.Hero, error)
	QuestForUser(ctx context.Context, userID, id models.ID) (*models.Quest, *models.Hero, error)
}

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Auth       *AuthHandler
	Heroes     *HeroHandler
	Npcs       *NpcHandler
	Sessions   *SessionLogHandler
	Quests     *QuestHandler
	Activities *ActivityHandler
	Transfer   *TransferHandler
	Systems    *SystemsHandler
	Health     *HealthHandler
}

// NewRouter constructs the HeroKeeper HTTP API.
//
// Middleware chain (applied in order):
//  1. RequestID and Recoverer
//  2. metrics.Middleware: request counters and latency
//  3. WithRequestLogging(logger): one log line per request
//  4. RequireSession: everything under /api except register, login and
//     systems
//  5. RequireHero / RequireChild: ownership of the addressed entity
//
// JSON routes additionally reject bodies that are not application/json.
func NewRouter(
	h Handlers,
	sessions middleware.SessionResolver,
	guard Guard,
	metrics *middleware.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()
	onError := errorWriter(logger)
	jsonOnly := chiMiddleware.AllowContentType("application/json")

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	if metrics != nil {
		r.Use(metrics.Middleware)
	}
	r.Use(middleware.WithRequestLogging(logger))

	r.Get("/healthz", h.Health.Check)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.With(jsonOnly).Post("/register", h.Auth.Register)
		r.With(jsonOnly).Post("/login", h.Auth.Login)
		r.Get("/systems", h.Systems.List)

		// Protected group: requires a valid session cookie
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(sessions, onError))

			r.Post("/logout", h.Auth.Logout)
			r.Get("/user", h.Auth.User)

			r.Get("/export", h.Transfer.ExportAll)
			r.With(jsonOnly).Post("/import/hero", h.Transfer.ImportHero)
			r.With(jsonOnly).Post("/import/all", h.Transfer.ImportAll)

			r.Route("/heroes", func(r chi.Router) {
				r.Get("/", h.Heroes.List)
				r.With(jsonOnly).Post("/", h.Heroes.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Use(middleware.RequireHero(guard.HeroForUser, onError))

					r.Get("/", h.Heroes.Get)
					r.With(jsonOnly).Put("/", h.Heroes.Update)
					r.Delete("/", h.Heroes.Delete)

					r.Get("/npcs", h.Npcs.List)
					r.With(jsonOnly).Post("/npcs", h.Npcs.Create)

					r.Get("/sessions", h.Sessions.List)
					r.Get("/sessions/latest", h.Sessions.Latest)
					r.With(jsonOnly).Post("/sessions", h.Sessions.Create)

					r.Get("/quests", h.Quests.List)
					r.Get("/quests/active", h.Quests.Active)
					r.With(jsonOnly).Post("/quests", h.Quests.Create)

					r.Get("/activities", h.Activities.List)
					r.Get("/export", h.Transfer.ExportHero)

					r.With(chiMiddleware.AllowContentType("application/pdf")).Put("/backstory-pdf", h.Heroes.PutBackstory)
					r.Get("/backstory-pdf", h.Heroes.GetBackstory)
					r.Delete("/backstory-pdf", h.Heroes.DeleteBackstory)
				})
			})

			r.Route("/npcs/{id}", func(r chi.Router) {
				r.Use(middleware.RequireChild[models.Npc](guard.NpcForUser, onError))
				r.Get("/", h.Npcs.Get)
				r.With(jsonOnly).Put("/", h.Npcs.Update)
				r.Delete("/", h.Npcs.Delete)
			})
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Use(middleware.RequireChild[models.SessionLog](guard.SessionLogForUser, onError))
				r.Get("/", h.Sessions.Get)
				r.With(jsonOnly).Put("/", h.Sessions.Update)
				r.Delete("/", h.Sessions.Delete)
			})
			r.Route("/quests/{id}", func(r chi.Router) {
				r.Use(middleware.RequireChild[models.Quest](guard.QuestForUser, onError))
				r.Get("/", h.Quests.Get)
				r.With(jsonOnly).Put("/", h.Quests.Update)
				r.Delete("/", h.Quests.Delete)
			})
		})
	})

	return r
}
