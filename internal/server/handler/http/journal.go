package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/middleware"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

// NpcService defines the NPC operations required by NpcHandler.
type NpcService interface {
	List(ctx context.Context, hero *models.Hero) ([]models.Npc, error)
	Create(ctx context.Context, userID models.ID, hero *models.Hero, in models.NpcInput) (*models.Npc, error)
	Update(ctx context.Context, userID models.ID, hero *models.Hero, id models.ID, patch models.NpcPatch) (*models.Npc, error)
	Delete(ctx context.Context, userID models.ID, hero *models.Hero, npc *models.Npc) error
}

// NpcHandler serves /api/heroes/{id}/npcs and /api/npcs/{id}.
type NpcHandler struct {
	NpcService NpcService
	Log        *zap.Logger
}

// List handles GET /api/heroes/{id}/npcs.
func (h *NpcHandler) List(w http.ResponseWriter, r *http.Request) {
	npcs, err := h.NpcService.List(r.Context(), middleware.HeroFromContext(r.Context()))
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, npcs)
}

// Create handles POST /api/heroes/{id}/npcs.
func (h *NpcHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.NpcInput
	if err := decodeJSON(w, r, MaxJSONBody, &in); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	npc, err := h.NpcService.Create(r.Context(), userID(r), middleware.HeroFromContext(r.Context()), in)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, npc)
}

// Get handles GET /api/npcs/{id}.
func (h *NpcHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.ChildFromContext[models.Npc](r.Context()))
}

// Update handles PUT /api/npcs/{id}.
func (h *NpcHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.NpcPatch
	if err := decodeJSON(w, r, MaxJSONBody, &patch); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	ctx := r.Context()
	npc := middleware.ChildFromContext[models.Npc](ctx)
	updated, err := h.NpcService.Update(ctx, userID(r), middleware.HeroFromContext(ctx), npc.ID, patch)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/npcs/{id}.
func (h *NpcHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.NpcService.Delete(ctx, userID(r), middleware.HeroFromContext(ctx), middleware.ChildFromContext[models.Npc](ctx)); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SessionLogService defines the session-log operations required by
// SessionLogHandler.
type SessionLogService interface {
	List(ctx context.Context, hero *models.Hero) ([]models.SessionLog, error)
	Latest(ctx context.Context, hero *models.Hero) (*models.SessionLog, error)
	Create(ctx context.Context, userID models.ID, hero *models.Hero, in models.SessionLogInput) (*models.SessionLog, error)
	Update(ctx context.Context, userID models.ID, hero *models.Hero, id models.ID, patch models.SessionLogPatch) (*models.SessionLog, error)
	Delete(ctx context.Context, userID models.ID, hero *models.Hero, log *models.SessionLog) error
}

// SessionLogHandler serves /api/heroes/{id}/sessions and /api/sessions/{id}.
type SessionLogHandler struct {
	SessionLogService SessionLogService
	Log               *zap.Logger
}

// List handles GET /api/heroes/{id}/sessions, newest first.
func (h *SessionLogHandler) List(w http.ResponseWriter, r *http.Request) {
	logs, err := h.SessionLogService.List(r.Context(), middleware.HeroFromContext(r.Context()))
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// Latest handles GET /api/heroes/{id}/sessions/latest. A hero without
// sessions yields null rather than 404.
func (h *SessionLogHandler) Latest(w http.ResponseWriter, r *http.Request) {
	latest, err := h.SessionLogService.Latest(r.Context(), middleware.HeroFromContext(r.Context()))
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

// Create handles POST /api/heroes/{id}/sessions.
func (h *SessionLogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.SessionLogInput
	if err := decodeJSON(w, r, MaxJSONBody, &in); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	created, err := h.SessionLogService.Create(r.Context(), userID(r), middleware.HeroFromContext(r.Context()), in)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Get handles GET /api/sessions/{id}.
func (h *SessionLogHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.ChildFromContext[models.SessionLog](r.Context()))
}

// Update handles PUT /api/sessions/{id}.
func (h *SessionLogHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.SessionLogPatch
	if err := decodeJSON(w, r, MaxJSONBody, &patch); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	ctx := r.Context()
	current := middleware.ChildFromContext[models.SessionLog](ctx)
	updated, err := h.SessionLogService.Update(ctx, userID(r), middleware.HeroFromContext(ctx), current.ID, patch)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/sessions/{id}.
func (h *SessionLogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.SessionLogService.Delete(ctx, userID(r), middleware.HeroFromContext(ctx), middleware.ChildFromContext[models.SessionLog](ctx)); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// QuestService defines the quest operations required by QuestHandler.
type QuestService interface {
	List(ctx context.Context, hero *models.Hero) ([]models.Quest, error)
	Active(ctx context.Context, hero *models.Hero) ([]models.Quest, error)
	Create(ctx context.Context, userID models.ID, hero *models.Hero, in models.QuestInput) (*models.Quest, error)
	Update(ctx context.Context, userID models.ID, hero *models.Hero, id models.ID, patch models.QuestPatch) (*models.Quest, error)
	Delete(ctx context.Context, userID models.ID, hero *models.Hero, quest *models.Quest) error
}

// QuestHandler serves /api/heroes/{id}/quests and /api/quests/{id}.
type QuestHandler struct {
	QuestService QuestService
	Log          *zap.Logger
}

// List handles GET /api/heroes/{id}/quests.
func (h *QuestHandler) List(w http.ResponseWriter, r *http.Request) {
	quests, err := h.QuestService.List(r.Context(), middleware.HeroFromContext(r.Context()))
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quests)
}

// Active handles GET /api/heroes/{id}/quests/active.
func (h *QuestHandler) Active(w http.ResponseWriter, r *http.Request) {
	quests, err := h.QuestService.Active(r.Context(), middleware.HeroFromContext(r.Context()))
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quests)
}

// Create handles POST /api/heroes/{id}/quests.
func (h *QuestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.QuestInput
	if err := decodeJSON(w, r, MaxJSONBody, &in); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	quest, err := h.QuestService.Create(r.Context(), userID(r), middleware.HeroFromContext(r.Context()), in)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quest)
}

// Get handles GET /api/quests/{id}.
func (h *QuestHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.ChildFromContext[models.Quest](r.Context()))
}

// Update handles PUT /api/quests/{id}.
func (h *QuestHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.QuestPatch
	if err := decodeJSON(w, r, MaxJSONBody, &patch); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	ctx := r.Context()
	quest := middleware.ChildFromContext[models.Quest](ctx)
	updated, err := h.QuestService.Update(ctx, userID(r), middleware.HeroFromContext(ctx), quest.ID, patch)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/quests/{id}.
func (h *QuestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.QuestService.Delete(ctx, userID(r), middleware.HeroFromContext(ctx), middleware.ChildFromContext[models.Quest](ctx)); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActivityLister returns a hero's audit trail, newest first.
type ActivityLister interface {
	List(ctx context.Context, heroID models.ID, limit int) ([]models.Activity, error)
}

// ActivityHandler serves GET /api/heroes/{id}/activities.
type ActivityHandler struct {
	Activities ActivityLister
	Log        *zap.Logger
}

// List handles GET /api/heroes/{id}/activities?limit=N.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(h.Log, w, r, apperr.Invalid("limit", "must be a positive integer"))
			return
		}
		limit = n
	}
	list, err := h.Activities.List(r.Context(), middleware.HeroFromContext(r.Context()).ID, limit)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
