package http

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/atinyakov/HeroKeeper/internal/blob"
	"github.com/atinyakov/HeroKeeper/internal/middleware"
	"github.com/atinyakov/HeroKeeper/internal/models"
	"github.com/atinyakov/HeroKeeper/internal/service"
)

// HeroService defines the hero operations required by HeroHandler.
type HeroService interface {
	List(ctx context.Context, userID models.ID) ([]models.Hero, error)
	Create(ctx context.Context, userID models.ID, in models.HeroInput) (*models.Hero, error)
	Update(ctx context.Context, userID models.ID, hero *models.Hero, patch models.HeroPatch) (*models.Hero, error)
	Delete(ctx context.Context, userID models.ID, hero *models.Hero) error
	UploadBackstory(ctx context.Context, userID models.ID, hero *models.Hero, r io.Reader) (*models.Hero, error)
	OpenBackstory(ctx context.Context, hero *models.Hero) (blob.Info, io.ReadCloser, error)
	RemoveBackstory(ctx context.Context, userID models.ID, hero *models.Hero) (*models.Hero, error)
}

// HeroHandler serves /api/heroes and the per-hero routes. Routes under
// /api/heroes/{id} expect middleware.RequireHero to have run.
type HeroHandler struct {
	HeroService HeroService
	Log         *zap.Logger
}

// userID returns the principal stored by middleware.RequireSession.
func userID(r *http.Request) models.ID {
	id, _ := middleware.UserIDFromContext(r.Context())
	return id
}

// List handles GET /api/heroes.
func (h *HeroHandler) List(w http.ResponseWriter, r *http.Request) {
	heroes, err := h.HeroService.List(r.Context(), userID(r))
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, heroes)
}

// Create handles POST /api/heroes.
func (h *HeroHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.HeroInput
	if err := decodeJSON(w, r, MaxJSONBody, &in); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	hero, err := h.HeroService.Create(r.Context(), userID(r), in)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, hero)
}

// Get handles GET /api/heroes/{id}.
func (h *HeroHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.HeroFromContext(r.Context()))
}

// Update handles PUT /api/heroes/{id}.
func (h *HeroHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.HeroPatch
	if err := decodeJSON(w, r, MaxJSONBody, &patch); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	hero, err := h.HeroService.Update(r.Context(), userID(r), middleware.HeroFromContext(r.Context()), patch)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hero)
}

// Delete handles DELETE /api/heroes/{id}.
func (h *HeroHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.HeroService.Delete(r.Context(), userID(r), middleware.HeroFromContext(r.Context())); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PutBackstory handles PUT /api/heroes/{id}/backstory-pdf.
func (h *HeroHandler) PutBackstory(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, service.MaxBackstoryPDFSize)
	hero, err := h.HeroService.UploadBackstory(r.Context(), userID(r), middleware.HeroFromContext(r.Context()), body)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hero)
}

// GetBackstory handles GET /api/heroes/{id}/backstory-pdf.
func (h *HeroHandler) GetBackstory(w http.ResponseWriter, r *http.Request) {
	hero := middleware.HeroFromContext(r.Context())
	info, rc, err := h.HeroService.OpenBackstory(r.Context(), hero)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `inline; filename="backstory.pdf"`)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.Log.Warn("backstory stream interrupted", zap.Int64("hero_id", int64(hero.ID)), zap.Error(err))
	}
}

// DeleteBackstory handles DELETE /api/heroes/{id}/backstory-pdf.
func (h *HeroHandler) DeleteBackstory(w http.ResponseWriter, r *http.Request) {
	if _, err := h.HeroService.RemoveBackstory(r.Context(), userID(r), middleware.HeroFromContext(r.Context())); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
