package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/middleware"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

// TransferService defines the import/export operations required by
// TransferHandler.
type TransferService interface {
	ExportHero(ctx context.Context, hero *models.Hero) (*models.ExportedHero, error)
	ExportAll(ctx context.Context, userID models.ID) (*models.ExportedHeroSet, error)
	ImportHero(ctx context.Context, userID models.ID, doc models.ExportedHero, replace bool) (*models.Hero, error)
	ImportAll(ctx context.Context, userID models.ID, set models.ExportedHeroSet, replace bool) (models.ImportResult, error)
}

// TransferHandler serves the export and import endpoints.
type TransferHandler struct {
	TransferService TransferService
	Log             *zap.Logger
}

// importHeroRequest is an ExportedHero with an optional replace flag next
// to its top-level keys.
type importHeroRequest struct {
	models.ExportedHero
	ReplaceIfExists bool `json:"replaceIfExists"`
}

type importAllRequest struct {
	models.ExportedHeroSet
	ReplaceIfExists bool `json:"replaceIfExists"`
}

// ExportHero handles GET /api/heroes/{id}/export.
func (h *TransferHandler) ExportHero(w http.ResponseWriter, r *http.Request) {
	hero := middleware.HeroFromContext(r.Context())
	doc, err := h.TransferService.ExportHero(r.Context(), hero)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="hero-%d.json"`, hero.ID))
	writeJSON(w, http.StatusOK, doc)
}

// ExportAll handles GET /api/export.
func (h *TransferHandler) ExportAll(w http.ResponseWriter, r *http.Request) {
	set, err := h.TransferService.ExportAll(r.Context(), userID(r))
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="heroes.json"`)
	writeJSON(w, http.StatusOK, set)
}

// ImportHero handles POST /api/import/hero.
func (h *TransferHandler) ImportHero(w http.ResponseWriter, r *http.Request) {
	var req importHeroRequest
	if err := decodeJSON(w, r, MaxImportBody, &req); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	replace, err := replaceRequested(r, req.ReplaceIfExists)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	hero, err := h.TransferService.ImportHero(r.Context(), userID(r), req.ExportedHero, replace)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, hero)
}

// ImportAll handles POST /api/import/all. Per-hero failures are reported in
// the body; the status is 200 whenever the envelope itself was valid.
func (h *TransferHandler) ImportAll(w http.ResponseWriter, r *http.Request) {
	var req importAllRequest
	if err := decodeJSON(w, r, MaxImportBody, &req); err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	replace, err := replaceRequested(r, req.ReplaceIfExists)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	result, err := h.TransferService.ImportAll(r.Context(), userID(r), req.ExportedHeroSet, replace)
	if err != nil {
		writeError(h.Log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// replaceRequested merges the ?replace query flag with the body flag.
func replaceRequested(r *http.Request, fromBody bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("replace"))
	if raw == "" {
		return fromBody, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperr.Invalid("replace", "must be true or false")
	}
	return v || fromBody, nil
}
