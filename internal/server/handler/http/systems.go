package http

import (
	"net/http"

	"github.com/atinyakov/HeroKeeper/internal/gamesystem"
)

// SystemCatalog lists the known game systems.
type SystemCatalog interface {
	Systems() []gamesystem.System
}

// SystemsHandler serves GET /api/systems.
type SystemsHandler struct {
	Catalog SystemCatalog
}

// List returns every game system with its attributes in display order.
func (h *SystemsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Catalog.Systems())
}
