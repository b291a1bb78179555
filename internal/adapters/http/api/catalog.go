package api

import (
	"net/http"

	"github.com/okian/paceline/internal/domain/types"
)

// CatalogDependencies lists the supported events.
type CatalogDependencies interface {
	Events() []types.EventInfo
}

// CatalogHandler serves the event catalog.
type CatalogHandler struct {
	deps CatalogDependencies
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps CatalogDependencies) *CatalogHandler {
	return &CatalogHandler{deps: deps}
}

// HandleListEvents handles GET /events.
func (h *CatalogHandler) HandleListEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Events())
}
