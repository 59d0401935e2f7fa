package handlers

import (
	"net/http"

	"github.com/mkale-dev/swarmd/internal/catalog"
)

// CatalogHandler lists the available tools and strategies. Catalogs
// are read-only at runtime, so both endpoints only enumerate.
type CatalogHandler struct {
	tools      *catalog.ToolCatalog
	strategies *catalog.StrategyCatalog
}

func NewCatalogHandler(tools *catalog.ToolCatalog, strategies *catalog.StrategyCatalog) *CatalogHandler {
	return &CatalogHandler{tools: tools, strategies: strategies}
}

func (h *CatalogHandler) Tools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tools.List())
}

func (h *CatalogHandler) Strategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.strategies.List())
}
