package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mkale-dev/swarmd/internal/domain"
	"github.com/mkale-dev/swarmd/internal/service"
)

// RunHandler serves the accumulated execution log and the current
// output of an agent.
type RunHandler struct {
	svc *service.AgentService
}

func NewRunHandler(svc *service.AgentService) *RunHandler {
	return &RunHandler{svc: svc}
}

func (h *RunHandler) Logs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	recs, err := h.svc.Logs(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if recs == nil {
		recs = []*domain.ExecutionRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *RunHandler) Output(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Output(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"output": out})
}
