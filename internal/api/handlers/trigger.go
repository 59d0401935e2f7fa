package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkale-dev/swarmd/internal/domain"
	"github.com/mkale-dev/swarmd/internal/service"
)

// TriggerHandler is the inbound webhook route. The call blocks until
// the run completes and surfaces the run's terminal status in the
// response body; a FAILURE run is still a 200, so callers can tell
// "the agent ran and failed" apart from transport-level rejections.
type TriggerHandler struct {
	dispatcher *service.Dispatcher
}

func NewTriggerHandler(dispatcher *service.Dispatcher) *TriggerHandler {
	return &TriggerHandler{dispatcher: dispatcher}
}

type triggerResponse struct {
	RunID  string           `json:"run_id"`
	Status domain.RunStatus `json:"status"`
	Output map[string]any   `json:"output,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func (h *TriggerHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "payload must be a JSON object")
			return
		}
	}

	rec, err := h.dispatcher.Trigger(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, triggerResponse{
		RunID:  rec.ID,
		Status: rec.Status,
		Output: rec.Output,
		Error:  rec.Error,
	})
}
