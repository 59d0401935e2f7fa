package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mkale-dev/swarmd/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeDomainError translates the engine's error taxonomy to HTTP
// status codes without leaking internal state. Unrecognized errors
// become opaque 500s.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	var te *domain.InvalidTransitionError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrNoOutput):
		writeError(w, http.StatusNotFound, domain.ErrNoOutput.Error())
	case errors.Is(err, domain.ErrDuplicateID):
		writeError(w, http.StatusConflict, domain.ErrDuplicateID.Error())
	case errors.As(err, &te):
		writeError(w, http.StatusConflict, te.Error())
	case errors.Is(err, domain.ErrNotRunnable):
		writeError(w, http.StatusConflict, domain.ErrNotRunnable.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
