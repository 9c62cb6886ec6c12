package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cuemby/vibelab/pkg/cloud"
	"github.com/cuemby/vibelab/pkg/log"
	"github.com/cuemby/vibelab/pkg/orchestrator"
	"github.com/cuemby/vibelab/pkg/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponent("api")
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeMappedError translates typed errors into the status contract:
// 400 validation, 404 missing, 500 everything else.
func writeMappedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound), cloud.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrExists):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger := log.WithComponent("api")
		logger.Error().Err(err).Msg("Internal error")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
