package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sdr-control/sdrc/internal/dacsync"
	"github.com/sdr-control/sdrc/internal/periph"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Code: "BAD_REQUEST", Message: msg})
}

// writeOpError maps the driver error taxonomy onto HTTP statuses:
// caller mistakes are 400, failed bus transactions are 502, a failed
// joint DAC sync is 500 with its own code so callers can decide to
// retry the whole stream-setup sequence.
func writeOpError(w http.ResponseWriter, err error) {
	var syncErr *dacsync.SyncError
	switch {
	case errors.As(err, &syncErr):
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "SYNC_FAILED", Message: err.Error()})
	case errors.Is(err, periph.ErrConfiguration):
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "INVALID_CONFIGURATION", Message: err.Error()})
	case errors.Is(err, periph.ErrHardware):
		writeJSON(w, http.StatusBadGateway, errorBody{Code: "HARDWARE_ACCESS", Message: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: err.Error()})
	}
}
