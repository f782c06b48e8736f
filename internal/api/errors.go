package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ruslano69/firvault/pkg/cases"
	"github.com/ruslano69/firvault/pkg/faults"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: msg})
}

// writeFault maps an error to a status by its faults.Kind.
// Текст ошибки СУБД наружу не отдается: только в лог.
func writeFault(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	if errors.Is(err, cases.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}

	kind := faults.KindOf(err)
	switch kind {
	case faults.KindForbidden:
		writeError(w, http.StatusForbidden, kind.String(), err.Error())
	case faults.KindInvalidScope, faults.KindInvalidInput:
		writeError(w, http.StatusBadRequest, kind.String(), err.Error())
	case faults.KindDuplicateIdentifier:
		writeError(w, http.StatusConflict, kind.String(), "fir number conflict, retry the request")
	case faults.KindBackendUnavailable:
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("database unavailable")
		writeError(w, http.StatusServiceUnavailable, kind.String(), "database unavailable")
	case faults.KindQueryRejected:
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("query rejected")
		writeError(w, http.StatusInternalServerError, kind.String(), "query rejected by database")
	default:
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("internal error")
		writeError(w, http.StatusInternalServerError, kind.String(), "internal error")
	}
}
