package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinical-encounters/internal/apperr"
	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/media"
)

const maxBodyBytes = 1 << 20

var statusByCode = map[string]int{
	"invalid_input":              http.StatusBadRequest,
	"invalid_appointment_mode":   http.StatusBadRequest,
	"unauthenticated":            http.StatusUnauthorized,
	"forbidden":                  http.StatusForbidden,
	"not_found":                  http.StatusNotFound,
	"invalid_transition":         http.StatusConflict,
	"duplicate_active_admission": http.StatusConflict,
	"bed_occupied":               http.StatusConflict,
	"bed_unavailable":            http.StatusConflict,
	"admission_not_active":       http.StatusConflict,
	"not_admitted":               http.StatusConflict,
	"transient_store_error":      http.StatusServiceUnavailable,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// handleError renders err using its apperr code. Anything outside the
// taxonomy is logged and reported as a bare 500.
func (h *handlers) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, media.ErrProviderUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "media_unavailable", err.Error())
		return
	}

	code := apperr.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		h.log.Error().Err(err).
			Str("request_id", GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	writeError(w, status, code, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing identity")
	}
	return id, ok
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", apperr.ErrInvalidInput, key)
	}
	return n, nil
}
