package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avern/mediavault/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: status})
}

// writeServiceError maps the service-layer sentinel errors onto HTTP
// statuses. Unrecognized errors surface as 500 with a generic message so
// internals never leak to clients.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrUnauthenticated),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, common.ErrForbidden):
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrBadRequest):
		writeError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, common.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, "unsupported media type")
	case errors.Is(err, common.ErrTicketExpired):
		writeError(w, http.StatusBadRequest, "upload ticket expired")
	case errors.Is(err, common.ErrInvalidTicket):
		writeError(w, http.StatusConflict, "upload ticket already consumed")
	case errors.Is(err, common.ErrVersionConflict):
		writeError(w, http.StatusConflict, "version conflict")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return common.ErrBadRequest
	}
	return nil
}
