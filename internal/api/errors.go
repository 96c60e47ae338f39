package api

import (
	"encoding/json"
	"net/http"

	"github.com/audiogated/audiogated/internal/apierr"
	"github.com/audiogated/audiogated/internal/log"
	"github.com/audiogated/audiogated/internal/metrics"
)

// errorResponse is the JSON body shape for every error (spec §7).
type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"detail"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// respondError translates any error into the HTTP response mandated by
// spec §7's Kind→status table, grounded on xg2g/internal/api/errors.go's
// RespondError pattern. Unrecognized errors are treated as Internal.
func respondError(w http.ResponseWriter, r *http.Request, route string, err error) {
	kind := apierr.KindInternal
	msg := "internal error"
	field := ""

	if e, ok := apierr.As(err); ok {
		kind = e.Kind
		msg = e.Message
		field = e.Field
	}

	status := kind.HTTPStatus()
	metrics.HTTPRequests.WithLabelValues(route, http.StatusText(status)).Inc()

	if status >= http.StatusInternalServerError {
		log.WithComponent("api").Error().Err(err).Str("route", route).Int("status", status).Msg("request failed")
	}

	resp := errorResponse{
		Error:     string(kind),
		Message:   msg,
		Field:     field,
		RequestID: log.RequestIDFromContext(r.Context()),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
