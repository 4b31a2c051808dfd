package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"hotel_finder/internal/domain"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// failure says how one endpoint exposes upstream errors.
type failure struct {
	op        string
	message   string // generic 500 text
	details   bool   // forward upstream status/body in "details"
	mirror5xx bool   // answer with the upstream's own 5xx status
	notFound  string // 404 text; empty means 404 is treated as a generic failure
}

// fail is the single place where errors become HTTP statuses:
// validation 400, credentials 503, timeout 504, not found 404 (when allowed), else 500.
func fail(w http.ResponseWriter, r *http.Request, f failure, err error) {
	ev := log.Error().Err(err).Str("op", f.op).Str("path", r.URL.Path)
	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		ev = ev.Str("service", ue.Service).Int("upstream_status", ue.Status).Str("upstream_body", ue.Body)
	}

	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
		return
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, domain.ErrTimeout):
		ev.Msg("upstream timeout")
		writeError(w, http.StatusGatewayTimeout, "upstream timeout")
		return
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrUnavailable):
		ev.Msg("upstream unavailable")
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	case f.notFound != "" && errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, f.notFound)
		return
	}

	ev.Msg("upstream failure")
	status := http.StatusInternalServerError
	if f.mirror5xx && ue != nil && ue.Status >= 500 && ue.Status <= 599 {
		status = ue.Status
	}
	body := errorBody{Error: f.message}
	if f.details {
		if ue != nil {
			body.Details = fmt.Sprintf("upstream status %d: %s", ue.Status, ue.Body)
		} else {
			body.Details = err.Error()
		}
	}
	writeJSON(w, status, body)
}
