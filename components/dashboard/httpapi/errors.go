package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/goliatone/go-userdash/components/dashboard"
	"github.com/goliatone/go-userdash/pkg/logging"
)

// StatusFor maps dashboard errors onto HTTP status codes.
func StatusFor(err error) int {
	var loginErr *dashboard.LoginError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, dashboard.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, dashboard.ErrUnknownResource), errors.Is(err, dashboard.ErrQueryNotFound):
		return http.StatusNotFound
	case errors.As(err, &loginErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
