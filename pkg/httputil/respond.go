// Package httputil holds the JSON response helpers shared by all HTTP
// handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vendo-app/vendo-api/internal/types"
)

// RespondWithJSON writes payload as a JSON body with the given status.
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondWithError writes a JSON error body with the given status.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	if code >= http.StatusInternalServerError {
		slog.Error("API error", slog.Int("code", code), slog.String("message", message))
	}
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// RespondServiceError maps the domain sentinels onto HTTP statuses. Internal
// errors never leak their message to the client.
func RespondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, types.ErrActiveSubscriptionExists), errors.Is(err, types.ErrCancellation),
		errors.Is(err, types.ErrConflict):
		RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, types.ErrInvalidPaymentData), errors.Is(err, types.ErrInactivePlan),
		errors.Is(err, types.ErrBadRequest):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrUnauthenticated):
		RespondWithError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, types.ErrForbidden):
		RespondWithError(w, http.StatusForbidden, err.Error())
	default:
		slog.Error("Unhandled service error", slog.Any("error", err))
		RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
