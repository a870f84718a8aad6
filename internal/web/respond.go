package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-wrapped/internal/accounts"
	"github.com/justestif/go-spotify-wrapped/internal/auth"
	"github.com/justestif/go-spotify-wrapped/internal/db"
	"github.com/justestif/go-spotify-wrapped/internal/feedback"
	"github.com/justestif/go-spotify-wrapped/internal/validation"
	"github.com/justestif/go-spotify-wrapped/internal/wrapped"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// envelope is the shape of every JSON response.
type envelope struct {
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Success bool              `json:"success"`
}

// writeJSON writes data wrapped in an envelope.
func writeJSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	writeEnvelope(w, status, envelope{Data: data, Success: status < 400}, logger)
}

func writeError(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	writeEnvelope(w, status, envelope{Error: message}, logger)
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Error("encoding response", "error", err)
	}
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// errBadRequest marks malformed requests.
var errBadRequest = errors.New("malformed request")

// fail maps a service error to an HTTP response. Unexpected errors are logged and hidden.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		writeEnvelope(w, http.StatusBadRequest, envelope{Error: "validation failed", Fields: verr.Fields}, h.logger)
	case errors.Is(err, errBadRequest),
		errors.Is(err, accounts.ErrSelfFriend),
		errors.Is(err, wrapped.ErrInvalidTimeRange),
		errors.Is(err, feedback.ErrUnknownStatus):
		writeError(w, http.StatusBadRequest, err.Error(), h.logger)
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", h.logger)
	case errors.Is(err, auth.ErrNoRefreshToken), errors.As(err, new(*oauth2.RetrieveError)):
		writeError(w, http.StatusUnauthorized, "spotify authorization expired, please log in again", h.logger)
	case errors.Is(err, wrapped.ErrNotFriend):
		writeError(w, http.StatusForbidden, err.Error(), h.logger)
	case errors.Is(err, wrapped.ErrTooSoon):
		writeError(w, http.StatusTooManyRequests, err.Error(), h.logger)
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error", h.logger)
	}
}
