package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/justestif/go-spotify-wrapped/internal/auth"
	"github.com/justestif/go-spotify-wrapped/internal/db"
)

type contextKey int

const (
	userIDKey contextKey = iota
	staffKey
)

// userIDFrom returns the Spotify id stored by RequireSession.
func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// staffFrom returns the staff account stored by RequireStaff.
func staffFrom(ctx context.Context) *db.StaffUser {
	staff, _ := ctx.Value(staffKey).(*db.StaffUser)
	return staff
}

// RequireSession rejects requests without a valid session cookie.
func (h *Handlers) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := h.sessions.GetFromRequest(r)
		if session == nil {
			writeError(w, http.StatusUnauthorized, "not logged in", h.logger)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, session.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireStaff authenticates staff with HTTP basic auth.
func (h *Handlers) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			unauthorizedStaff(w, h)
			return
		}

		staff, err := h.staff.Authenticate(r.Context(), username, password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.WarnContext(r.Context(), "staff login failed", "username", username)
			unauthorizedStaff(w, h)
			return
		}
		if err != nil {
			h.fail(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), staffKey, staff)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorizedStaff(w http.ResponseWriter, h *Handlers) {
	w.Header().Set("WWW-Authenticate", `Basic realm="admin", charset="UTF-8"`)
	writeError(w, http.StatusUnauthorized, "invalid credentials", h.logger)
}
