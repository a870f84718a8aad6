package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/justestif/go-spotify-wrapped/internal/db"
	"github.com/justestif/go-spotify-wrapped/internal/feedback"
	"github.com/justestif/go-spotify-wrapped/internal/wrapped"
)

type personalityRequest struct {
	PersonalityDescription string `json:"personality_description" validate:"max=1000"`
}

type friendRequest struct {
	WrappedID string `json:"wrapped_id" validate:"required,len=10,alphanum"`
}

// Me returns the current user (GET /api/me).
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Profile(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user, h.logger)
}

// UpdateMe stores the personality description (PATCH /api/me).
func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req personalityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	userID := userIDFrom(ctx)
	if err := h.accounts.UpdatePersonality(ctx, userID, req.PersonalityDescription); err != nil {
		h.fail(w, r, err)
		return
	}
	h.Me(w, r)
}

// DeleteMe removes the account and ends the session (DELETE /api/me).
func (h *Handlers) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.DeleteAccount(r.Context(), userIDFrom(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	if session := h.sessions.GetFromRequest(r); session != nil {
		h.sessions.Delete(r.Context(), session.ID)
	}
	h.sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// ListFriends returns the user's friends (GET /api/friends).
func (h *Handlers) ListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.accounts.Friends(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if friends == nil {
		friends = []db.User{}
	}
	writeJSON(w, http.StatusOK, friends, h.logger)
}

// AddFriend befriends a user by public id (POST /api/friends).
func (h *Handlers) AddFriend(w http.ResponseWriter, r *http.Request) {
	var req friendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		h.fail(w, r, err)
		return
	}

	friend, err := h.accounts.AddFriend(r.Context(), userIDFrom(r.Context()), req.WrappedID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, friend, h.logger)
}

// RemoveFriend ends a friendship (DELETE /api/friends/{wrappedID}).
func (h *Handlers) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	wrappedID := chi.URLParam(r, "wrappedID")
	if err := h.accounts.RemoveFriend(r.Context(), userIDFrom(r.Context()), wrappedID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListWraps returns the user's saved summaries (GET /api/wraps).
func (h *Handlers) ListWraps(w http.ResponseWriter, r *http.Request) {
	wraps, err := h.wraps.List(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if wraps == nil {
		wraps = []db.SavedWrap{}
	}
	writeJSON(w, http.StatusOK, wraps, h.logger)
}

// CreateWrap generates and saves a summary (POST /api/wraps).
func (h *Handlers) CreateWrap(w http.ResponseWriter, r *http.Request) {
	var req wrapped.Request
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		h.fail(w, r, err)
		return
	}

	wrap, err := h.wraps.Generate(r.Context(), userIDFrom(r.Context()), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wrap, h.logger)
}

// GetWrap returns one summary (GET /api/wraps/{id}).
func (h *Handlers) GetWrap(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	wrap, err := h.wraps.Get(r.Context(), userIDFrom(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wrap, h.logger)
}

// DeleteWrap removes one summary (DELETE /api/wraps/{id}).
func (h *Handlers) DeleteWrap(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.wraps.Delete(r.Context(), userIDFrom(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitFeedback stores a message from the public form (POST /api/feedback).
func (h *Handlers) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var sub feedback.Submission
	if err := decodeJSON(w, r, &sub); err != nil {
		h.fail(w, r, err)
		return
	}
	fb, err := h.feedback.Submit(r.Context(), sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, fb, h.logger)
}

// idParam parses the {id} URL parameter, answering 400 when it is not a positive integer.
func (h *Handlers) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id", h.logger)
		return 0, false
	}
	return id, true
}
