package web

import (
	"net/http"
	"strconv"

	"github.com/justestif/go-spotify-wrapped/internal/db"
	"github.com/justestif/go-spotify-wrapped/internal/feedback"
)

// AdminListFeedback lists feedback for staff (GET /admin/feedback?status=&limit=&offset=).
func (h *Handlers) AdminListFeedback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := db.FeedbackFilter{Status: db.FeedbackStatus(query.Get("status"))}

	var err error
	if filter.Limit, err = uintParam(query.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit", h.logger)
		return
	}
	if filter.Offset, err = uintParam(query.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset", h.logger)
		return
	}

	items, err := h.feedback.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []db.Feedback{}
	}
	writeJSON(w, http.StatusOK, items, h.logger)
}

// AdminMarkRead marks feedback as read (POST /admin/feedback/{id}/read).
func (h *Handlers) AdminMarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	fb, err := h.feedback.MarkRead(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fb, h.logger)
}

// AdminRespond records a staff response (POST /admin/feedback/{id}/respond).
func (h *Handlers) AdminRespond(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var resp feedback.Response
	if err := decodeJSON(w, r, &resp); err != nil {
		h.fail(w, r, err)
		return
	}

	staff := staffFrom(r.Context())
	fb, err := h.feedback.Respond(r.Context(), id, staff.ID, resp)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fb, h.logger)
}

// AdminDeleteFeedback removes a feedback record (DELETE /admin/feedback/{id}).
func (h *Handlers) AdminDeleteFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.feedback.Delete(r.Context(), id, staffFrom(r.Context()).ID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func uintParam(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
