package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/weaklink/internal/app"
	"github.com/okian/weaklink/internal/domain/model"
)

// EventsHandler accepts match change notifications for asynchronous rating.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvent handles POST /v1/matches/{matchID}/events.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	req, err := decodeNotification(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Submit(r.Context(), model.Notification{
		DeliveryID: req.DeliveryID,
		MatchID:    chi.URLParam(r, "matchID"),
		Before:     req.Before,
		After:      req.After,
	})
	switch {
	case errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
		return
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, "not_ready", WrapKind(op, ErrNotReady, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	if res == service.IngestDuplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true, DeliveryID: req.DeliveryID})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", DeliveryID: req.DeliveryID})
}
