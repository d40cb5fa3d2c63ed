package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ProcessHandler rates a match synchronously.
type ProcessHandler struct {
	deps Dependencies
}

// NewProcessHandler creates a new process handler.
func NewProcessHandler(deps Dependencies) *ProcessHandler {
	return &ProcessHandler{deps: deps}
}

// HandleProcess handles POST /v1/matches/{matchID}/process. Store failures
// map to 503 so the caller retries the delivery.
func (h *ProcessHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	const op = "api.process"
	req, err := decodeNotification(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	out, err := h.deps.ProcessMatchUpdate(r.Context(), chi.URLParam(r, "matchID"), req.Before, req.After)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", WrapKind(op, ErrStoreUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}
