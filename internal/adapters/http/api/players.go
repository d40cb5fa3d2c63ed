package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// PlayerHandler serves player rating views.
type PlayerHandler struct {
	deps Dependencies
}

// NewPlayerHandler creates a new player handler.
func NewPlayerHandler(deps Dependencies) *PlayerHandler {
	return &PlayerHandler{deps: deps}
}

// HandleGetPlayer handles GET /v1/players/{playerID}.
func (h *PlayerHandler) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Player(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", WrapKind("api.get_player", ErrStoreUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}
