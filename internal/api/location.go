package api

import (
	"errors"
	"log/slog"
	"net/http"

	"driveguide/pkg/core"
	"driveguide/pkg/model"
	"driveguide/pkg/position"
)

// Pusher accepts externally supplied fixes.
type Pusher interface {
	Push(s model.LocationSample) error
}

// LocationHandler serves the current position and accepts pushed fixes.
type LocationHandler struct {
	state *core.State
	push  Pusher
}

// NewLocationHandler creates a LocationHandler. A nil pusher disables POST.
func NewLocationHandler(state *core.State, push Pusher) *LocationHandler {
	return &LocationHandler{state: state, push: push}
}

// LocationResponse is the reply of GET /api/location.
type LocationResponse struct {
	Location model.LocationSample `json:"location"`
	Loading  bool                 `json:"loading"`
}

// HandleGet handles GET /api/location.
func (h *LocationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snap := h.state.Snapshot()
	if snap.Location == nil {
		msg := snap.LocationError
		if msg == "" {
			msg = "no position fix"
		}
		writeError(w, http.StatusNotFound, msg)
		return
	}
	writeJSON(w, http.StatusOK, LocationResponse{Location: *snap.Location, Loading: snap.Loading})
}

// HandlePost handles POST /api/location.
func (h *LocationHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	if h.push == nil {
		writeError(w, http.StatusConflict, "location push is disabled")
		return
	}

	var s model.LocationSample
	if err := decodeJSON(w, r, &s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.push.Push(s); err != nil {
		switch {
		case errors.Is(err, position.ErrInvalidSample):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Warn("API: location push failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, err.Error())
		}
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
