package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"driveguide/pkg/core"
	"driveguide/pkg/model"
	"driveguide/pkg/narration"
	"driveguide/pkg/narrator"
	"driveguide/pkg/poi"
)

// NarratorController defines methods for controlling and viewing narration state.
type NarratorController interface {
	Play(ctx context.Context, loc model.LocationSample, p model.POI) error
	IsNarrating() bool
	NarratedCount() int
	LastNarrationTime() time.Time
	History() []model.NarrationEvent
	Current() (model.NarrationEvent, bool)
	ResetNarrated()
}

// POILookup resolves a POI id from the current set.
type POILookup interface {
	Get(id string) (model.POI, error)
}

// CircuitReporter exposes the narration circuit breaker.
type CircuitReporter interface {
	State() narration.CircuitState
}

// HistoryStore reads the persisted narration log.
type HistoryStore interface {
	RecentNarrations(ctx context.Context, limit int) ([]model.NarrationEvent, error)
}

// NarratorHandler handles narrator control endpoints.
type NarratorHandler struct {
	narrator NarratorController
	pois     POILookup
	state    *core.State
	circuit  CircuitReporter
	store    HistoryStore
}

// NewNarratorHandler creates a new NarratorHandler. circuit and store may be nil.
func NewNarratorHandler(n NarratorController, pois POILookup, state *core.State, circuit CircuitReporter, store HistoryStore) *NarratorHandler {
	return &NarratorHandler{
		narrator: n,
		pois:     pois,
		state:    state,
		circuit:  circuit,
		store:    store,
	}
}

// PlayRequest represents a manual narration play request.
type PlayRequest struct {
	POIID string `json:"poi_id"`
}

// NarratorStatusResponse represents the narrator status.
type NarratorStatusResponse struct {
	Narrating     bool                    `json:"narrating"`
	NarratedCount int                     `json:"narrated_count"`
	LastNarration *time.Time              `json:"last_narration,omitempty"`
	Current       *model.NarrationEvent   `json:"current,omitempty"`
	Circuit       *narration.CircuitState `json:"circuit,omitempty"`
}

// HandlePlay handles POST /api/narrator/play
func (h *NarratorHandler) HandlePlay(w http.ResponseWriter, r *http.Request) {
	var req PlayRequest
	if err := decodeJSON(w, r, &req); err != nil || req.POIID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.pois.Get(req.POIID)
	if err != nil {
		if errors.Is(err, poi.ErrPOINotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	loc, ok := h.state.Location()
	if !ok {
		writeError(w, http.StatusConflict, "no position fix")
		return
	}

	slog.Info("API: manual narration", "poi_id", p.ID, "name", p.Name)
	if err := h.narrator.Play(r.Context(), loc, p); err != nil {
		switch {
		case errors.Is(err, narrator.ErrNoHeading), errors.Is(err, narrator.ErrBusy):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "narrating",
		"message": "Narrating " + p.Name,
	})
}

// HandleStatus handles GET /api/narrator/status
func (h *NarratorHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := NarratorStatusResponse{
		Narrating:     h.narrator.IsNarrating(),
		NarratedCount: h.narrator.NarratedCount(),
	}
	if last := h.narrator.LastNarrationTime(); !last.IsZero() {
		resp.LastNarration = &last
	}
	if cur, ok := h.narrator.Current(); ok {
		resp.Current = &cur
	}
	if h.circuit != nil {
		st := h.circuit.State()
		resp.Circuit = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleHistory handles GET /api/narrator/history. With ?persisted=true the
// narration log is read from the store instead of memory.
func (h *NarratorHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	persisted, _ := strconv.ParseBool(r.URL.Query().Get("persisted"))
	if !persisted {
		writeJSON(w, http.StatusOK, nonNil(h.narrator.History()))
		return
	}
	if h.store == nil {
		writeError(w, http.StatusNotFound, "no narration store configured")
		return
	}

	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	events, err := h.store.RecentNarrations(r.Context(), limit)
	if err != nil {
		slog.Error("API: reading narration log failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read narration log")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(events))
}

// HandleReset handles POST /api/narrator/reset
func (h *NarratorHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.narrator.ResetNarrated()
	slog.Info("API: narrated record cleared")
	w.WriteHeader(http.StatusNoContent)
}

func nonNil(events []model.NarrationEvent) []model.NarrationEvent {
	if events == nil {
		return []model.NarrationEvent{}
	}
	return events
}
