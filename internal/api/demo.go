package api

import (
	"context"
	"log/slog"
	"net/http"
)

// DemoDriver is the mock drive route.
type DemoDriver interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
}

// DemoHandler starts and stops the demo drive.
type DemoHandler struct {
	ctx    context.Context // server lifetime, outlives the request
	driver DemoDriver
}

// NewDemoHandler creates a DemoHandler. A nil driver disables the endpoints.
func NewDemoHandler(ctx context.Context, d DemoDriver) *DemoHandler {
	return &DemoHandler{ctx: ctx, driver: d}
}

// DemoStatus is the reply of the demo endpoints.
type DemoStatus struct {
	Running bool `json:"running"`
}

// HandleStart handles POST /api/demo/start.
func (h *DemoHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if h.driver == nil {
		writeError(w, http.StatusConflict, "demo route is disabled")
		return
	}
	if err := h.driver.Start(h.ctx); err != nil {
		slog.Error("API: demo start failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, DemoStatus{Running: h.driver.Running()})
}

// HandleStop handles POST /api/demo/stop.
func (h *DemoHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	if h.driver == nil {
		writeError(w, http.StatusConflict, "demo route is disabled")
		return
	}
	h.driver.Stop()
	writeJSON(w, http.StatusOK, DemoStatus{Running: h.driver.Running()})
}
