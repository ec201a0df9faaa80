package api

import (
	"net/http"
	"strconv"

	"driveguide/pkg/logging"
)

// maxRecentLogs caps ?n= on GET /api/log/latest.
const maxRecentLogs = 50

// LatestLogResponse is the reply of GET /api/log/latest.
type LatestLogResponse struct {
	Log       string   `json:"log"`
	Narration string   `json:"narration,omitempty"`
	Recent    []string `json:"recent,omitempty"`
}

// handleLatestLog returns the last server log line and narration, plus the
// n most recent log lines when ?n= is given.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	var resp LatestLogResponse
	if e, ok := logging.Server.Last(); ok {
		resp.Log = e.Summary()
	}
	if e, ok := logging.Narrations.Last(); ok {
		resp.Narration = e.Msg
	}

	if n, err := strconv.Atoi(r.URL.Query().Get("n")); err == nil && n > 0 {
		for _, e := range logging.Server.Recent(min(n, maxRecentLogs)) {
			resp.Recent = append(resp.Recent, e.Summary())
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
