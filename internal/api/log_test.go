package api

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"driveguide/pkg/logging"
	"driveguide/pkg/model"
)

func TestHandleLatestLog(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 15, 46, 0, time.UTC)
	logging.Server.Add(logging.Entry{Time: ts, Level: slog.LevelInfo, Msg: "Refreshed POIs", Attrs: map[string]string{"count": "12"}})
	logging.Server.Add(logging.Entry{Time: ts, Level: slog.LevelWarn, Msg: "Endpoint failed", Attrs: map[string]string{"status": "504"}})
	logging.LogNarration(&model.NarrationEvent{POIName: "Tokyo Tower", Direction: model.DirectionRight, DistanceMeters: 400, Timestamp: ts})

	tests := []struct {
		name       string
		query      string
		wantRecent []string
	}{
		{"latest only", "", nil},
		{"recent lines", "?n=2", []string{"10:15:46 Endpoint failed (status=504)", "10:15:46 Refreshed POIs (count=12)"}},
		{"bad n ignored", "?n=abc", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleLatestLog(rec, httptest.NewRequest(http.MethodGet, "/api/log/latest"+tt.query, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			resp := decode[LatestLogResponse](t, rec)
			assert.Equal(t, "10:15:46 Endpoint failed (status=504)", resp.Log)
			assert.Equal(t, "[2026-03-01 10:15:46] [auto] Tokyo Tower (right, 400m)", resp.Narration)
			assert.Equal(t, tt.wantRecent, resp.Recent)
		})
	}
}
