// Package api is the HTTP surface of the guide: state and POI views, narrator
// control, runtime settings, the live event stream and the narration backend.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"driveguide/pkg/version"
)

// Handlers groups the endpoint handlers. Nil members leave their routes unregistered.
type Handlers struct {
	Location *LocationHandler
	POIs     *POIHandler
	Narrator *NarratorHandler
	Settings *SettingsHandler
	Demo     *DemoHandler
	Events   *EventHub
	Stats    *StatsHandler
	Narrate  *NarrateHandler
	Metrics  http.Handler
	Origins  *OriginChecker
	// StaticDir holds a built frontend served at /.
	StaticDir string
}

// NewServer creates and configures the HTTP server. shutdown is called
// asynchronously by POST /api/shutdown.
func NewServer(addr string, h Handlers, shutdown func()) *http.Server {
	return &http.Server{
		Addr:        addr,
		Handler:     NewRouter(h, shutdown),
		ReadTimeout: 15 * time.Second,
		// WriteTimeout stays unset: /api/events is long-lived.
		IdleTimeout: 60 * time.Second,
	}
}

// NewRouter builds the route table with access logging and CORS applied.
func NewRouter(h Handlers, shutdown func()) http.Handler {
	mux := http.NewServeMux()

	// 1. Health and version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/health", handleAPIHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2. Location and POIs
	if h.Location != nil {
		mux.HandleFunc("GET /api/location", h.Location.HandleGet)
		mux.HandleFunc("POST /api/location", h.Location.HandlePost)
	}
	if h.POIs != nil {
		mux.HandleFunc("GET /api/pois", h.POIs.HandleList)
	}

	// 3. Narrator
	if h.Narrator != nil {
		mux.HandleFunc("POST /api/narrator/play", h.Narrator.HandlePlay)
		mux.HandleFunc("GET /api/narrator/status", h.Narrator.HandleStatus)
		mux.HandleFunc("GET /api/narrator/history", h.Narrator.HandleHistory)
		mux.HandleFunc("POST /api/narrator/reset", h.Narrator.HandleReset)
	}
	if h.Narrate != nil {
		mux.HandleFunc("POST /api/narrate", h.Narrate.HandleNarrate)
	}

	// 4. Settings and demo
	if h.Settings != nil {
		mux.HandleFunc("GET /api/settings", h.Settings.HandleGet)
		mux.HandleFunc("PUT /api/settings", h.Settings.HandlePut)
	}
	if h.Demo != nil {
		mux.HandleFunc("POST /api/demo/start", h.Demo.HandleStart)
		mux.HandleFunc("POST /api/demo/stop", h.Demo.HandleStop)
	}

	// 5. Live feed, stats and logs
	if h.Events != nil {
		mux.HandleFunc("GET /api/events", h.Events.HandleEvents)
	}
	if h.Stats != nil {
		mux.Handle("GET /api/stats", h.Stats)
	}
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 6. Shutdown
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		if shutdown == nil {
			return
		}
		// Let the response flush first
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	// 7. Static frontend (SPA)
	if h.StaticDir != "" {
		mux.Handle("/", newStaticHandler(h.StaticDir))
	}

	origins := h.Origins
	if origins == nil {
		origins = NewOriginChecker(nil)
	}
	return withRequestLog(withCORS(origins, mux))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleAPIHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}
