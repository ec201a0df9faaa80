package api

import (
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"driveguide/pkg/tracker"
)

// ActiveCounter reports the size of the current POI set.
type ActiveCounter interface {
	ActiveCount() int
}

// BackoffReporter exposes per-host backoff of the HTTP client.
type BackoffReporter interface {
	BackoffState(provider string) (failures int, nextAllowed time.Time)
}

type StatsHandler struct {
	tracker *tracker.Tracker
	pois    ActiveCounter
	circuit CircuitReporter
	backoff BackoffReporter
	hosts   []string
	started time.Time
	peakSys atomic.Uint64
}

// NewStatsHandler creates a StatsHandler. circuit and backoff may be nil;
// hosts lists the providers whose backoff is reported.
func NewStatsHandler(t *tracker.Tracker, pois ActiveCounter, circuit CircuitReporter, backoff BackoffReporter, hosts []string) *StatsHandler {
	return &StatsHandler{
		tracker: t,
		pois:    pois,
		circuit: circuit,
		backoff: backoff,
		hosts:   hosts,
		started: time.Now(),
	}
}

type ProviderStatsDTO struct {
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	APISuccess    int64 `json:"api_success"`
	APIZeroResult int64 `json:"api_zero"`
	APIFailures   int64 `json:"api_errors"`
	Fallbacks     int64 `json:"fallbacks"`
	HitRate       int64 `json:"hit_rate"`
}

type Diagnostics struct {
	MemoryMB    uint64  `json:"memory_mb"`
	MemoryMaxMB uint64  `json:"memory_max_mb"`
	Goroutines  int     `json:"goroutines"`
	UptimeSec   float64 `json:"uptime_sec"`
}

type BackoffDTO struct {
	Failures    int        `json:"failures"`
	NextAllowed *time.Time `json:"next_allowed,omitempty"`
}

type TrackingStats struct {
	ActivePOIs int `json:"active_pois"`
}

type StatsResponse struct {
	Diagnostics Diagnostics                 `json:"diagnostics"`
	Tracking    TrackingStats               `json:"tracking"`
	Providers   map[string]ProviderStatsDTO `json:"providers"`
	Backoff     map[string]BackoffDTO       `json:"backoff,omitempty"`
	Circuit     any                         `json:"circuit,omitempty"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tracker.Snapshot()

	resp := StatsResponse{
		Diagnostics: h.gatherDiagnostics(),
		Providers:   make(map[string]ProviderStatsDTO, len(snapshot)),
	}
	if h.pois != nil {
		resp.Tracking.ActivePOIs = h.pois.ActiveCount()
	}
	if h.circuit != nil {
		resp.Circuit = h.circuit.State()
	}

	for provider, stats := range snapshot {
		resp.Providers[provider] = ProviderStatsDTO{
			CacheHits:     stats.CacheHits,
			CacheMisses:   stats.CacheMisses,
			APISuccess:    stats.APISuccess,
			APIZeroResult: stats.APIZeroResult,
			APIFailures:   stats.APIFailures,
			Fallbacks:     stats.Fallbacks,
			HitRate:       stats.HitRate(),
		}
	}

	if h.backoff != nil && len(h.hosts) > 0 {
		resp.Backoff = make(map[string]BackoffDTO, len(h.hosts))
		for _, host := range h.hosts {
			failures, next := h.backoff.BackoffState(host)
			dto := BackoffDTO{Failures: failures}
			if !next.IsZero() {
				dto.NextAllowed = &next
			}
			resp.Backoff[host] = dto
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *StatsHandler) gatherDiagnostics() Diagnostics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	peak := h.peakSys.Load()
	for ms.Sys > peak && !h.peakSys.CompareAndSwap(peak, ms.Sys) {
		peak = h.peakSys.Load()
	}

	return Diagnostics{
		MemoryMB:    ms.Sys >> 20,
		MemoryMaxMB: max(peak, ms.Sys) >> 20,
		Goroutines:  runtime.NumGoroutine(),
		UptimeSec:   time.Since(h.started).Seconds(),
	}
}
