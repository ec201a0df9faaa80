package narrator

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"driveguide/pkg/clock"
	"driveguide/pkg/geo"
	"driveguide/pkg/logging"
	"driveguide/pkg/model"
)

// Candidate is a POI seen from the current location.
type Candidate struct {
	POI       model.POI
	Distance  float64
	Bearing   float64
	Direction model.Direction
}

// Service is the narration state machine. At most one narration is in flight;
// a POI narrated successfully is skipped by automatic selection until the
// narrated window expires.
type Service struct {
	gen      Generator
	settings Settings
	cfg      Config
	clk      clock.Clock
	recorder Recorder
	logger   *slog.Logger

	mu            sync.Mutex
	narrating     bool
	lastNarration time.Time
	narrated      map[string]time.Time
	history       []model.NarrationEvent
	subscribers   []func(model.NarrationEvent)

	wg sync.WaitGroup
}

// NewService creates a guide orchestrator.
func NewService(gen Generator, settings Settings, cfg Config, clk clock.Clock) *Service {
	def := DefaultConfig()
	if cfg.NarratedExpiry <= 0 {
		cfg.NarratedExpiry = def.NarratedExpiry
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{
		gen:      gen,
		settings: settings,
		cfg:      cfg,
		clk:      clk,
		logger:   slog.With("component", "narrator"),
		narrated: make(map[string]time.Time),
	}
}

// SetRecorder persists every delivered narration through r.
func (s *Service) SetRecorder(r Recorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = r
}

// Subscribe registers fn to receive every NarrationEvent.
func (s *Service) Subscribe(fn func(model.NarrationEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Evaluate runs one automatic selection cycle for loc and starts a narration
// for the nearest eligible POI. It reports whether one was started.
func (s *Service) Evaluate(ctx context.Context, loc model.LocationSample, pois []model.POI) bool {
	if !s.settings.AutoNarrate(ctx) || !loc.HasHeading() {
		return false
	}

	now := s.clk.Now()
	cooldown := s.settings.NarrationCooldown(ctx)

	s.mu.Lock()
	if s.narrating || (!s.lastNarration.IsZero() && now.Sub(s.lastNarration) < cooldown) {
		s.mu.Unlock()
		return false
	}
	s.cleanExpiredLocked(now)
	best, ok := s.selectLocked(loc, pois, s.settings.SearchRadius(ctx), now)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.narrating = true
	s.mu.Unlock()

	s.logger.Info("Auto narration", "poi", best.POI.Name, "direction", best.Direction, "distance", geo.FormatDistance(best.Distance))
	s.launch(ctx, loc, best, false)
	return true
}

// Play narrates poi on request, bypassing direction and dedup filtering.
func (s *Service) Play(ctx context.Context, loc model.LocationSample, poi model.POI) error {
	if !loc.HasHeading() {
		return ErrNoHeading
	}

	s.mu.Lock()
	if s.narrating {
		s.mu.Unlock()
		return ErrBusy
	}
	s.narrating = true
	s.mu.Unlock()

	c := Observe(loc, poi)
	s.logger.Info("Manual narration", "poi", poi.Name, "direction", c.Direction, "distance", geo.FormatDistance(c.Distance))
	s.launch(ctx, loc, c, true)
	return nil
}

// Candidates returns the POIs automatic selection would consider right now,
// nearest first.
func (s *Service) Candidates(ctx context.Context, loc model.LocationSample, pois []model.POI) []Candidate {
	if !loc.HasHeading() {
		return nil
	}
	now := s.clk.Now()
	radius := s.settings.SearchRadius(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eligibleLocked(loc, pois, radius, now)
}

// Observe computes distance, bearing and relative direction of poi from loc.
// Without a heading the direction defaults to ahead.
func Observe(loc model.LocationSample, poi model.POI) Candidate {
	from := geo.SamplePoint(loc)
	to := geo.POIPoint(&poi)
	c := Candidate{
		POI:       poi,
		Distance:  geo.Distance(from, to),
		Bearing:   geo.Bearing(from, to),
		Direction: model.DirectionAhead,
	}
	if loc.HasHeading() {
		c.Direction = geo.RelativeDirection(*loc.Heading, c.Bearing)
	}
	return c
}

func (s *Service) selectLocked(loc model.LocationSample, pois []model.POI, radius float64, now time.Time) (Candidate, bool) {
	eligible := s.eligibleLocked(loc, pois, radius, now)
	if len(eligible) == 0 {
		return Candidate{}, false
	}
	return eligible[0], true
}

func (s *Service) eligibleLocked(loc model.LocationSample, pois []model.POI, radius float64, now time.Time) []Candidate {
	var out []Candidate
	for i := range pois {
		c := Observe(loc, pois[i])
		if c.Direction == model.DirectionBehind || c.Distance > radius {
			continue
		}
		if s.isNarratedLocked(pois[i].ID, now) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

func (s *Service) launch(ctx context.Context, loc model.LocationSample, c Candidate, manual bool) {
	req := &model.NarrationRequest{
		POIName:        c.POI.Name,
		POIType:        c.POI.Type,
		POISubType:     c.POI.SubType,
		DistanceMeters: int(math.Round(c.Distance)),
		Direction:      c.Direction,
		Speed:          loc.Speed,
		Latitude:       loc.Latitude,
		Longitude:      loc.Longitude,
	}

	// The narration outlives the triggering location update or HTTP request.
	runCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(runCtx, c.POI, req, manual)
	}()
}

func (s *Service) run(ctx context.Context, poi model.POI, req *model.NarrationRequest, manual bool) {
	text, err := s.gen.Narrate(ctx, req)

	s.mu.Lock()
	s.narrating = false
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("Narration failed", "poi", poi.Name, "error", err)
		return
	}

	now := s.clk.Now()
	ev := model.NarrationEvent{
		ID:             uuid.NewString(),
		POIID:          poi.ID,
		POIName:        poi.Name,
		Text:           text,
		Direction:      req.Direction,
		DistanceMeters: req.DistanceMeters,
		Manual:         manual,
		Timestamp:      now,
	}
	s.narrated[poi.ID] = now
	s.lastNarration = now
	s.history = append([]model.NarrationEvent{ev}, s.history...)
	if len(s.history) > s.cfg.HistorySize {
		s.history = s.history[:s.cfg.HistorySize]
	}
	subs := make([]func(model.NarrationEvent), len(s.subscribers))
	copy(subs, s.subscribers)
	recorder := s.recorder
	s.mu.Unlock()

	logging.LogNarration(&ev)
	if recorder != nil {
		if err := recorder.SaveNarration(ctx, ev); err != nil {
			s.logger.Warn("Failed to record narration", "error", err)
		}
	}
	for _, fn := range subs {
		fn(ev)
	}
}

func (s *Service) isNarratedLocked(id string, now time.Time) bool {
	ts, ok := s.narrated[id]
	return ok && now.Sub(ts) < s.cfg.NarratedExpiry
}

func (s *Service) cleanExpiredLocked(now time.Time) {
	for id, ts := range s.narrated {
		if now.Sub(ts) >= s.cfg.NarratedExpiry {
			delete(s.narrated, id)
		}
	}
}

// CleanExpired drops narrated records older than the expiry window.
func (s *Service) CleanExpired() {
	now := s.clk.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanExpiredLocked(now)
}

// IsNarrated reports whether id is inside the narrated window.
func (s *Service) IsNarrated(id string) bool {
	now := s.clk.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isNarratedLocked(id, now)
}

// NarratedCount returns the number of records still held, expired or not.
func (s *Service) NarratedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.narrated)
}

// ResetNarrated forgets every narrated POI.
func (s *Service) ResetNarrated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.narrated = make(map[string]time.Time)
}

// IsNarrating reports whether a narration is in flight.
func (s *Service) IsNarrating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.narrating
}

// LastNarrationTime returns when the last narration completed, zero if never.
func (s *Service) LastNarrationTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastNarration
}

// History returns delivered narrations, newest first.
func (s *Service) History() []model.NarrationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.NarrationEvent, len(s.history))
	copy(out, s.history)
	return out
}

// Current returns the most recent narration.
func (s *Service) Current() (model.NarrationEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return model.NarrationEvent{}, false
	}
	return s.history[0], true
}

// Wait blocks until every in-flight narration has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
