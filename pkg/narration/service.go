package narration

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"driveguide/pkg/clock"
	"driveguide/pkg/llm"
	"driveguide/pkg/model"
	"driveguide/pkg/tracker"
)

// ErrEmptyNarration is returned by the remote path when the model sends no text.
var ErrEmptyNarration = errors.New("empty narration")

const trackerName = "gemini"

// Config tunes the Service.
type Config struct {
	Key       string        // remote credential; see HasValidKey
	Threshold int           // consecutive failures that open the circuit
	Cooldown  time.Duration // how long the circuit stays open
	Latency   time.Duration // artificial delay before fallback text
	Timeout   time.Duration // per remote call
}

// DefaultConfig returns the stock breaker and latency settings.
func DefaultConfig() Config {
	return Config{
		Threshold: 2,
		Cooldown:  5 * time.Minute,
		Latency:   500 * time.Millisecond,
		Timeout:   15 * time.Second,
	}
}

// CircuitState is a snapshot of the breaker around remote generation.
type CircuitState struct {
	ConsecutiveFailures int       `json:"consecutive_failures"`
	OpenUntil           time.Time `json:"open_until"`
	State               string    `json:"state"`
}

// Service turns narration requests into text. Generate never fails: remote
// errors and an open circuit both yield templated fallback text.
type Service struct {
	provider llm.Provider
	cfg      Config
	clk      clock.Clock
	tracker  *tracker.Tracker
	settings gobreaker.Settings
	logger   *slog.Logger

	mu        sync.Mutex
	cb        *gobreaker.CircuitBreaker[string]
	failures  int
	openUntil time.Time
	rng       *rand.Rand
}

// NewService creates a Service. provider may be nil, in which case every
// request is answered from the templates.
func NewService(provider llm.Provider, cfg Config, clk clock.Clock, t *tracker.Tracker) *Service {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Latency < 0 {
		cfg.Latency = 0
	}
	if clk == nil {
		clk = clock.Real{}
	}

	s := &Service{
		provider: provider,
		cfg:      cfg,
		clk:      clk,
		tracker:  t,
		logger:   slog.With("component", "narration"),
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}

	threshold := uint32(cfg.Threshold)
	s.settings = gobreaker.Settings{
		Name:        "narration",
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Info("Circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	s.cb = gobreaker.NewCircuitBreaker[string](s.settings)
	return s
}

// HasValidKey reports whether key looks like a real credential rather than
// an empty value or a placeholder.
func HasValidKey(key string) bool {
	key = strings.TrimSpace(key)
	if len(key) <= 10 {
		return false
	}
	lower := strings.ToLower(key)
	return !strings.HasPrefix(lower, "your-") && !strings.Contains(lower, "api-key-here")
}

// Generate returns narration text for req.
func (s *Service) Generate(ctx context.Context, req *model.NarrationRequest) string {
	if s.provider == nil || !HasValidKey(s.cfg.Key) {
		s.logger.Debug("No credential, using template narration", "poi", req.POIName)
		return s.fallback(ctx, req, true)
	}

	cb, open := s.breaker()
	if open {
		s.logger.Info("Circuit open, using template narration", "poi", req.POIName)
		return s.fallback(ctx, req, true)
	}
	if ctx.Err() != nil {
		return s.fallback(ctx, req, false)
	}

	text, err := cb.Execute(func() (string, error) {
		return s.remote(ctx, req)
	})
	switch {
	case err == nil:
		s.recordSuccess()
		s.logger.Info("Narration generated", "poi", req.POIName)
		return text
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		s.logger.Info("Circuit open, using template narration", "poi", req.POIName)
		return s.fallback(ctx, req, true)
	case errors.Is(err, context.Canceled):
		s.logger.Debug("Narration request cancelled", "poi", req.POIName)
		return s.fallback(ctx, req, false)
	}

	failures := s.recordFailure()
	s.logger.Warn("Remote narration failed, falling back",
		"poi", req.POIName,
		"failures", failures,
		"error", llm.Truncate(err.Error(), 100))
	return s.fallback(ctx, req, false)
}

// breaker reports whether the circuit is open on the service clock. Once the
// cooldown has passed, a breaker still open on wall time is replaced so the
// next call goes through as the trial request.
func (s *Service) breaker() (*gobreaker.CircuitBreaker[string], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openLocked(s.clk.Now()) {
		return s.cb, true
	}
	if s.cb.State() == gobreaker.StateOpen {
		s.cb = gobreaker.NewCircuitBreaker[string](s.settings)
	}
	return s.cb, false
}

func (s *Service) openLocked(now time.Time) bool {
	return s.failures >= s.cfg.Threshold && now.Before(s.openUntil)
}

// Narrate implements the guide's generator contract; it never returns an error.
func (s *Service) Narrate(ctx context.Context, req *model.NarrationRequest) (string, error) {
	return s.Generate(ctx, req), nil
}

// State returns the current breaker snapshot.
func (s *Service) State() CircuitState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CircuitState{
		ConsecutiveFailures: s.failures,
		OpenUntil:           s.openUntil,
		State:               s.stateLocked(),
	}
}

func (s *Service) stateLocked() string {
	switch {
	case s.openLocked(s.clk.Now()):
		return gobreaker.StateOpen.String()
	case s.failures >= s.cfg.Threshold:
		return gobreaker.StateHalfOpen.String()
	}
	return gobreaker.StateClosed.String()
}

func (s *Service) remote(ctx context.Context, req *model.NarrationRequest) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	out, err := s.provider.GenerateText(cctx, llm.Prompt{
		Name:   "narration",
		System: SystemPrompt,
		User:   BuildUserMessage(req),
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", ctx.Err()
		}
		return "", err
	}
	out = llm.CleanText(out)
	if out == "" {
		return "", ErrEmptyNarration
	}
	return out, nil
}

func (s *Service) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = 0
	s.openUntil = time.Time{}
}

func (s *Service) recordFailure() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	s.openUntil = s.clk.Now().Add(s.cfg.Cooldown)
	return s.failures
}

// fallback returns template text. delay adds the artificial latency used when
// the remote is skipped entirely.
func (s *Service) fallback(ctx context.Context, req *model.NarrationRequest, delay bool) string {
	if delay && s.cfg.Latency > 0 {
		_ = s.clk.Sleep(ctx, s.cfg.Latency)
	}
	if s.tracker != nil {
		s.tracker.TrackFallback(trackerName)
	}

	s.mu.Lock()
	idx := s.rng.IntN(TemplateCount)
	s.mu.Unlock()
	return Fallback(req, idx)
}
