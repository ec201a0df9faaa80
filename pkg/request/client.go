// Package request is the outbound HTTP client shared by every remote
// collaborator. Requests to one provider run one at a time through a lane,
// with retries and a per-provider backoff window.
package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"driveguide/pkg/clock"
	"driveguide/pkg/tracker"
	"driveguide/pkg/version"
)

var (
	// ErrMaxRetries wraps the last failure once every retry was used.
	ErrMaxRetries = errors.New("max retries exceeded")

	// ErrBackingOff is returned without a network call when FailFast is set
	// and the provider's backoff window is still open.
	ErrBackingOff = errors.New("provider backing off")
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error: status %d", e.Code)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Config tunes the client. Zero values pick the defaults.
type Config struct {
	UserAgent string
	Timeout   time.Duration // overall HTTP client timeout
	Retries   int           // extra attempts on 429/5xx/network errors
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Gap       time.Duration // pause between consecutive requests to one provider
	FailFast  bool          // reject requests to a provider inside its backoff window
	Clock     clock.Clock
}

// DefaultConfig returns the stock settings. There are no retries so callers
// with their own failover move on at once.
func DefaultConfig() Config {
	return Config{
		UserAgent: "DriveGuide/" + version.Version + " (location-aware tour guide)",
		Timeout:   60 * time.Second,
		BaseDelay: 500 * time.Millisecond,
		MaxDelay:  30 * time.Second,
		Gap:       100 * time.Millisecond,
	}
}

func (cfg *Config) fill() {
	def := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	cfg.Retries = max(cfg.Retries, 0)
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
}

// Client sends HTTP requests through per-provider lanes.
type Client struct {
	http    *http.Client
	tracker *tracker.Tracker
	backoff *ProviderBackoff
	cfg     Config

	mu    sync.Mutex
	lanes map[string]*lane
}

// New creates a Client. A nil tracker gets a private one.
func New(t *tracker.Tracker, cfg Config) *Client {
	cfg.fill()
	if t == nil {
		t = tracker.New()
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		tracker: t,
		backoff: NewProviderBackoff(cfg.BaseDelay, cfg.MaxDelay, cfg.Clock),
		cfg:     cfg,
		lanes:   make(map[string]*lane),
	}
}

func (c *Client) Get(ctx context.Context, u string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, u, nil, headers)
}

func (c *Client) Post(ctx context.Context, u string, body []byte, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, u, body, headers)
}

// PostForm posts url-encoded values.
func (c *Client) PostForm(ctx context.Context, u string, values url.Values) ([]byte, error) {
	return c.Post(ctx, u, []byte(values.Encode()), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
}

// BackoffState returns the consecutive failure count of a provider and when
// its backoff window ends.
func (c *Client) BackoffState(provider string) (failures int, nextAllowed time.Time) {
	return c.backoff.State(provider)
}

// ProviderName maps a host to the provider name used for lanes and stats.
func ProviderName(host string) string {
	host = strings.TrimPrefix(host, "www.")
	if strings.HasSuffix(host, "googleapis.com") {
		return "gemini"
	}
	return host
}

func (c *Client) do(ctx context.Context, method, u string, body []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	provider := ProviderName(req.URL.Host)
	if c.cfg.FailFast {
		if wait := c.backoff.Remaining(provider); wait > 0 {
			return nil, fmt.Errorf("%w: %s for %s", ErrBackingOff, provider, wait.Round(time.Millisecond))
		}
	}

	res, err := c.lane(provider).submit(req)
	if err != nil {
		return nil, err
	}
	return res.body, res.err
}

func (c *Client) lane(provider string) *lane {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lanes[provider]
	if !ok {
		l = newLane(c, provider)
		c.lanes[provider] = l
	}
	return l
}
