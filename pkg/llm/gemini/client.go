// Package gemini implements llm.Provider on the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/api/iterator"
	"google.golang.org/genai"

	"driveguide/pkg/config"
	"driveguide/pkg/llm"
	"driveguide/pkg/tracker"
)

// DefaultModel is used when the configuration leaves the model empty.
const DefaultModel = "gemini-2.0-flash"

const providerName = "gemini"

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("gemini client not configured")

// session is one immutable set of connection settings. Reconfiguring swaps
// in a new session; in-flight calls finish on the old one.
type session struct {
	api   *genai.Client // nil without a key
	model string
	gen   *genai.GenerateContentConfig
}

// Client implements llm.Provider for Google Gemini.
type Client struct {
	cur     atomic.Pointer[session]
	tracker *tracker.Tracker

	logMu   sync.Mutex
	logPath string
}

// NewClient creates a Gemini client. A missing key is not an error; the
// client then answers ErrNotConfigured.
func NewClient(cfg config.LLMConfig, logPath string, t *tracker.Tracker) (*Client, error) {
	c := &Client{tracker: t, logPath: logPath}
	if err := c.Configure(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Configure replaces the connection settings.
func (c *Client) Configure(cfg config.LLMConfig) error {
	s := &session{
		model: cfg.Model,
		gen:   buildConfig("", cfg.Temperature, cfg.MaxOutputTokens),
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	if cfg.Key != "" {
		api, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: cfg.Key})
		if err != nil {
			return fmt.Errorf("failed to create genai client: %w", err)
		}
		s.api = api
	}
	c.cur.Store(s)
	return nil
}

// Configured reports whether an API key has been set.
func (c *Client) Configured() bool {
	return c.cur.Load().api != nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cur.Load().model
}

// GenerateText sends one prompt and returns the answer text.
func (c *Client) GenerateText(ctx context.Context, p llm.Prompt) (string, error) {
	s := c.cur.Load()
	if s.api == nil {
		return "", ErrNotConfigured
	}

	gen := *s.gen
	if p.System != "" {
		gen.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}

	start := time.Now()
	resp, err := s.api.Models.GenerateContent(ctx, s.model, genai.Text(p.User), &gen)
	if err == nil {
		var text string
		if text, err = getResponseText(resp); err == nil {
			promptTokens, outputTokens := usageTokens(resp.UsageMetadata)
			slog.Debug("Gemini generation complete",
				"intent", p.Name,
				"model", s.model,
				"prompt_tokens", promptTokens,
				"output_tokens", outputTokens,
				"duration", time.Since(start))
			c.record(p, text, tracker.APISuccess)
			return text, nil
		}
	}

	c.record(p, "ERROR: "+err.Error(), tracker.APIFailure)
	return "", fmt.Errorf("gemini %s: %w", p.Name, err)
}

// HealthCheck verifies the key is set and the model can be fetched.
func (c *Client) HealthCheck(ctx context.Context) error {
	s := c.cur.Load()
	if s.api == nil {
		return ErrNotConfigured
	}
	if _, err := s.api.Models.Get(ctx, modelResourceName(s.model), nil); err != nil {
		return fmt.Errorf("gemini health check failed: %w", err)
	}
	return nil
}

// Validate checks the configured model exists. When it does not, the error
// lists the Gemini models the key can use.
func (c *Client) Validate(ctx context.Context) error {
	err := c.HealthCheck(ctx)
	if err == nil || errors.Is(err, ErrNotConfigured) {
		return err
	}
	available, listErr := c.listModels(ctx)
	if listErr != nil {
		return errors.Join(err, listErr)
	}
	return fmt.Errorf("%w (available: %s)", err, strings.Join(available, ", "))
}

func (c *Client) listModels(ctx context.Context) ([]string, error) {
	s := c.cur.Load()
	it, err := s.api.Models.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	var names []string
	for {
		m, err := it.Next(ctx)
		if errors.Is(err, iterator.Done) {
			return names, nil
		}
		if err != nil {
			return names, err
		}
		if strings.Contains(strings.ToLower(m.Name), providerName) {
			names = append(names, m.Name)
		}
	}
}

func (c *Client) record(p llm.Prompt, response string, o tracker.Outcome) {
	if c.tracker != nil {
		c.tracker.Inc(providerName, o)
	}
	if c.logPath == "" {
		return
	}

	c.logMu.Lock()
	defer c.logMu.Unlock()
	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(c.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(formatLogEntry(time.Now(), p, response))
}

func formatLogEntry(ts time.Time, p llm.Prompt, response string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] PROMPT: %s\n", ts.Format("2006-01-02 15:04:05"), p.Name)
	if p.System != "" {
		fmt.Fprintf(&b, "SYSTEM:\n%s\n\n", llm.Wrap(p.System, 80))
	}
	fmt.Fprintf(&b, "PROMPT_TEXT:\n%s\n\nRESPONSE:\n%s\n%s\n", llm.Wrap(p.User, 80), llm.Wrap(response, 80), strings.Repeat("-", 80))
	return b.String()
}
