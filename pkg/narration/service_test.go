package narration

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveguide/pkg/clock"
	"driveguide/pkg/llm"
	"driveguide/pkg/model"
	"driveguide/pkg/request"
	"driveguide/pkg/tracker"
)

const testKey = "AIzaSyExampleRealLookingKey"

type fakeProvider struct {
	mu    sync.Mutex
	calls int
	texts []string
	errs  []error
	last  llm.Prompt
}

func (f *fakeProvider) GenerateText(ctx context.Context, p llm.Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.last = p
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(f.texts) {
		return f.texts[i], nil
	}
	return "  Remote narration.  ", nil
}

func (f *fakeProvider) HealthCheck(ctx context.Context) error { return nil }

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testRequest() *model.NarrationRequest {
	return &model.NarrationRequest{
		POIName:        "Tokyo Tower",
		POIType:        model.POITypeTourism,
		POISubType:     "attraction",
		DistanceMeters: 400,
		Direction:      model.DirectionRight,
		Latitude:       35.0,
		Longitude:      139.0,
	}
}

func TestGenerate_NoKeyUsesTemplateAfterLatency(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	p := &fakeProvider{}
	tr := tracker.New()

	s := NewService(p, Config{Key: "your-gemini-api-key-here", Latency: 500 * time.Millisecond}, clk, tr)
	text := s.Generate(context.Background(), testRequest())

	assert.Contains(t, text, "Tokyo Tower")
	assert.Contains(t, text, "Just over there")
	assert.Equal(t, 0, p.Calls(), "remote must not be called without a key")
	assert.Equal(t, start.Add(500*time.Millisecond), clk.Now())
	assert.Equal(t, int64(1), tr.Snapshot()["gemini"].Fallbacks)
}

func TestGenerate_SuccessTrimsAndSendsPrompt(t *testing.T) {
	p := &fakeProvider{texts: []string{"```\nOn your right is Tokyo Tower.\n```"}}
	s := NewService(p, Config{Key: testKey}, clock.NewFake(time.Now()), nil)

	text := s.Generate(context.Background(), testRequest())
	assert.Equal(t, "On your right is Tokyo Tower.", text)
	assert.Equal(t, 1, p.Calls())
	assert.Equal(t, SystemPrompt, p.last.System)
	assert.Contains(t, p.last.User, "Name: Tokyo Tower")
	assert.Equal(t, 0, s.State().ConsecutiveFailures)
}

func TestGenerate_EmptyResponseCountsAsFailure(t *testing.T) {
	p := &fakeProvider{texts: []string{"   "}}
	s := NewService(p, Config{Key: testKey}, clock.NewFake(time.Now()), nil)

	text := s.Generate(context.Background(), testRequest())
	assert.Contains(t, text, "Tokyo Tower")
	assert.Equal(t, 1, s.State().ConsecutiveFailures)
}

func TestGenerate_CircuitBreaker(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	boom := errors.New("quota exhausted")
	p := &fakeProvider{errs: []error{boom, boom, boom}}
	s := NewService(p, Config{Key: testKey, Latency: time.Second}, clk, nil)
	ctx := context.Background()

	// Two failures open the circuit
	for i := 0; i < 2; i++ {
		text := s.Generate(ctx, testRequest())
		assert.Contains(t, text, "Tokyo Tower")
	}
	require.Equal(t, 2, p.Calls())
	assert.Equal(t, start, clk.Now(), "remote failures fall back without the artificial delay")
	st := s.State()
	assert.Equal(t, 2, st.ConsecutiveFailures)
	assert.Equal(t, "open", st.State)
	assert.Equal(t, start.Add(5*time.Minute), st.OpenUntil)

	// Third call within the cooldown never reaches the remote
	text := s.Generate(ctx, testRequest())
	assert.Contains(t, text, "Tokyo Tower")
	assert.Equal(t, 2, p.Calls())
	assert.Equal(t, 2, s.State().ConsecutiveFailures, "open circuit must not count further failures")
	assert.Equal(t, start.Add(time.Second), clk.Now(), "open circuit delays the template text")

	// After the cooldown one trial call is let through; failing it reopens
	clk.Advance(5 * time.Minute)
	assert.Equal(t, "half-open", s.State().State)
	s.Generate(ctx, testRequest())
	assert.Equal(t, 3, p.Calls())
	st = s.State()
	assert.Equal(t, 3, st.ConsecutiveFailures)
	assert.Equal(t, "open", st.State)
	assert.Equal(t, clk.Now().Add(5*time.Minute), st.OpenUntil)

	// A success after the next cooldown closes it and resets the counter
	clk.Advance(6 * time.Minute)
	text = s.Generate(ctx, testRequest())
	assert.Equal(t, "Remote narration.", text)
	assert.Equal(t, 4, p.Calls())
	st = s.State()
	assert.Equal(t, 0, st.ConsecutiveFailures)
	assert.Equal(t, "closed", st.State)
}

func TestGenerate_CancelledCallerIsNotFailure(t *testing.T) {
	tests := []struct {
		name        string
		provider    llm.Provider
		cancelFirst bool
	}{
		{"cancelled before the call", &fakeProvider{errs: []error{context.Canceled}}, true},
		{"cancelled while waiting on the remote", blockingProvider{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(tt.provider, Config{Key: testKey}, clock.NewFake(time.Now()), nil)
			for i := 0; i < 3; i++ {
				ctx, cancel := context.WithCancel(context.Background())
				if tt.cancelFirst {
					cancel()
				} else {
					time.AfterFunc(10*time.Millisecond, cancel)
				}
				text := s.Generate(ctx, testRequest())
				assert.Contains(t, text, "Tokyo Tower")
				cancel()
			}
			st := s.State()
			assert.Equal(t, 0, st.ConsecutiveFailures)
			assert.Equal(t, "closed", st.State)
		})
	}
}

func TestGenerate_TimeoutIsFailure(t *testing.T) {
	blocking := &blockingProvider{}
	s := NewService(blocking, Config{Key: testKey, Timeout: 20 * time.Millisecond}, clock.NewFake(time.Now()), nil)

	text := s.Generate(context.Background(), testRequest())
	assert.Contains(t, text, "Tokyo Tower")
	assert.Equal(t, 1, s.State().ConsecutiveFailures)
}

type blockingProvider struct{}

func (blockingProvider) GenerateText(ctx context.Context, p llm.Prompt) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (blockingProvider) HealthCheck(ctx context.Context) error { return nil }

func TestNarrateNeverErrors(t *testing.T) {
	s := NewService(nil, Config{}, clock.NewFake(time.Now()), nil)
	text, err := s.Narrate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

func TestRemoteClient(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, NarratePath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"narration":" On your right is Tokyo Tower. "}`))
	}))
	defer srv.Close()

	rc := request.New(tracker.New(), request.Config{Gap: time.Millisecond})
	c := NewRemoteClient(rc, srv.URL+"/")

	text, err := c.Narrate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "On your right is Tokyo Tower.", text)
	assert.Contains(t, string(gotBody), `"poiName":"Tokyo Tower"`)
	assert.Contains(t, string(gotBody), `"direction":"right"`)
}

func TestRemoteClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"Failed to generate narration"}`},
		{"rate limited", http.StatusTooManyRequests, `{"error":"Rate limit exceeded. Please wait."}`},
		{"empty narration", http.StatusOK, `{"narration":""}`},
		{"malformed", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			rc := request.New(tracker.New(), request.Config{Gap: time.Millisecond})
			c := NewRemoteClient(rc, srv.URL)
			_, err := c.Narrate(context.Background(), testRequest())
			assert.Error(t, err)
		})
	}
}
