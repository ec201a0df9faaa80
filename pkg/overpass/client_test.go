package overpass

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveguide/pkg/request"
	"driveguide/pkg/tracker"
)

type fakePoster struct {
	mu    sync.Mutex
	calls []string
	reply map[string]func(ctx context.Context) ([]byte, error)
}

func (f *fakePoster) PostForm(ctx context.Context, u string, values url.Values) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, u)
	fn := f.reply[u]
	f.mu.Unlock()
	if fn == nil {
		return nil, errors.New("connection refused")
	}
	return fn(ctx)
}

func TestFetchFailover(t *testing.T) {
	p := &fakePoster{reply: map[string]func(context.Context) ([]byte, error){
		"https://b": func(context.Context) ([]byte, error) { return []byte(sampleResponse), nil },
		"https://c": func(context.Context) ([]byte, error) { t.Error("third endpoint must not be called"); return nil, nil },
	}}
	c := NewClient(p, []string{"https://a", "https://b", "https://c"}, time.Second, nil)

	pois, err := c.Fetch(context.Background(), 35.6586, 139.7454, 2000)
	require.NoError(t, err)
	assert.Len(t, pois, 3)
	assert.Equal(t, []string{"https://a", "https://b"}, p.calls)
}

func TestFetchAllFail(t *testing.T) {
	p := &fakePoster{reply: map[string]func(context.Context) ([]byte, error){
		"https://b": func(context.Context) ([]byte, error) { return []byte("not json"), nil },
	}}
	c := NewClient(p, []string{"https://a", "https://b"}, time.Second, nil)

	_, err := c.Fetch(context.Background(), 35, 139, 2000)
	assert.ErrorIs(t, err, ErrAllEndpointsFailed)
	assert.Len(t, p.calls, 2)
}

func TestFetchPerAttemptTimeout(t *testing.T) {
	p := &fakePoster{reply: map[string]func(context.Context) ([]byte, error){
		"https://slow": func(ctx context.Context) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
		"https://fast": func(context.Context) ([]byte, error) { return []byte(`{"elements":[]}`), nil },
	}}
	tr := tracker.New()
	c := NewClient(p, []string{"https://slow", "https://fast"}, 20*time.Millisecond, tr)

	start := time.Now()
	pois, err := c.Fetch(context.Background(), 35, 139, 2000)
	require.NoError(t, err)
	assert.Empty(t, pois)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int64(1), tr.Snapshot()["overpass"].APIZeroResult)
}

func TestFetchThroughRequestClient(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer down.Close()

	var gotQuery string
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.PostForm.Get("data")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer up.Close()

	cfg := request.DefaultConfig()
	cfg.Gap = 0
	c := NewClient(request.New(nil, cfg), []string{down.URL, up.URL}, time.Second, nil)

	pois, err := c.Fetch(context.Background(), 35.6586, 139.7454, 2000)
	require.NoError(t, err)
	assert.Len(t, pois, 3)
	assert.Equal(t, BuildQuery(35.6586, 139.7454, 2000), gotQuery)
}

func TestHealthCheck(t *testing.T) {
	p := &fakePoster{reply: map[string]func(context.Context) ([]byte, error){
		"https://b": func(context.Context) ([]byte, error) { return []byte(`{}`), nil },
	}}
	assert.NoError(t, NewClient(p, []string{"https://a", "https://b"}, time.Second, nil).HealthCheck(context.Background()))
	assert.ErrorIs(t, NewClient(p, []string{"https://a"}, time.Second, nil).HealthCheck(context.Background()), ErrAllEndpointsFailed)
}
