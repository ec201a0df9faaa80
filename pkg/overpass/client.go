// Package overpass queries OpenStreetMap Overpass mirrors for tourist POIs.
package overpass

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"driveguide/pkg/model"
	"driveguide/pkg/request"
	"driveguide/pkg/tracker"
)

// DefaultEndpoints are tried in order until one answers.
var DefaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
}

// DefaultTimeout bounds each endpoint attempt.
const DefaultTimeout = 8 * time.Second

// ErrAllEndpointsFailed is returned when no endpoint produced a usable response.
var ErrAllEndpointsFailed = errors.New("overpass: all endpoints failed")

// Poster sends a form-encoded POST and returns the response body.
type Poster interface {
	PostForm(ctx context.Context, u string, values url.Values) ([]byte, error)
}

// Client fetches POIs with ordered failover across endpoints.
type Client struct {
	poster    Poster
	endpoints []string
	timeout   time.Duration
	tracker   *tracker.Tracker
}

// NewClient creates a client. Empty endpoints or a non-positive timeout use the defaults.
func NewClient(p Poster, endpoints []string, timeout time.Duration, t *tracker.Tracker) *Client {
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if t == nil {
		t = tracker.New()
	}
	return &Client{
		poster:    p,
		endpoints: endpoints,
		timeout:   timeout,
		tracker:   t,
	}
}

// Endpoints returns the configured endpoint list.
func (c *Client) Endpoints() []string {
	return c.endpoints
}

// Fetch queries each endpoint in order and returns the first parsed result.
// Transport errors, non-2xx statuses, timeouts and undecodable bodies all move
// on to the next endpoint.
func (c *Client) Fetch(ctx context.Context, lat, lon, radius float64) ([]model.POI, error) {
	form := url.Values{"data": {BuildQuery(lat, lon, radius)}}

	for _, endpoint := range c.endpoints {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		pois, err := c.fetchOne(ctx, endpoint, form)
		if err != nil {
			slog.Warn("Overpass: endpoint failed", "endpoint", endpoint, "error", err)
			continue
		}

		if len(pois) == 0 {
			c.tracker.TrackAPIZero("overpass")
		}
		slog.Debug("Overpass: fetched POIs", "endpoint", endpoint, "count", len(pois), "radius", radius)
		return pois, nil
	}

	return nil, ErrAllEndpointsFailed
}

func (c *Client) fetchOne(ctx context.Context, endpoint string, form url.Values) ([]model.POI, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.poster.PostForm(attemptCtx, endpoint, form)
	if err != nil {
		return nil, err
	}
	return Parse(body)
}

// HealthCheck verifies that at least one endpoint is reachable with a trivial query.
func (c *Client) HealthCheck(ctx context.Context) error {
	form := url.Values{"data": {"[out:json][timeout:5];node(1);out ids;"}}
	var lastErr error
	for _, endpoint := range c.endpoints {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		_, err := c.poster.PostForm(attemptCtx, endpoint, form)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return errors.Join(ErrAllEndpointsFailed, lastErr)
}

var _ Poster = (*request.Client)(nil)
