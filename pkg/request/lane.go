package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"driveguide/pkg/tracker"
)

// laneDepth bounds queued requests per provider; submitters block beyond it.
const laneDepth = 100

type result struct {
	body []byte
	err  error
}

type pending struct {
	req  *http.Request
	done chan result
}

// lane serializes the requests to one provider.
type lane struct {
	c        *Client
	provider string
	queue    chan pending
}

func newLane(c *Client, provider string) *lane {
	l := &lane{c: c, provider: provider, queue: make(chan pending, laneDepth)}
	go l.run()
	return l
}

// submit queues req and waits for its result or the request context.
func (l *lane) submit(req *http.Request) (result, error) {
	ctx := req.Context()
	p := pending{req: req, done: make(chan result, 1)}
	select {
	case l.queue <- p:
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
	select {
	case res := <-p.done:
		return res, nil
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

func (l *lane) run() {
	for p := range l.queue {
		if err := p.req.Context().Err(); err != nil {
			slog.Warn("Dropped expired request", "provider", l.provider, "error", err)
			p.done <- result{err: err}
			continue
		}

		body, err := l.send(p.req)
		if err == nil {
			l.c.tracker.Inc(l.provider, tracker.APISuccess)
			l.c.backoff.RecordSuccess(l.provider)
		} else if !errors.Is(err, context.Canceled) {
			l.c.tracker.Inc(l.provider, tracker.APIFailure)
			l.c.backoff.RecordFailure(l.provider)
		}
		p.done <- result{body: body, err: err}

		if gap := l.c.cfg.Gap; gap > 0 {
			_ = l.c.cfg.Clock.Sleep(context.Background(), gap)
		}
	}
}

// send performs req, retrying network errors and retryable statuses.
func (l *lane) send(req *http.Request) ([]byte, error) {
	ctx := req.Context()
	attempts := l.c.cfg.Retries + 1
	var lastErr error

	for i := 1; i <= attempts; i++ {
		if i > 1 {
			if err := l.c.cfg.Clock.Sleep(ctx, l.c.backoff.Delay(i-1)); err != nil {
				return nil, err
			}
			if req.GetBody != nil {
				b, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("rewind body: %w", err)
				}
				req.Body = b
			}
		}

		slog.Debug("Network request", "provider", l.provider, "path", req.URL.Path, "attempt", i)
		body, err := l.once(req)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return nil, err
		}
		slog.Warn("Request failed", "provider", l.provider, "attempt", i, "error", err)
		lastErr = err
	}

	if attempts == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %w", ErrMaxRetries, lastErr)
}

func (l *lane) once(req *http.Request) ([]byte, error) {
	resp, err := l.c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}
	return body, nil
}
