// Package probe runs start-up health checks against the guide's remote
// collaborators.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single check.
const DefaultTimeout = 5 * time.Second

// ErrSkipped marks a check that does not apply, e.g. no API key.
var ErrSkipped = errors.New("skipped")

// Checker is anything with a health check, such as an LLM provider or the
// POI endpoint client.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Probe is one named start-up check.
type Probe struct {
	Name     string
	Check    func(ctx context.Context) error
	Critical bool // a failure prevents startup
}

// For builds a non-critical probe from a Checker. A nil checker is skipped.
func For(name string, c Checker) Probe {
	p := Probe{Name: name, Check: func(context.Context) error { return ErrSkipped }}
	if c != nil {
		p.Check = c.HealthCheck
	}
	return p
}

// Status summarizes a Result.
type Status string

const (
	StatusPass Status = "PASS"
	StatusSkip Status = "SKIP"
	StatusFail Status = "FAIL"
)

// Result is the outcome of one probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

func (r Result) Status() Status {
	switch {
	case r.Error == nil:
		return StatusPass
	case errors.Is(r.Error, ErrSkipped):
		return StatusSkip
	default:
		return StatusFail
	}
}

// Run executes all probes concurrently, each under DefaultTimeout, and
// returns results in probe order.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))
	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
			defer cancel()
			start := time.Now()
			err := p.Check(checkCtx)
			results[i] = Result{Probe: p, Error: err, Duration: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Report logs one line per result and returns the joined errors of failed
// critical probes.
func Report(results []Result) error {
	slog.Info("Startup checks", "count", len(results))

	var critical []error
	for _, r := range results {
		st := r.Status()
		msg := fmt.Sprintf("[%s] %-12s (%v)", st, r.Probe.Name, r.Duration.Round(time.Millisecond))
		switch {
		case st != StatusFail:
			slog.Info(msg)
		case r.Probe.Critical:
			slog.Error(msg, "error", r.Error)
			critical = append(critical, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
		default:
			slog.Warn(msg, "error", r.Error)
		}
	}
	return errors.Join(critical...)
}
