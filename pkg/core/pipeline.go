// Package core wires the location stream to the POI and narration jobs.
package core

import (
	"context"
	"log/slog"
	"sync"

	"driveguide/pkg/logging"
	"driveguide/pkg/model"
)

// DefaultBuffer is the number of raw samples queued ahead of processing.
const DefaultBuffer = 64

// SampleProcessor normalizes raw samples.
type SampleProcessor interface {
	Process(raw model.LocationSample) (model.LocationSample, bool)
}

// Pipeline processes raw samples in arrival order on one goroutine and fans
// each accepted sample out to its jobs.
type Pipeline struct {
	proc    SampleProcessor
	state   *State
	jobs    []Job
	samples chan model.LocationSample
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewPipeline creates a pipeline. A buffer ≤ 0 uses DefaultBuffer.
func NewPipeline(proc SampleProcessor, state *State, buffer int) *Pipeline {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Pipeline{
		proc:    proc,
		state:   state,
		samples: make(chan model.LocationSample, buffer),
		logger:  slog.With("component", "pipeline"),
	}
}

// AddJob registers a job.
func (p *Pipeline) AddJob(j Job) {
	p.jobs = append(p.jobs, j)
}

// Submit queues a raw sample. It blocks while the buffer is full.
func (p *Pipeline) Submit(raw model.LocationSample) {
	p.samples <- raw
}

// Run processes queued samples until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	p.logger.Info("Pipeline started", "jobs", len(p.jobs))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Pipeline stopped")
			return
		case raw := <-p.samples:
			p.Handle(ctx, raw)
		}
	}
}

// Handle processes one raw sample synchronously and starts every job that
// should fire. Jobs run on their own goroutines.
func (p *Pipeline) Handle(ctx context.Context, raw model.LocationSample) {
	loc, ok := p.proc.Process(raw)
	if !ok {
		return
	}
	logging.TraceDefault("Pipeline: sample", "lat", loc.Latitude, "lon", loc.Longitude, "has_heading", loc.HasHeading())
	p.state.SetLocation(loc)

	for _, job := range p.jobs {
		if !job.ShouldFire(&loc) {
			continue
		}
		p.wg.Add(1)
		go func(j Job) {
			defer p.wg.Done()
			j.Run(ctx, &loc)
		}(job)
	}
}

// Wait blocks until all started jobs have returned.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
