package core

import (
	"context"
	"sync/atomic"
	"time"

	"driveguide/pkg/clock"
	"driveguide/pkg/model"
)

// Job is a task the pipeline offers every accepted location sample.
type Job interface {
	Name() string
	ShouldFire(loc *model.LocationSample) bool
	Run(ctx context.Context, loc *model.LocationSample)
}

// single allows one run of a job at a time.
type single struct {
	busy atomic.Bool
}

// do runs fn unless a previous call is still inside it.
func (s *single) do(fn func()) bool {
	if !s.busy.CompareAndSwap(false, true) {
		return false
	}
	defer s.busy.Store(false)
	fn()
	return true
}

func (s *single) Busy() bool { return s.busy.Load() }

// TimeJob runs an action at most once per interval, on the first sample
// after the interval has passed. The first sample always fires.
type TimeJob struct {
	single
	name     string
	clk      clock.Clock
	interval time.Duration
	action   func(context.Context, model.LocationSample)
	next     atomic.Int64 // unix nanos; zero means due now
}

func NewTimeJob(name string, interval time.Duration, clk clock.Clock, action func(context.Context, model.LocationSample)) *TimeJob {
	if clk == nil {
		clk = clock.Real{}
	}
	return &TimeJob{name: name, clk: clk, interval: interval, action: action}
}

func (j *TimeJob) Name() string { return j.name }

func (j *TimeJob) ShouldFire(_ *model.LocationSample) bool {
	return !j.Busy() && j.clk.Now().UnixNano() >= j.next.Load()
}

func (j *TimeJob) Run(ctx context.Context, loc *model.LocationSample) {
	j.do(func() {
		j.next.Store(j.clk.Now().Add(j.interval).UnixNano())
		j.action(ctx, *loc)
	})
}
