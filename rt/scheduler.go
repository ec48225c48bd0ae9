package rt

import (
	"sync/atomic"
	"time"
)

// spinMarginNs is how much of the remaining wait before a tick's
// deadline is spent spinning rather than sleeping, trading a little
// CPU for tighter wakeup precision than the OS scheduler alone gives
// (spec.md §4.7 "wakes by high-resolution sleep + spin-until-deadline").
const spinMarginNs = 200_000 // 200us

// Config configures a Scheduler. NowFunc and SleepFunc default to a
// real monotonic clock and time.Sleep; tests substitute both with an
// injectable fake clock, the equivalent of original_source's
// hil_tests.rs synthetic scheduler-delay harness.
type Config struct {
	PeriodNs int64
	// Tick is invoked once per period with the tick's start timestamp.
	Tick func(nowNs int64)
	// Teardown runs once, after the stop flag is observed, before Run
	// returns (spec.md §4.7 "zero-torque command to device, disarm
	// watchdog, flush stats").
	Teardown func()
	NowFunc  func() int64
	SleepFunc func(time.Duration)
	// DisableSpin skips the spin-until-deadline phase, sleeping the
	// full remaining duration instead. Tests set this so a fake clock
	// that only advances via SleepFunc can terminate waitUntil
	// deterministically; production use leaves it false.
	DisableSpin bool
}

// Scheduler is the single dedicated real-time thread of spec.md §4.7
// and §5: it never awaits and never allocates after Run starts: period
// arithmetic is all int64, and Tick/Teardown are caller-supplied
// closures executed in-place.
type Scheduler struct {
	cfg  Config
	stop atomic.Bool
}

// NewScheduler constructs a Scheduler. A zero PeriodNs defaults to the
// nominal 1 kHz tick (spec.md §6 "nominal_tick_period_ns" default
// 1_000_000).
func NewScheduler(cfg Config) *Scheduler {
	if cfg.PeriodNs <= 0 {
		cfg.PeriodNs = 1_000_000
	}
	if cfg.NowFunc == nil {
		start := time.Now()
		cfg.NowFunc = func() int64 { return int64(time.Since(start)) }
	}
	if cfg.SleepFunc == nil {
		cfg.SleepFunc = time.Sleep
	}
	return &Scheduler{cfg: cfg}
}

// RequestStop sets the cooperative stop flag, observed at the top of
// the next tick boundary (spec.md §5 "bounded by one tick period").
func (s *Scheduler) RequestStop() {
	s.stop.Store(true)
}

// Run blocks, executing Tick once per period until RequestStop is
// called, then runs Teardown once and returns.
func (s *Scheduler) Run() {
	next := s.cfg.NowFunc() + s.cfg.PeriodNs
	for {
		if s.stop.Load() {
			if s.cfg.Teardown != nil {
				s.cfg.Teardown()
			}
			return
		}
		s.waitUntil(next)

		tickStart := s.cfg.NowFunc()
		s.cfg.Tick(tickStart)

		next += s.cfg.PeriodNs
		// A tick that overran its deadline by more than a full period
		// resyncs from now, rather than firing a burst of catch-up
		// ticks back-to-back.
		if tickStart > next {
			next = tickStart + s.cfg.PeriodNs
		}
	}
}

func (s *Scheduler) waitUntil(deadlineNs int64) {
	now := s.cfg.NowFunc()
	remaining := deadlineNs - now
	if remaining <= 0 {
		return
	}
	margin := int64(spinMarginNs)
	if s.cfg.DisableSpin {
		margin = 0
	}
	if remaining > margin {
		s.cfg.SleepFunc(time.Duration(remaining - margin))
	}
	for s.cfg.NowFunc() < deadlineNs {
		if s.stop.Load() {
			return
		}
	}
}
