package rt

import (
	"testing"
	"time"
)

// fakeClock lets Run's loop be driven deterministically: SleepFunc
// jumps the clock forward by exactly the requested duration instead of
// actually waiting, the injectable-clock approach original_source's
// hil_tests.rs uses for hardware-in-the-loop timing assertions.
type fakeClock struct {
	nowNs int64
}

func (c *fakeClock) now() int64 { return c.nowNs }

func (c *fakeClock) sleep(d time.Duration) {
	c.nowNs += int64(d)
}

func TestSchedulerTicksAtNominalPeriod(t *testing.T) {
	clock := &fakeClock{}
	var ticks []int64
	var sched *Scheduler
	sched = NewScheduler(Config{
		PeriodNs:    1_000_000,
		NowFunc:     clock.now,
		DisableSpin: true,
		SleepFunc: func(d time.Duration) {
			clock.sleep(d)
		},
		Tick: func(nowNs int64) {
			ticks = append(ticks, nowNs)
			if len(ticks) >= 5 {
				sched.RequestStop()
			}
		},
	})
	sched.Run()

	if len(ticks) != 5 {
		t.Fatalf("ticks = %d, want 5", len(ticks))
	}
	for i := 1; i < len(ticks); i++ {
		delta := ticks[i] - ticks[i-1]
		if delta != 1_000_000 {
			t.Fatalf("tick %d delta = %d, want 1_000_000", i, delta)
		}
	}
}

func TestSchedulerRunsTeardownOnStop(t *testing.T) {
	clock := &fakeClock{}
	torn := false
	var sched *Scheduler
	sched = NewScheduler(Config{
		PeriodNs:    1_000_000,
		NowFunc:     clock.now,
		DisableSpin: true,
		SleepFunc:   clock.sleep,
		Tick:        func(nowNs int64) { sched.RequestStop() },
		Teardown:  func() { torn = true },
	})
	sched.Run()
	if !torn {
		t.Fatal("Teardown was not called")
	}
}

func TestSchedulerResyncsAfterOverrun(t *testing.T) {
	clock := &fakeClock{}
	count := 0
	var sched *Scheduler
	sched = NewScheduler(Config{
		PeriodNs:    1_000_000,
		NowFunc:     clock.now,
		DisableSpin: true,
		SleepFunc:   clock.sleep,
		Tick: func(nowNs int64) {
			count++
			// Simulate a tick that runs long, well past the next
			// nominal deadline.
			clock.nowNs += 5_000_000
			if count >= 2 {
				sched.RequestStop()
			}
		},
	})
	sched.Run()
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}
