// Package safety implements the hierarchical safety interlock of
// spec.md §4.5: a composition of the watchdog, the torque limiter,
// and a closed-state-machine that gates every torque value emitted to
// the device.
package safety

import (
	"errors"
	"time"

	"ffbengine.dev/limiter"
	"ffbengine.dev/watchdog"
)

// Config configures an Interlock. Zero-value SafeModeLimitNm defaults
// to 0.2 * MaxTorqueNm (spec.md §4.5); zero-value MinHoldNs defaults
// to 100ms (spec.md §4.5, invariant 9 of spec.md §8).
type Config struct {
	MaxTorqueNm     float64
	SafeModeLimitNm float64
	CommsTimeoutNs  int64
	MinHoldNs       int64
}

const defaultMinHoldNs = 100_000_000

func (c Config) resolved() Config {
	if c.SafeModeLimitNm == 0 {
		c.SafeModeLimitNm = 0.2 * c.MaxTorqueNm
	}
	if c.MinHoldNs == 0 {
		c.MinHoldNs = defaultMinHoldNs
	}
	return c
}

// TickResult is the per-tick output of the interlock (spec.md §4.5).
type TickResult struct {
	TorqueNm      float64
	State         State
	ResponseNs    int64
	FaultOccurred bool
	Fault         FaultType
}

// ErrMinHold is returned by ClearFault when invoked before MinHoldNs
// have elapsed in SafeMode (spec.md §8 invariant 9).
var ErrMinHold = errors.New("safety: minimum hold not elapsed")

// ErrNotClearable is returned by ClearFault from any state other than
// SafeMode — notably EmergencyStop, which only Reset can clear
// (spec.md §8 invariant 10).
var ErrNotClearable = errors.New("safety: not clearable from current state")

// Interlock composes a watchdog, a torque limiter, and the safety
// state machine. It is owned exclusively by the real-time thread
// (spec.md §3 "Ownership"); ReportFault/EmergencyStop/ClearFault/Reset
// must only be called from that thread — the async side signals the
// RT thread through the engine orchestrator's atomics, which then
// invokes these methods itself.
type Interlock struct {
	cfg Config
	wd  watchdog.Watchdog
	lim *limiter.Limiter
	log *FaultLog

	state       State
	lastCommsNs int64
	haveComms   bool
}

// New constructs an Interlock. wd must already be armed by the caller
// before the first Tick; start-up sequencing is the caller's
// responsibility, not this constructor's.
func New(cfg Config, wd watchdog.Watchdog, log *FaultLog) *Interlock {
	return &Interlock{
		cfg:   cfg.resolved(),
		wd:    wd,
		lim:   limiter.New(),
		log:   log,
		state: Normal(),
	}
}

// State returns the interlock's current safety state.
func (i *Interlock) State() State { return i.state }

// Violations returns the limiter's cumulative clamp count.
func (i *Interlock) Violations() uint64 { return i.lim.Violations() }

// RecordComms must be called whenever the engine observes fresh
// device communication (spec.md §4.8 step 2 / §4.5 step 2), feeding
// the comms-timeout branch of Tick.
func (i *Interlock) RecordComms(nowNs int64) {
	i.lastCommsNs = nowNs
	i.haveComms = true
}

// Tick runs the ordered safety algorithm of spec.md §4.5 against a
// single requested torque value, already sanitized of NaN/±Inf by the
// caller (the engine), and returns the torque to write to the device.
func (i *Interlock) Tick(requestedTorqueNm float64, nowNs int64) TickResult {
	start := time.Now()

	// EmergencyStop is irrevocable except via Reset: it overrides
	// every other branch (spec.md §8 invariant 4).
	if i.state.Kind == KindEmergencyStop {
		return TickResult{TorqueNm: 0, State: i.state, ResponseNs: time.Since(start).Nanoseconds()}
	}

	// 1. Watchdog timeout.
	if i.wd.HasTimedOut(nowNs) {
		return i.enterSafeMode(TriggerWatchdogTimeout, FaultSafetyInterlockViolation, nowNs, start)
	}

	// 2. Communication timeout.
	if i.cfg.CommsTimeoutNs > 0 && i.haveComms && nowNs-i.lastCommsNs > i.cfg.CommsTimeoutNs {
		return i.enterSafeMode(TriggerCommunicationLoss, FaultUsbStall, nowNs, start)
	}

	// 3. Feed the watchdog.
	if err := i.wd.Feed(nowNs); err != nil {
		if errors.Is(err, watchdog.ErrTimedOut) {
			return i.enterSafeMode(TriggerWatchdogTimeout, FaultSafetyInterlockViolation, nowNs, start)
		}
		return i.enterSafeMode(TriggerFaultDetected, FaultSafetyInterlockViolation, nowNs, start)
	}

	// 4. Apply torque limits per current state.
	limit := i.activeLimit()
	clamped, _ := i.lim.Clamp(requestedTorqueNm, limit)

	return TickResult{
		TorqueNm:   clamped,
		State:      i.state,
		ResponseNs: time.Since(start).Nanoseconds(),
	}
}

// ActiveLimit returns the torque limit presently enforced for the
// current state, per spec.md §4.5 step 4.
func (i *Interlock) ActiveLimit() float64 { return i.activeLimit() }

// activeLimit resolves spec.md §4.5 step 4. Branches 1-3 of Tick
// already return 0 directly for every case that places the interlock
// into SafeMode, so by construction SafeMode is always a zero-torque
// state by the time step 4 would run for it; Warning alone carries a
// reduced-but-nonzero limit, matching invariant 3 of spec.md §8
// ("emitted_torque(t) = 0" for every tick following a report_fault,
// which always lands in SafeMode, until clear_fault succeeds). See
// DESIGN.md for the full resolution of this ambiguity in spec.md §4.5.
func (i *Interlock) activeLimit() float64 {
	switch i.state.Kind {
	case KindNormal:
		return i.cfg.MaxTorqueNm
	case KindWarning:
		return i.cfg.SafeModeLimitNm
	default: // SafeMode, EmergencyStop, Faulted
		return 0
	}
}

func (i *Interlock) enterSafeMode(trigger Trigger, fault FaultType, nowNs int64, start time.Time) TickResult {
	if i.state.Kind != KindSafeMode || i.state.Trigger != trigger {
		i.state = SafeMode(trigger, nowNs)
		i.log.Append(FaultEntry{
			TsMonoNs:    nowNs,
			Fault:       fault,
			Trigger:     trigger,
			ResponseNs:  time.Since(start).Nanoseconds(),
			Description: "entered safe mode: " + trigger.String(),
		})
	}
	return TickResult{
		TorqueNm:      0,
		State:         i.state,
		ResponseNs:    time.Since(start).Nanoseconds(),
		FaultOccurred: true,
		Fault:         fault,
	}
}

// ReportFault transitions unconditionally to SafeMode{FaultDetected},
// always logging the fault (spec.md §4.5 "State transitions").
func (i *Interlock) ReportFault(fault FaultType, torqueAtFaultNm float64, description string, nowNs int64) {
	i.state = SafeModeFault(fault, nowNs)
	i.log.Append(FaultEntry{
		TsMonoNs:        nowNs,
		Fault:           fault,
		Trigger:         TriggerFaultDetected,
		TorqueAtFaultNm: torqueAtFaultNm,
		Description:     description,
	})
}

// EmergencyStop latches the interlock into EmergencyStop. It is
// irrevocable except via Reset (spec.md §8 invariant 10).
func (i *Interlock) EmergencyStop(nowNs int64) {
	i.state = EmergencyStop(nowNs)
	i.log.Append(FaultEntry{
		TsMonoNs:    nowNs,
		Fault:       FaultSafetyInterlockViolation,
		Trigger:     TriggerManual,
		Description: "emergency stop engaged",
	})
}

// ClearFault returns the interlock to Normal from SafeMode, but only
// once at least cfg.MinHoldNs have elapsed in that state (spec.md §4.5
// "clear_fault() permitted only from SafeMode..."). EmergencyStop can
// never be cleared this way (spec.md §8 invariant 10); use Reset.
func (i *Interlock) ClearFault(nowNs int64) error {
	if i.state.Kind != KindSafeMode {
		return ErrNotClearable
	}
	if i.state.HeldFor(nowNs) < i.cfg.MinHoldNs {
		return ErrMinHold
	}
	i.state = Normal()
	return nil
}

// Reset unconditionally returns the interlock to Normal — the only
// way to clear EmergencyStop (spec.md §4.5). Rearming the watchdog is
// left to the caller.
func (i *Interlock) Reset() {
	i.state = Normal()
}

// FaultLog exposes the interlock's fault log for export.
func (i *Interlock) FaultLog() *FaultLog { return i.log }
