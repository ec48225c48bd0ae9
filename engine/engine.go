// Package engine implements the orchestrator of spec.md §4.8: it owns
// and sequences every other component (ring, pipeline, interlock,
// watchdog, jitter meter, blackbox) behind the fixed per-tick sequence
// the spec names, driven by rt.Scheduler on its single dedicated
// real-time thread.
package engine

import (
	"errors"
	"math"
	"sync/atomic"
	"time"

	"ffbengine.dev/diagnostics"
	"ffbengine.dev/hid"
	"ffbengine.dev/internal/ffblog"
	"ffbengine.dev/jitter"
	"ffbengine.dev/mode"
	"ffbengine.dev/pipeline"
	"ffbengine.dev/ring"
	"ffbengine.dev/rt"
	"ffbengine.dev/safety"
	"ffbengine.dev/watchdog"

	"ffbengine.dev/frame"
)

// ErrNotRunning is returned by SendGameInput once the engine has
// stopped, or before Start has been called (spec.md §4.8
// "send_game_input ... Err(Full | NotRunning)").
var ErrNotRunning = errors.New("engine: not running")

// Engine owns and sequences the components named in spec.md §4.8. The
// exported methods are the only two execution domains of spec.md §5
// talking to each other: Start/Stop/SendGameInput/UpdateSafety/
// GetStats are the async-safe surface; everything else happens on the
// one real-time thread Start spawns.
type Engine struct {
	cfg    Config
	device hid.Device
	log    *ffblog.Logger

	pipeline  *pipeline.Pipeline
	interlock *safety.Interlock
	wd        watchdog.Watchdog
	gameRing  *ring.Ring
	jitterMtr *jitter.Meter
	blackbox  *diagnostics.Blackbox

	sched *rt.Scheduler
	mode  mode.FFBMode

	stats     statsBuffer
	telemetry telemetryBuffer

	seq atomic.Uint64

	running atomic.Bool
	stopped chan struct{}

	// commsSignalled and tempBitsC carry UpdateSafety's arguments
	// across to the RT thread, which is the only goroutine allowed to
	// touch the interlock (safety.Interlock's own doc comment:
	// "the async side signals the RT thread through the engine
	// orchestrator's atomics, which then invokes these methods
	// itself").
	commsSignalled atomic.Bool
	tempBitsC      atomic.Uint64

	nowFn   func() int64
	sleepFn func(time.Duration)
}

// New constructs an Engine bound to device, validating cfg against the
// device's capabilities (spec.md §4.8 "validates config: max torque ≤
// device max; safe ≤ max"). The engine is not yet ticking; call Start.
func New(device hid.Device, cfg Config, wd watchdog.Watchdog, log *ffblog.Logger) (*Engine, error) {
	caps := device.Capabilities()
	if err := cfg.validate(caps); err != nil {
		return nil, err
	}
	cfg = cfg.resolved()
	if log == nil {
		log = ffblog.L
	}

	faultLog := safety.NewFaultLog(cfg.FaultLogCapacity)
	if wd == nil {
		wd = watchdog.NewSoftware(cfg.WatchdogTimeoutMs * 1_000_000)
	}
	interlock := safety.New(safety.Config{
		MaxTorqueNm:    cfg.MaxHighTorqueNm,
		SafeModeLimitNm: cfg.MaxSafeTorqueNm,
		CommsTimeoutNs: cfg.CommsTimeoutMs * 1_000_000,
	}, wd, faultLog)

	pl := pipeline.New(pipeline.Config{
		Curve:          cfg.Curve,
		Notches:        cfg.Notches,
		SampleRateHz:   1e9 / float64(cfg.NominalTickPeriodNs),
		SlewRateNmPerS: cfg.SlewRateNmPerS,
		Bumpstop:       cfg.Bumpstop,
		HandsOff:       cfg.HandsOff,
		MaxTorqueNm:    cfg.MaxHighTorqueNm,
	})

	gameRing := ring.New(cfg.RingCapacity)
	if !gameRing.AttachProducer() {
		// Unreachable for a freshly constructed ring; guarded so a
		// future refactor that reuses rings can't silently violate
		// the single-producer rule (spec.md §5).
		return nil, errors.New("engine: ring already has a producer attached")
	}

	selectedMode := mode.Select(caps, cfg.ModeOverride)

	var bb *diagnostics.Blackbox
	if cfg.BlackboxEnabled {
		bb = diagnostics.NewBlackbox(cfg.BlackboxCapacity)
	}

	start := time.Now()
	e := &Engine{
		cfg:       cfg,
		device:    device,
		log:       log,
		pipeline:  pl,
		interlock: interlock,
		wd:        wd,
		gameRing:  gameRing,
		jitterMtr: jitter.New(cfg.NominalTickPeriodNs),
		blackbox:  bb,
		mode:      selectedMode,
		stopped:   make(chan struct{}),
		nowFn:     func() int64 { return int64(time.Since(start)) },
		sleepFn:   time.Sleep,
	}
	return e, nil
}

// Start spawns the real-time thread and the fixed-period scheduler
// that drives it (spec.md §4.8 "start(device): spawns the RT thread
// and the async bridge"). It returns once the thread is launched; it
// does not block for the thread's lifetime.
func (e *Engine) Start() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	if e.cfg.RTRequestHighPriority {
		if err := rt.RequestRealtimePriority(); err != nil {
			e.log.Warning().Err(err).Log("engine: realtime priority request failed, continuing")
		}
	}
	if e.cfg.RTLockMemory {
		if err := rt.LockMemory(); err != nil {
			e.log.Warning().Err(err).Log("engine: memory lock request failed, continuing")
		}
	}

	_ = e.wd.Arm(e.nowFn())

	e.sched = rt.NewScheduler(rt.Config{
		PeriodNs:  e.cfg.NominalTickPeriodNs,
		NowFunc:   e.nowFn,
		SleepFunc: e.sleepFn,
		Tick:      e.tick,
		Teardown:  e.teardown,
	})

	go func() {
		defer close(e.stopped)
		e.sched.Run()
	}()
}

// Stop signals the RT loop and blocks until it has torn down (spec.md
// §4.8 "stop(): signals the RT loop and joins").
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	e.sched.RequestStop()
	<-e.stopped
}

// SendGameInput delivers one GameInput to the RT thread,
// non-blocking. It returns ErrNotRunning before Start or after Stop,
// and a *ring.FullError (its Item field carries the rejected input)
// when the ring has no free slot (spec.md §4.8 "send_game_input: Ok |
// Err(Full | NotRunning)").
func (e *Engine) SendGameInput(in ring.GameInput) error {
	if !e.running.Load() {
		return ErrNotRunning
	}
	return e.gameRing.TryPush(in)
}

// UpdateSafety signals the RT thread with a fresh comms observation
// and the device's current temperature (spec.md §4.8 "update_safety:
// updates last-comms timestamp and may raise ThermalLimit fault if
// temp exceeds a threshold"). It never touches the interlock directly;
// the RT thread applies both at the top of its next tick.
func (e *Engine) UpdateSafety(commsOk bool, tempC float64) {
	if commsOk {
		e.commsSignalled.Store(true)
	}
	e.tempBitsC.Store(math.Float64bits(tempC))
}

// GetStats returns a snapshot of the engine's current statistics
// (spec.md §4.8 "get_stats: snapshot including jitter, safety state,
// dropped frames").
func (e *Engine) GetStats() Stats {
	return e.stats.load()
}

// Mode returns the FFBMode selected at construction (spec.md §4.11).
func (e *Engine) Mode() mode.FFBMode { return e.mode }

// FaultLog exposes the interlock's fault log for diagnostics export.
func (e *Engine) FaultLog() *safety.FaultLog { return e.interlock.FaultLog() }

// Blackbox exposes the blackbox sink for diagnostics export; nil if
// BlackboxEnabled was false.
func (e *Engine) Blackbox() *diagnostics.Blackbox { return e.blackbox }

// tick runs the fixed eight-step sequence of spec.md §4.8, invoked
// once per period by rt.Scheduler on the real-time thread. It never
// returns an error (spec.md §7): every failure mode is folded into the
// safety interlock's fault handling instead.
func (e *Engine) tick(nowNs int64) {
	// 1. Pop latest game input, coalescing stale items.
	in, gotInput := e.gameRing.DrainLatest()

	// 2. Read and validate device telemetry, store in the single-slot
	// double buffer. A non-finite sample is a device fault, not a
	// silent drop (spec.md §7 "encoder NaN ... treated as report_fault
	// inputs"); the torque value isn't known yet at this point in the
	// tick, so it's reported as 0, the same placeholder the thermal
	// check below uses.
	if telem, ok := e.device.ReadTelemetry(); ok {
		if telemetryFinite(telem) {
			e.telemetry.store(telem)
		} else {
			e.interlock.ReportFault(safety.FaultEncoderNaN, 0, "non-finite device telemetry", nowNs)
		}
	}
	telem, haveTelem := e.telemetry.load()

	if gotInput {
		e.interlock.RecordComms(nowNs)
	}
	if e.commsSignalled.Swap(false) {
		e.interlock.RecordComms(nowNs)
	}

	// Thermal fault check, driven by the last UpdateSafety call.
	tempC := math.Float64frombits(e.tempBitsC.Load())
	if tempC > e.cfg.ThermalLimitC {
		e.interlock.ReportFault(safety.FaultThermalLimit, 0, "device temperature exceeds limit", nowNs)
	}

	// 3. Sanitize ffb_scalar and 4. construct the Frame.
	f := frame.Frame{
		FFBInput: sanitizeScalar(in.FFBScalar),
		HandsOff: in.HandsOff,
		TsMonoNs: nowNs,
		Seq:      e.seq.Add(1),
	}
	if haveTelem {
		f.WheelAngleRad = telem.WheelAngleRad
		f.WheelSpeedRadS = telem.WheelSpeedRadS
	} else {
		f.WheelSpeedRadS = in.WheelSpeed
	}

	// 5. Pipeline processes the Frame.
	e.pipeline.Process(&f)

	// 6. Safety interlock consumes pipeline output; the emitted torque
	// is what is written to HID.
	result := e.interlock.Tick(f.TorqueOutNm, nowNs)
	f.TorqueOutNm = result.TorqueNm

	if err := e.device.WriteFFB(f.TorqueOutNm, f.Seq); err != nil {
		e.interlock.ReportFault(safety.FaultUsbStall, f.TorqueOutNm, writeFaultDescription(err), nowNs)
	}

	// 7. Blackbox append, if enabled.
	if e.blackbox != nil {
		e.blackbox.Append(diagnostics.EntryFromTick(f.Seq, f.TsMonoNs, f.FFBInput, f.TorqueOutNm, f.WheelSpeedRadS, f.WheelAngleRad, f.HandsOff, result.State, result.Fault))
	}

	// 8. Jitter meter update.
	e.jitterMtr.Feed(nowNs)

	e.stats.store(Stats{
		DroppedFrames: e.gameRing.DroppedFrames(),
		Jitter:        e.jitterMtr.Snapshot(),
		SafetyState:   result.State,
		FaultsLogged:  e.interlock.FaultLog().NextIndex(),
		Violations:    e.interlock.Violations(),
		Mode:          e.mode.String(),
	})
}

// teardown runs once, after RequestStop is observed: it commands zero
// torque, disarms the watchdog, and leaves a final stats snapshot for
// the async side to read (spec.md §4.7 "zero-torque command to
// device, disarm watchdog, flush stats").
func (e *Engine) teardown() {
	_ = e.device.WriteFFB(0, e.seq.Load())
	e.wd.Disarm()
	e.stats.store(Stats{
		DroppedFrames: e.gameRing.DroppedFrames(),
		Jitter:        e.jitterMtr.Snapshot(),
		SafetyState:   e.interlock.State(),
		FaultsLogged:  e.interlock.FaultLog().NextIndex(),
		Violations:    e.interlock.Violations(),
		Mode:          e.mode.String(),
	})
}

func sanitizeScalar(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return 1
	case math.IsInf(v, -1):
		return -1
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}

func telemetryFinite(t hid.DeviceTelemetry) bool {
	return !math.IsNaN(t.WheelAngleRad) && !math.IsInf(t.WheelAngleRad, 0) &&
		!math.IsNaN(t.WheelSpeedRadS) && !math.IsInf(t.WheelSpeedRadS, 0) &&
		!math.IsNaN(t.TemperatureC) && !math.IsInf(t.TemperatureC, 0)
}

func writeFaultDescription(err error) string {
	if errors.Is(err, hid.ErrDisconnected) {
		return "write_ffb: device disconnected"
	}
	return "write_ffb: " + err.Error()
}
