// Package pipeline implements the FFB math and the stateful filter
// chain of spec.md §4.6, in the fixed order: raw → curve → notches →
// slew → bumpstop → hands-off.
package pipeline

import (
	"math"

	"ffbengine.dev/frame"
)

// Config holds the (validated) tuning for a Pipeline.
type Config struct {
	Curve          *ResponseCurve
	Notches        []NotchConfig
	SampleRateHz   float64
	SlewRateNmPerS float64
	Bumpstop       BumpstopConfig
	HandsOff       HandsOffConfig
	MaxTorqueNm    float64
}

// Pipeline is the stateful-per-tick FFB processor. It is owned
// exclusively by the real-time thread (spec.md §3); construct one per
// engine and call Process once per tick.
type Pipeline struct {
	curve    *ResponseCurve
	notches  []*NotchFilter
	slew     *SlewLimiter
	bumpstop BumpstopConfig
	handsoff HandsOffConfig
	handsOff handsOffState
	maxNm    float64

	lastTickNs int64
	seeded     bool
}

// New constructs a Pipeline from Config. A nil Curve defaults to the
// linear identity (spec.md §4.6).
func New(cfg Config) *Pipeline {
	curve := cfg.Curve
	if curve == nil {
		curve = DefaultResponseCurve()
	}
	notches := make([]*NotchFilter, len(cfg.Notches))
	sr := cfg.SampleRateHz
	if sr <= 0 {
		sr = 1000 // nominal 1 kHz loop
	}
	for i, nc := range cfg.Notches {
		notches[i] = NewNotchFilter(nc, sr)
	}
	return &Pipeline{
		curve:    curve,
		notches:  notches,
		slew:     NewSlewLimiter(cfg.SlewRateNmPerS),
		bumpstop: cfg.Bumpstop,
		handsoff: cfg.HandsOff,
		maxNm:    cfg.MaxTorqueNm,
	}
}

// Process runs the fixed pipeline order against f, reading
// f.FFBInput, f.WheelAngleRad, f.HandsOff, and f.TsMonoNs, and writing
// f.TorqueOutNm. Process is total: it never returns an error, it
// sanitizes any non-finite input to 0 (or ±1 for the unit-scalar
// input) before it reaches any stage, and every stage keeps its
// internal state finite (spec.md §4.6 "The pipeline's process(&mut
// frame) is total").
func (p *Pipeline) Process(f *frame.Frame) {
	raw := sanitizeUnitScalar(f.FFBInput)

	// curve
	curved := p.curve.Apply(raw)

	// scale the normalized, curved value into newton-metres; every
	// stage from here on operates in the Nm domain the bumpstop and
	// slew parameters are specified in.
	torque := curved * p.maxNm

	// notches
	for _, n := range p.notches {
		torque = n.Step(torque)
	}

	// slew
	dtSec := p.dtSeconds(f.TsMonoNs)
	torque = p.slew.Step(torque, dtSec)

	// bumpstop
	torque = applyBumpstop(torque, f.WheelAngleRad, p.bumpstop)

	// hands-off
	torque = p.handsOff.apply(torque, f.HandsOff, f.TsMonoNs, p.handsoff)

	if math.IsNaN(torque) || math.IsInf(torque, 0) {
		torque = 0
	}
	f.TorqueOutNm = torque
}

func (p *Pipeline) dtSeconds(nowNs int64) float64 {
	if !p.seeded {
		p.seeded = true
		p.lastTickNs = nowNs
		return 1.0 / 1000 // assume nominal period for the first tick
	}
	dtNs := nowNs - p.lastTickNs
	p.lastTickNs = nowNs
	if dtNs <= 0 {
		return 0
	}
	return float64(dtNs) / 1e9
}
