package pipeline

import "math"

// NotchConfig describes one biquad band-reject filter (spec.md §4.6
// "Notch filters"): a frequency in Hz, a Q factor, and a gain in dB
// that controls the depth of the rejection (0 dB = no effect, more
// negative = deeper notch).
type NotchConfig struct {
	FreqHz float64
	Q      float64
	GainDB float64
}

// NotchFilter is a single biquad band-reject filter in Direct Form 1,
// using the RBJ Audio EQ Cookbook peaking-EQ coefficients so GainDB
// controls rejection depth rather than a full null (spec.md §4.6
// lists frequency/Q/gain as the three parameters). It keeps two
// samples of input and output history, as spec.md §4.6 requires.
type NotchFilter struct {
	b0, b1, b2 float64
	a1, a2     float64

	x1, x2 float64
	y1, y2 float64
}

// NewNotchFilter computes the filter coefficients for the given
// sample rate. sampleRateHz must be positive and greater than
// 2*cfg.FreqHz (Nyquist).
func NewNotchFilter(cfg NotchConfig, sampleRateHz float64) *NotchFilter {
	w0 := 2 * math.Pi * cfg.FreqHz / sampleRateHz
	alpha := math.Sin(w0) / (2 * cfg.Q)
	cosw0 := math.Cos(w0)
	a := math.Pow(10, cfg.GainDB/40)

	b0 := 1 + alpha*a
	b1 := -2 * cosw0
	b2 := 1 - alpha*a
	a0 := 1 + alpha/a
	a1 := -2 * cosw0
	a2 := 1 - alpha/a

	return &NotchFilter{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

// Step processes a single sample through the filter.
func (n *NotchFilter) Step(x float64) float64 {
	y := n.b0*x + n.b1*n.x1 + n.b2*n.x2 - n.a1*n.y1 - n.a2*n.y2
	n.x2, n.x1 = n.x1, x
	n.y2, n.y1 = n.y1, y
	if math.IsNaN(y) || math.IsInf(y, 0) {
		// Keep internal state finite (spec.md §4.6 "all internal
		// state remains finite") by resetting on any pathological
		// input rather than propagating NaN/Inf through history.
		n.x1, n.x2, n.y1, n.y2 = 0, 0, 0, 0
		return 0
	}
	return y
}
