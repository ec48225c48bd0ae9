package pipeline

import (
	"errors"
	"math"
)

// CurvePoint is one control point of a response curve.
type CurvePoint struct {
	X, Y float64
}

// ResponseCurve is a monotonic piecewise-linear mapping from the
// normalized magnitude of the FFB input to a normalized output
// magnitude (spec.md §4.6 "Response curve"). Apply preserves the sign
// of the input; the control points themselves only cover [0, 1].
type ResponseCurve struct {
	points []CurvePoint
}

// ErrInvalidCurve is returned by NewResponseCurve when the control
// points don't satisfy 0 <= x0 < x1 < ... <= 1 with monotonic y.
var ErrInvalidCurve = errors.New("pipeline: response curve control points must have strictly increasing x in [0,1] and non-decreasing y")

// DefaultResponseCurve is the two-point linear identity curve
// (spec.md §4.6 "two-point default = linear identity").
func DefaultResponseCurve() *ResponseCurve {
	c, _ := NewResponseCurve([]CurvePoint{{X: 0, Y: 0}, {X: 1, Y: 1}})
	return c
}

// NewResponseCurve validates and constructs a ResponseCurve. Invalid
// control points are rejected at this boundary, per spec.md §7
// ("reject at boundary; engine never starts with invalid config").
func NewResponseCurve(points []CurvePoint) (*ResponseCurve, error) {
	if len(points) < 2 {
		return nil, ErrInvalidCurve
	}
	for i, p := range points {
		if p.X < 0 || p.X > 1 {
			return nil, ErrInvalidCurve
		}
		if i > 0 {
			if p.X <= points[i-1].X {
				return nil, ErrInvalidCurve
			}
			if p.Y < points[i-1].Y {
				return nil, ErrInvalidCurve
			}
		}
	}
	cp := make([]CurvePoint, len(points))
	copy(cp, points)
	return &ResponseCurve{points: cp}, nil
}

// Apply maps a signed unit scalar in [-1, 1] through the curve,
// preserving sign.
func (c *ResponseCurve) Apply(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}
	if x > 1 {
		x = 1
	}
	pts := c.points
	if x <= pts[0].X {
		return sign * pts[0].Y
	}
	last := pts[len(pts)-1]
	if x >= last.X {
		return sign * last.Y
	}
	for i := 1; i < len(pts); i++ {
		if x <= pts[i].X {
			p0, p1 := pts[i-1], pts[i]
			t := (x - p0.X) / (p1.X - p0.X)
			return sign * (p0.Y + t*(p1.Y-p0.Y))
		}
	}
	return sign * last.Y
}

// sanitizeUnitScalar clamps a signed unit scalar, replacing NaN with
// 0 and ±Inf with ±1, per the engine's sanitization contract (spec.md
// §4.8 step 3) re-applied defensively inside the pipeline so Process
// stays total even if called directly.
func sanitizeUnitScalar(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case math.IsInf(x, 1):
		return 1
	case math.IsInf(x, -1):
		return -1
	case x > 1:
		return 1
	case x < -1:
		return -1
	default:
		return x
	}
}
