package pipeline

import "math"

// BumpstopConfig configures the progressive return-to-centre term
// added beyond StartAngleRad (spec.md §4.6 "Bumpstop").
type BumpstopConfig struct {
	StartAngleRad float64
	MaxAngleRad   float64
	MaxTorqueNm   float64
}

// applyBumpstop adds a return-to-centre term to torqueNm when |angleRad|
// exceeds cfg.StartAngleRad, scaled by
// (angle - start) / (max - start) clipped to [0, 1] (spec.md §4.6).
func applyBumpstop(torqueNm, angleRad float64, cfg BumpstopConfig) float64 {
	mag := math.Abs(angleRad)
	if mag <= cfg.StartAngleRad || cfg.MaxTorqueNm == 0 {
		return torqueNm
	}
	span := cfg.MaxAngleRad - cfg.StartAngleRad
	frac := 1.0
	if span > 0 {
		frac = (mag - cfg.StartAngleRad) / span
	}
	frac = clip01(frac)

	sign := 1.0
	if angleRad > 0 {
		sign = -1.0
	}
	return torqueNm + sign*frac*cfg.MaxTorqueNm
}

func clip01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
