package pipeline

// HandsOffConfig configures the hands-off damping stage: if the
// driver's hands stay off the wheel for longer than ThresholdNs, the
// output is dampened by DampingFactor to avoid uncontrolled
// oscillation (spec.md §4.6 "Hands-off damping").
type HandsOffConfig struct {
	ThresholdNs   int64
	DampingFactor float64
}

// handsOffState is the stage's small per-tick state: when the
// hands-off condition most recently began.
type handsOffState struct {
	sinceNs     int64
	wasHandsOff bool
}

func (h *handsOffState) apply(torqueNm float64, handsOff bool, nowNs int64, cfg HandsOffConfig) float64 {
	if !handsOff {
		h.wasHandsOff = false
		h.sinceNs = 0
		return torqueNm
	}
	if !h.wasHandsOff {
		h.wasHandsOff = true
		h.sinceNs = nowNs
	}
	if nowNs-h.sinceNs > cfg.ThresholdNs {
		return torqueNm * cfg.DampingFactor
	}
	return torqueNm
}
