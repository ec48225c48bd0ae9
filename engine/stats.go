package engine

import (
	"sync/atomic"

	"ffbengine.dev/hid"
	"ffbengine.dev/jitter"
	"ffbengine.dev/safety"
)

// Stats is the engine's copy-on-read snapshot, returned by GetStats
// (spec.md §4.8 "get_stats() → Stats: snapshot including jitter,
// safety state, dropped frames").
type Stats struct {
	DroppedFrames uint64
	Jitter        jitter.Snapshot
	SafetyState   safety.State
	FaultsLogged  uint64
	Violations    uint64
	Mode          string
}

// statsBuffer is the RT-writes/async-reads double buffer named in
// spec.md §3's Ownership rule: the RT thread writes a snapshot once
// per tick into whichever slot isn't current, then atomically flips
// the front index, the same swap jitter.Meter uses for its sorted
// reservoir (jitter/jitter.go's sorted/front fields), so neither side
// ever blocks the other or observes a torn value.
type statsBuffer struct {
	back  [2]Stats
	front atomic.Uint32
}

func (b *statsBuffer) store(s Stats) {
	next := 1 - b.front.Load()
	b.back[next] = s
	b.front.Store(next)
}

func (b *statsBuffer) load() Stats {
	return b.back[b.front.Load()]
}

// telemetryBuffer is the "single-slot double buffer" spec.md §4.8
// step 2 names for device telemetry landing mid-tick-sequence: the RT
// thread stores the latest validated sample, and whichever later
// stage of the same tick (or a future one) needs wheel kinematics
// reads it back, always getting a complete, non-torn value, with no
// mutex on the round trip.
type telemetryBuffer struct {
	back  [2]hid.DeviceTelemetry
	have  atomic.Bool
	front atomic.Uint32
}

func (b *telemetryBuffer) store(t hid.DeviceTelemetry) {
	next := 1 - b.front.Load()
	b.back[next] = t
	b.front.Store(next)
	b.have.Store(true)
}

func (b *telemetryBuffer) load() (hid.DeviceTelemetry, bool) {
	return b.back[b.front.Load()], b.have.Load()
}
