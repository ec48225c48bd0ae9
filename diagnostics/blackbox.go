// Package diagnostics implements the blackbox sink of spec.md §4.12:
// a fixed-capacity ring of frame snapshots, kept distinct from the
// safety fault log (see safety.FaultLog and DESIGN.md's "Blackbox vs
// fault log" resolution), plus the out-of-band CBOR export path for
// both.
package diagnostics

import (
	"sync/atomic"

	"ffbengine.dev/safety"
)

// BlackboxEntry is one recent-frame snapshot: the state of a Frame
// after the full engine tick, plus the safety state and fault (if
// any) the interlock reported for that tick.
type BlackboxEntry struct {
	Seq            uint64  `cbor:"1,keyasint"`
	TsMonoNs       int64   `cbor:"2,keyasint"`
	FFBInput       float64 `cbor:"3,keyasint"`
	TorqueOutNm    float64 `cbor:"4,keyasint"`
	WheelSpeedRadS float64 `cbor:"5,keyasint"`
	WheelAngleRad  float64 `cbor:"6,keyasint"`
	HandsOff       bool    `cbor:"7,keyasint"`
	SafetyState    string  `cbor:"8,keyasint"`
	Fault          string  `cbor:"9,keyasint"`
}

// EntryFromTick builds a BlackboxEntry from a completed tick. state
// and fault are pre-rendered to strings because safety.State and
// safety.FaultType carry no CBOR tags of their own and the blackbox
// is an export format, not an in-process type.
func EntryFromTick(seq uint64, tsMonoNs int64, ffbInput, torqueOutNm, wheelSpeedRadS, wheelAngleRad float64, handsOff bool, state safety.State, fault safety.FaultType) BlackboxEntry {
	return BlackboxEntry{
		Seq:            seq,
		TsMonoNs:       tsMonoNs,
		FFBInput:       ffbInput,
		TorqueOutNm:    torqueOutNm,
		WheelSpeedRadS: wheelSpeedRadS,
		WheelAngleRad:  wheelAngleRad,
		HandsOff:       handsOff,
		SafetyState:    state.Kind.String(),
		Fault:          fault.String(),
	}
}

// Blackbox is a fixed-capacity ring of BlackboxEntry, overwriting the
// oldest entry when full, mirroring safety.FaultLog's wraparound
// shape and its atomic single-producer discipline (spec.md §4.12
// "Fixed-capacity ring of frame snapshots"). Append is allocation-free
// and safe to call from the real-time tick; it is the ring's only
// producer. Len/Capacity/Entries are the async-side consumer and
// tolerate the usual lock-free-ring snapshot race against a
// concurrent Append, the same way ring.Ring's DrainLatest does.
type Blackbox struct {
	entries   []BlackboxEntry
	nextIndex atomic.Uint64
}

// NewBlackbox constructs a Blackbox with the given capacity.
func NewBlackbox(capacity int) *Blackbox {
	if capacity <= 0 {
		capacity = 1
	}
	return &Blackbox{entries: make([]BlackboxEntry, capacity)}
}

// Append records e, overwriting the oldest entry if the ring is full.
func (b *Blackbox) Append(e BlackboxEntry) {
	idx := b.nextIndex.Load() % uint64(len(b.entries))
	b.entries[idx] = e
	b.nextIndex.Add(1) // release: publishes the new entry to readers
}

// Len returns the number of valid entries currently held.
func (b *Blackbox) Len() int {
	n := b.nextIndex.Load()
	if n >= uint64(len(b.entries)) {
		return len(b.entries)
	}
	return int(n)
}

// Capacity returns the blackbox's fixed capacity.
func (b *Blackbox) Capacity() int { return len(b.entries) }

// Entries returns a copy of the currently held entries, oldest first.
func (b *Blackbox) Entries() []BlackboxEntry {
	n := len(b.entries)
	next := b.nextIndex.Load() // acquire: paired with Append's release
	if next < uint64(n) {
		out := make([]BlackboxEntry, next)
		copy(out, b.entries[:next])
		return out
	}
	out := make([]BlackboxEntry, n)
	start := int(next % uint64(n))
	copy(out, b.entries[start:])
	copy(out[n-start:], b.entries[:start])
	return out
}
