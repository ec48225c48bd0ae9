// Package jitter tracks inter-tick latency for the real-time engine
// loop: the running maximum deviation from the nominal period, a
// p50/p99 estimate, and a missed-tick count (spec.md §4.2).
package jitter

import "sort"

// Sample is a single tick-to-tick measurement.
type Sample struct {
	DeltaNs int64
	Missed  bool
}

// Snapshot is a lock-free, allocation-free copy of the meter's current
// statistics, suitable for the async side's copy-on-read stats buffer
// (spec.md §3 "Ownership").
type Snapshot struct {
	MaxNs       int64
	P50Ns       int64
	P99Ns       int64
	SampleCount uint64
	MissedTicks uint64
}

// reservoirSize bounds the reservoir to 4 KiB of int64 samples, per
// spec.md §4.2 ("sized ≤ 4 KiB"); the meter's two sorted copies of it
// take another 4 KiB each.
const reservoirSize = 512

// Meter is fed once per RT tick and never allocates after
// construction. It double-buffers its sorted reservoir so that Snapshot
// can take a lock-free snapshot of the last fully-settled buffer
// while Feed keeps filling the active one.
type Meter struct {
	nominalPeriodNs int64

	seeded     bool
	lastTickNs int64
	maxNs      int64
	count      uint64
	missed     uint64

	reservoir    [reservoirSize]int64
	reservoirLen int

	// sorted holds a periodically refreshed sorted copy of reservoir,
	// swapped in by Feed so Snapshot never observes a reservoir
	// mid-sort.
	sorted    [2][reservoirSize]int64
	sortedLen [2]int
	active    int
	front     int
}

// New constructs a Meter for a loop with the given nominal tick
// period in nanoseconds.
func New(nominalPeriodNs int64) *Meter {
	return &Meter{nominalPeriodNs: nominalPeriodNs}
}

// Feed records one tick boundary, given the current monotonic
// timestamp in nanoseconds. The first call only establishes the
// baseline and contributes no sample.
func (m *Meter) Feed(nowNs int64) Sample {
	if !m.seeded {
		m.seeded = true
		m.lastTickNs = nowNs
		return Sample{}
	}
	delta := nowNs - m.lastTickNs
	m.lastTickNs = nowNs

	dev := delta - m.nominalPeriodNs
	if dev < 0 {
		dev = -dev
	}
	if dev > m.maxNs {
		m.maxNs = dev
	}
	missed := delta > 2*m.nominalPeriodNs
	if missed {
		m.missed++
	}
	m.count++

	idx := m.reservoirLen % reservoirSize
	m.reservoir[idx] = dev
	if m.reservoirLen < reservoirSize {
		m.reservoirLen++
	}
	// Refresh the inactive sorted buffer periodically and flip, so
	// readers always see a consistent, fully sorted snapshot without
	// ever observing one mid-sort.
	const refreshPeriod = 64
	if m.count%refreshPeriod == 0 {
		m.refreshSorted()
	}

	return Sample{DeltaNs: delta, Missed: missed}
}

func (m *Meter) refreshSorted() {
	back := 1 - m.front
	n := copy(m.sorted[back][:], m.reservoir[:m.reservoirLen])
	sort.Slice(m.sorted[back][:n], func(i, j int) bool {
		return m.sorted[back][i] < m.sorted[back][j]
	})
	m.sortedLen[back] = n
	m.front = back
}

// Snapshot returns the meter's current statistics. It is safe to call
// from a different goroutine than the one calling Feed, as long as
// the caller tolerates percentiles that lag Feed by up to 64 samples
// (the double-buffer refresh granularity); before the first refresh
// P50Ns and P99Ns are zero.
func (m *Meter) Snapshot() Snapshot {
	n := m.sortedLen[m.front]
	buf := m.sorted[m.front][:n]
	if len(buf) == 0 {
		return Snapshot{
			MaxNs:       m.maxNs,
			SampleCount: m.count,
			MissedTicks: m.missed,
		}
	}
	p50 := buf[percentileIndex(len(buf), 50)]
	p99 := buf[percentileIndex(len(buf), 99)]
	return Snapshot{
		MaxNs:       m.maxNs,
		P50Ns:       p50,
		P99Ns:       p99,
		SampleCount: m.count,
		MissedTicks: m.missed,
	}
}

func percentileIndex(n, pct int) int {
	idx := (n * pct) / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// MissedRatio returns missed_ticks / sample_count, or 0 if no samples
// have been recorded, for the spec.md §8 property
// `missed_ticks / N ≤ 10⁻⁵`.
func (s Snapshot) MissedRatio() float64 {
	if s.SampleCount == 0 {
		return 0
	}
	return float64(s.MissedTicks) / float64(s.SampleCount)
}
