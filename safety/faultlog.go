package safety

import "sync/atomic"

// FaultEntry is one record in the fault log ring (spec.md §4.5): an
// audit trail of anomalous events, distinct in purpose and retention
// from the diagnostics blackbox's stream of recent frames (spec.md
// §9 "Blackbox vs fault log").
type FaultEntry struct {
	TsMonoNs        int64
	Fault           FaultType
	Trigger         Trigger
	TorqueAtFaultNm float64
	ResponseNs      int64
	Description     string
}

// FaultLog is a fixed-capacity ring of FaultEntry, overwriting the
// oldest entry when full. Append is the ring's single producer and
// must only be called from the real-time thread (the same thread
// Interlock.Tick/ReportFault run on); NextIndex/Len/Entries are the
// async-side consumer and may be called from any goroutine, tolerating
// the usual lock-free-ring snapshot race against a concurrent Append,
// the way ring.Ring's TryPop/Len do.
type FaultLog struct {
	entries   []FaultEntry
	nextIndex atomic.Uint64 // count of entries ever written
}

// NewFaultLog constructs a FaultLog with the given capacity, which
// must be at least 1000 per spec.md §4.5 ("fixed-capacity ring
// (≥ 1000)"); smaller capacities are accepted for tests but production
// configuration should respect the stated minimum.
func NewFaultLog(capacity int) *FaultLog {
	if capacity <= 0 {
		capacity = 1000
	}
	return &FaultLog{entries: make([]FaultEntry, capacity)}
}

// Append records a new fault entry, overwriting the oldest one if the
// log is full.
func (l *FaultLog) Append(e FaultEntry) {
	idx := l.nextIndex.Load() % uint64(len(l.entries))
	l.entries[idx] = e
	l.nextIndex.Add(1) // release: publishes the new entry to readers
}

// Len returns the number of valid entries currently held (capped at
// capacity).
func (l *FaultLog) Len() int {
	n := l.nextIndex.Load()
	if n >= uint64(len(l.entries)) {
		return len(l.entries)
	}
	return int(n)
}

// Capacity returns the log's fixed capacity.
func (l *FaultLog) Capacity() int {
	return len(l.entries)
}

// NextIndex returns the total number of entries ever appended. A
// reader comparing two NextIndex values it previously observed can
// tell whether entries were overwritten between reads (wraparound) by
// checking whether the delta exceeds the capacity.
func (l *FaultLog) NextIndex() uint64 {
	return l.nextIndex.Load()
}

// Entries returns a copy of the currently held entries, oldest first.
func (l *FaultLog) Entries() []FaultEntry {
	n := len(l.entries)
	next := l.nextIndex.Load() // acquire: paired with Append's release
	if next < uint64(n) {
		out := make([]FaultEntry, next)
		copy(out, l.entries[:next])
		return out
	}
	out := make([]FaultEntry, n)
	start := int(next % uint64(n))
	copy(out, l.entries[start:])
	copy(out[n-start:], l.entries[:start])
	return out
}
