// Package ring implements a bounded single-producer/single-consumer
// transport for GameInput items between the async game-facing side
// and the real-time engine thread.
//
// The producer never blocks: a full ring drops the incoming item and
// reports it back to the caller. The consumer never blocks either.
// Both sides communicate only through the write and read indices,
// published with the memory ordering spec.md §4.1 requires: the
// producer releases the write index after publishing a slot, and the
// consumer acquires it before reading; the consumer releases the read
// index after freeing a slot, and the producer acquires it before
// claiming one.
package ring

import "sync/atomic"

// GameInput is the item transported from the async producer to the
// real-time consumer.
type GameInput struct {
	FFBScalar  float64
	WheelSpeed float64
	HandsOff   bool
	TsMonoNs   int64
}

// Ring is a fixed-capacity power-of-two SPSC queue of GameInput.
//
// Exactly one goroutine may call TryPush, and exactly one (possibly
// different) goroutine may call TryPop; Ring panics at construction
// if the capacity isn't a power of two, the same constraint
// go-catrate's internal ring buffer enforces for the same masking
// trick.
type Ring struct {
	mask uint64
	buf  []slot

	writeIdx atomic.Uint64
	readIdx  atomic.Uint64

	dropped atomic.Uint64

	attached atomic.Bool // producer attach guard (§5: runtime checks no second producer)
}

type slot struct {
	item  GameInput
	ready atomic.Bool
}

// FullError is returned by TryPush, along with the rejected item, when
// the ring has no free slot.
type FullError struct {
	Item GameInput
}

func (e *FullError) Error() string { return "ring: full" }

// New constructs a Ring with the given capacity, which must be a
// positive power of two; no upper bound is enforced. Preferred sizes
// are 64-256 slots
// (spec.md §4.1).
func New(capacity int) *Ring {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("ring: capacity must be a power of two")
	}
	return &Ring{
		mask: uint64(capacity - 1),
		buf:  make([]slot, capacity),
	}
}

// AttachProducer marks this Ring as having an attached producer. It
// returns false if a producer is already attached, enforcing the
// "roles are statically assigned" rule of spec.md §5.
func (r *Ring) AttachProducer() bool {
	return r.attached.CompareAndSwap(false, true)
}

// TryPush is the wait-free producer operation. On a full ring it
// drops the item, increments the dropped-frame counter, and returns
// the rejected item in a *FullError so the caller can decide to retry
// with a coalesced value or give up.
func (r *Ring) TryPush(item GameInput) error {
	w := r.writeIdx.Load()
	read := r.readIdx.Load() // acquire: read index written by consumer with release
	if w-read >= uint64(len(r.buf)) {
		r.dropped.Add(1)
		return &FullError{Item: item}
	}
	idx := w & r.mask
	r.buf[idx].item = item
	r.buf[idx].ready.Store(true) // release: publishes slot contents
	r.writeIdx.Store(w + 1)      // release: publishes the new write index
	return nil
}

// TryPop is the wait-free consumer operation. It returns false if the
// ring is currently empty.
func (r *Ring) TryPop() (GameInput, bool) {
	read := r.readIdx.Load()
	w := r.writeIdx.Load() // acquire: write index written by producer with release
	if read == w {
		return GameInput{}, false
	}
	idx := read & r.mask
	for !r.buf[idx].ready.Load() {
		// Producer has claimed the index but not yet published the
		// slot; spin briefly rather than block (wait-free contract).
	}
	item := r.buf[idx].item
	r.buf[idx].ready.Store(false)
	r.readIdx.Store(read + 1) // release: frees the slot for the producer
	return item, true
}

// DrainLatest pops every currently-available item and returns only
// the most recent one, coalescing stale items as spec.md §4.8 permits
// ("coalescing stale items is permitted").
func (r *Ring) DrainLatest() (GameInput, bool) {
	var last GameInput
	ok := false
	for {
		item, got := r.TryPop()
		if !got {
			break
		}
		last, ok = item, true
	}
	return last, ok
}

// DroppedFrames returns the number of items rejected by TryPush due to
// a full ring.
func (r *Ring) DroppedFrames() uint64 {
	return r.dropped.Load()
}

// Len reports the number of items currently queued. It is a snapshot
// and may be stale by the time the caller observes it.
func (r *Ring) Len() int {
	w := r.writeIdx.Load()
	read := r.readIdx.Load()
	return int(w - read)
}

// Cap reports the ring's fixed capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}
