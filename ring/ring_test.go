package ring

import (
	"sync"
	"testing"
)

func TestPushPopFIFO(t *testing.T) {
	r := New(4)
	for i := 0; i < 4; i++ {
		if err := r.TryPush(GameInput{FFBScalar: float64(i)}); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if err := r.TryPush(GameInput{FFBScalar: 99}); err == nil {
		t.Fatal("expected full error")
	}
	if got := r.DroppedFrames(); got != 1 {
		t.Fatalf("dropped = %d, want 1", got)
	}
	for i := 0; i < 4; i++ {
		item, ok := r.TryPop()
		if !ok {
			t.Fatalf("pop %d: empty", i)
		}
		if item.FFBScalar != float64(i) {
			t.Fatalf("pop %d: got %v", i, item.FFBScalar)
		}
	}
	if _, ok := r.TryPop(); ok {
		t.Fatal("expected empty ring")
	}
}

func TestNonPowerOfTwoPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-power-of-two capacity")
		}
	}()
	New(3)
}

func TestAttachProducerSingleOwner(t *testing.T) {
	r := New(8)
	if !r.AttachProducer() {
		t.Fatal("first attach should succeed")
	}
	if r.AttachProducer() {
		t.Fatal("second attach should fail")
	}
}

func TestDrainLatestCoalesces(t *testing.T) {
	r := New(8)
	for i := 0; i < 5; i++ {
		_ = r.TryPush(GameInput{FFBScalar: float64(i)})
	}
	item, ok := r.DrainLatest()
	if !ok {
		t.Fatal("expected an item")
	}
	if item.FFBScalar != 4 {
		t.Fatalf("got %v, want latest (4)", item.FFBScalar)
	}
	if r.Len() != 0 {
		t.Fatalf("ring should be empty after drain, len=%d", r.Len())
	}
}

// TestConcurrentSPSC exercises a real producer/consumer pair across
// goroutines and checks that every popped value is observed exactly
// once, in strictly increasing order (spec.md §8 invariant 8).
func TestConcurrentSPSC(t *testing.T) {
	const n = 200_000
	r := New(256)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for r.TryPush(GameInput{FFBScalar: float64(i)}) != nil {
				// retry until it fits; a real producer would drop,
				// but the test wants every value observed.
			}
		}
	}()

	var last float64 = -1
	seen := 0
	go func() {
		defer wg.Done()
		for seen < n {
			item, ok := r.TryPop()
			if !ok {
				continue
			}
			if item.FFBScalar <= last {
				t.Errorf("out of order: got %v after %v", item.FFBScalar, last)
			}
			last = item.FFBScalar
			seen++
		}
	}()

	wg.Wait()
	if seen != n {
		t.Fatalf("seen = %d, want %d", seen, n)
	}
}
