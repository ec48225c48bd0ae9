package watchdog

import (
	"errors"
	"testing"
)

func TestArmDisarmArmRoundTrip(t *testing.T) {
	w := NewSoftware(100_000_000)
	if err := w.Arm(0); err != nil {
		t.Fatalf("arm: %v", err)
	}
	if err := w.Arm(1); !errors.Is(err, ErrAlreadyArmed) {
		t.Fatalf("double arm = %v, want ErrAlreadyArmed", err)
	}
	w.Disarm()
	if err := w.Arm(2); err != nil {
		t.Fatalf("re-arm after disarm: %v", err)
	}
}

func TestFeedRequiresArmed(t *testing.T) {
	w := NewSoftware(100_000_000)
	if err := w.Feed(0); !errors.Is(err, ErrNotArmed) {
		t.Fatalf("feed while disarmed = %v, want ErrNotArmed", err)
	}
}

func TestTimeoutLatchesAndFeedAfterRejected(t *testing.T) {
	w := NewSoftware(10_000_000) // 10ms
	if err := w.Arm(0); err != nil {
		t.Fatal(err)
	}
	if w.HasTimedOut(5_000_000) {
		t.Fatal("should not have timed out yet")
	}
	if !w.HasTimedOut(20_000_000) {
		t.Fatal("should have timed out")
	}
	// Stays true even when queried again before reset.
	if !w.HasTimedOut(20_000_001) {
		t.Fatal("timeout should latch")
	}
	// Feed after a missed deadline is rejected, not silently accepted.
	if err := w.Feed(20_000_002); !errors.Is(err, ErrTimedOut) {
		t.Fatalf("feed after timeout = %v, want ErrTimedOut", err)
	}
	w.Reset()
	if w.HasTimedOut(20_000_003) {
		t.Fatal("reset should clear the latch")
	}
}

func TestFeedWithinDeadline(t *testing.T) {
	w := NewSoftware(10_000_000)
	_ = w.Arm(0)
	for now := int64(5_000_000); now < 100_000_000; now += 5_000_000 {
		if err := w.Feed(now); err != nil {
			t.Fatalf("feed at %d: %v", now, err)
		}
	}
	if w.HasTimedOut(100_000_000) {
		t.Fatal("regularly fed watchdog should not time out")
	}
}
