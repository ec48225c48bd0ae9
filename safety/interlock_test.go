package safety

import (
	"errors"
	"math"
	"testing"

	"ffbengine.dev/watchdog"
)

func newInterlock(t *testing.T, maxNm float64, wdTimeoutNs, commsTimeoutNs int64) (*Interlock, *watchdog.Software) {
	t.Helper()
	wd := watchdog.NewSoftware(wdTimeoutNs)
	if err := wd.Arm(0); err != nil {
		t.Fatalf("arm: %v", err)
	}
	log := NewFaultLog(8)
	il := New(Config{MaxTorqueNm: maxNm, CommsTimeoutNs: commsTimeoutNs}, wd, log)
	return il, wd
}

// S1 — Normal pass-through.
func TestS1NormalPassThrough(t *testing.T) {
	il, _ := newInterlock(t, 25, 100_000_000, 0)
	res := il.Tick(10, 1_000_000)
	if res.TorqueNm != 10 {
		t.Fatalf("torque = %v, want 10", res.TorqueNm)
	}
	if res.State.Kind != KindNormal {
		t.Fatalf("state = %v, want Normal", res.State.Kind)
	}
}

// S2 — Clamping.
func TestS2Clamping(t *testing.T) {
	il, _ := newInterlock(t, 25, 100_000_000, 0)
	res := il.Tick(30, 1_000_000)
	if res.TorqueNm != 25 {
		t.Fatalf("torque = %v, want 25", res.TorqueNm)
	}
	if il.Violations() != 1 {
		t.Fatalf("violations = %d, want 1", il.Violations())
	}
	res = il.Tick(-30, 2_000_000)
	if res.TorqueNm != -25 {
		t.Fatalf("torque = %v, want -25", res.TorqueNm)
	}
}

// S3 — Watchdog timeout.
func TestS3WatchdogTimeout(t *testing.T) {
	il, wd := newInterlock(t, 25, 10_000_000, 0)
	if err := wd.Feed(1_000_000); err != nil {
		t.Fatalf("feed: %v", err)
	}
	res := il.Tick(10, 20_000_000) // 19ms since the last feed at 1ms, > 10ms timeout
	if res.TorqueNm != 0 {
		t.Fatalf("torque = %v, want 0", res.TorqueNm)
	}
	if res.State.Kind != KindSafeMode || res.State.Trigger != TriggerWatchdogTimeout {
		t.Fatalf("state = %+v, want SafeMode{WatchdogTimeout}", res.State)
	}
	if res.ResponseNs > 1_000_000 {
		t.Fatalf("response time %dns exceeds 1ms budget", res.ResponseNs)
	}
}

// S4 — Emergency stop overrides input.
func TestS4EmergencyStop(t *testing.T) {
	il, _ := newInterlock(t, 25, 100_000_000, 0)
	il.EmergencyStop(1_000_000)
	res := il.Tick(100, 2_000_000)
	if res.TorqueNm != 0 {
		t.Fatalf("torque = %v, want 0", res.TorqueNm)
	}
	if err := il.ClearFault(200_000_000); !errors.Is(err, ErrNotClearable) {
		t.Fatalf("clear_fault from EmergencyStop = %v, want ErrNotClearable", err)
	}
	il.Reset()
	if il.State().Kind != KindNormal {
		t.Fatalf("state after reset = %v, want Normal", il.State().Kind)
	}
}

// S5 — Communication loss.
func TestS5CommunicationLoss(t *testing.T) {
	il, _ := newInterlock(t, 25, 30_000_000_000, 20_000_000)
	il.RecordComms(0)
	res := il.Tick(10, 25_000_000)
	if res.TorqueNm != 0 {
		t.Fatalf("torque = %v, want 0", res.TorqueNm)
	}
	if res.State.Kind != KindSafeMode || res.State.Trigger != TriggerCommunicationLoss {
		t.Fatalf("state = %+v, want SafeMode{CommunicationLoss}", res.State)
	}
	if res.ResponseNs > 50_000_000 {
		t.Fatalf("response time %dns exceeds 50ms budget", res.ResponseNs)
	}
	if err := il.ClearFault(25_000_000 + 99_000_000); err == nil {
		t.Fatal("expected min-hold error before the 100ms hold elapsed")
	}
	if err := il.ClearFault(25_000_000 + 110_000_000); err != nil {
		t.Fatalf("clear_fault after min hold: %v", err)
	}
}

// S6 — Fault log bounding.
func TestS6FaultLogBounding(t *testing.T) {
	log := NewFaultLog(3)
	kinds := []FaultType{FaultThermalLimit, FaultOvercurrent, FaultUsbStall, FaultEncoderNaN, FaultPipelineFault}
	for i, k := range kinds {
		log.Append(FaultEntry{TsMonoNs: int64(i), Fault: k})
	}
	if log.Len() != 3 {
		t.Fatalf("log len = %d, want 3", log.Len())
	}
	entries := log.Entries()
	want := []FaultType{FaultUsbStall, FaultEncoderNaN, FaultPipelineFault}
	for i, e := range entries {
		if e.Fault != want[i] {
			t.Fatalf("entry %d = %v, want %v", i, e.Fault, want[i])
		}
	}
}

func TestInvariant3ReportFaultZeroesUntilCleared(t *testing.T) {
	il, _ := newInterlock(t, 25, 100_000_000, 0)
	il.ReportFault(FaultOvercurrent, 10, "overcurrent", 0)
	for ns := int64(1_000_000); ns < 100_000_000; ns += 1_000_000 {
		res := il.Tick(15, ns)
		if res.TorqueNm != 0 {
			t.Fatalf("torque at %dns = %v, want 0 while in SafeMode", ns, res.TorqueNm)
		}
	}
	if err := il.ClearFault(101_000_000); err != nil {
		t.Fatalf("clear_fault after hold: %v", err)
	}
	res := il.Tick(15, 102_000_000)
	if res.TorqueNm != 15 {
		t.Fatalf("torque after clear = %v, want 15", res.TorqueNm)
	}
}

func TestInvariant5NaNSanitizedUpstream(t *testing.T) {
	il, _ := newInterlock(t, 25, 100_000_000, 0)
	sanitized := 0.0 // engine sanitizes NaN to 0 before calling Tick
	res := il.Tick(sanitized, 1_000_000)
	if math.IsNaN(res.TorqueNm) {
		t.Fatal("torque must never be NaN")
	}
}

func TestInvariant6NormalPassesThroughUpToMax(t *testing.T) {
	il, _ := newInterlock(t, 25, 100_000_000, 0)
	for _, r := range []float64{0, 12.5, -12.5, 25, -25} {
		res := il.Tick(r, 1_000_000)
		if res.TorqueNm != r {
			t.Fatalf("torque for %v = %v, want unchanged", r, res.TorqueNm)
		}
	}
}
