package telemetry

import (
	"testing"
	"time"
)

func TestDisconnectionTrackerTouchConnects(t *testing.T) {
	tr := NewDisconnectionTracker(time.Second, nil, nil)
	if tr.State() != Disconnected {
		t.Fatalf("initial state = %v, want Disconnected", tr.State())
	}
	tr.Touch(1000)
	if tr.State() != Connected {
		t.Fatalf("state after Touch = %v, want Connected", tr.State())
	}
}

func TestDisconnectionTrackerTimesOut(t *testing.T) {
	tr := NewDisconnectionTracker(time.Second, nil, nil)
	tr.Touch(0)
	if tr.CheckTimeout(int64(500 * time.Millisecond)) {
		t.Fatal("timed out before the timeout elapsed")
	}
	if !tr.CheckTimeout(int64(2 * time.Second)) {
		t.Fatal("expected a timeout transition")
	}
	if tr.State() != Disconnected {
		t.Fatalf("state = %v, want Disconnected", tr.State())
	}
}

func TestDisconnectionTrackerPublishesEvents(t *testing.T) {
	tr := NewDisconnectionTracker(time.Second, nil, nil)
	tr.Touch(0)
	select {
	case ev := <-tr.Events():
		if ev.State != Connected {
			t.Fatalf("event state = %v, want Connected", ev.State)
		}
	default:
		t.Fatal("expected a published event")
	}
}

func TestDisconnectionTrackerReconnectBounded(t *testing.T) {
	tr := NewDisconnectionTracker(time.Second, map[time.Duration]int{time.Minute: 1}, nil)
	if _, ok := tr.AllowReconnect("game"); !ok {
		t.Fatal("first reconnect attempt should be allowed")
	}
	if _, ok := tr.AllowReconnect("game"); ok {
		t.Fatal("second reconnect attempt within the window should be denied")
	}
}
