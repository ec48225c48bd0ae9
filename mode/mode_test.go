package mode

import (
	"testing"

	"ffbengine.dev/hid"
)

func TestSelectPrefersOverride(t *testing.T) {
	caps := hid.DeviceCapabilities{SupportsRawTorque: true, UpdateRateHz: 1000}
	want := TelemetrySynth
	if got := Select(caps, &want); got != TelemetrySynth {
		t.Fatalf("Select = %v, want override TelemetrySynth", got)
	}
}

func TestSelectRawTorqueRequiresRate(t *testing.T) {
	caps := hid.DeviceCapabilities{SupportsRawTorque: true, UpdateRateHz: 500, SupportsPID: true}
	if got := Select(caps, nil); got != PID {
		t.Fatalf("Select = %v, want PID (raw torque below 1kHz)", got)
	}
}

func TestSelectPrefersRawTorqueAtFullRate(t *testing.T) {
	caps := hid.DeviceCapabilities{SupportsRawTorque: true, UpdateRateHz: 1000, SupportsPID: true}
	if got := Select(caps, nil); got != RawTorque {
		t.Fatalf("Select = %v, want RawTorque", got)
	}
}

func TestSelectFallsBackToTelemetrySynth(t *testing.T) {
	caps := hid.DeviceCapabilities{}
	if got := Select(caps, nil); got != TelemetrySynth {
		t.Fatalf("Select = %v, want TelemetrySynth", got)
	}
}
