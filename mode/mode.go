// Package mode implements the pure FFB mode selection policy of
// spec.md §4.11.
package mode

import "ffbengine.dev/hid"

// FFBMode is the closed sum type of force-feedback delivery
// strategies a connected device can be driven with.
type FFBMode int

const (
	// RawTorque commands the device directly with a Newton-metre
	// value every tick; it requires device support at >= 1 kHz.
	RawTorque FFBMode = iota
	// PID drives the device through its own constant/periodic/spring
	// effect primitives rather than a raw per-tick torque value.
	PID
	// TelemetrySynth derives all force feedback from game telemetry,
	// for devices with no host-controllable FFB path at all.
	TelemetrySynth
)

func (m FFBMode) String() string {
	switch m {
	case RawTorque:
		return "raw_torque"
	case PID:
		return "pid"
	case TelemetrySynth:
		return "telemetry_synth"
	default:
		return "unknown"
	}
}

// minRawTorqueRateHz is the minimum update rate a device must support
// for RawTorque to be viable (spec.md §4.11 "at >= 1 kHz").
const minRawTorqueRateHz = 1000

// Select is the pure function of spec.md §4.11: explicit override,
// then RawTorque if the device supports it at the required rate, then
// PID, and finally TelemetrySynth as the universal fallback.
func Select(caps hid.DeviceCapabilities, override *FFBMode) FFBMode {
	if override != nil {
		return *override
	}
	if caps.SupportsRawTorque && caps.UpdateRateHz >= minRawTorqueRateHz {
		return RawTorque
	}
	if caps.SupportsPID {
		return PID
	}
	return TelemetrySynth
}
