// Package hid defines the HidDevice facade (spec.md §4.9): the engine's
// only way to talk to a physical wheel-base, and the one place a
// concrete transport (serial, USB-HID, network) gets adapted to the
// shape the RT thread needs.
package hid

import (
	"errors"

	"periph.io/x/conn/v3"
)

// ErrDisconnected is returned by WriteFFB when the device is known to
// be disconnected; it is never a panic (spec.md §4.9 "post-disconnect
// writes must fail, not panic").
var ErrDisconnected = errors.New("hid: device disconnected")

// ErrTransport wraps a lower-level I/O failure from the underlying
// transport (serial read/write error, USB stall, and so on).
type ErrTransport struct{ Err error }

func (e *ErrTransport) Error() string { return "hid: transport error: " + e.Err.Error() }
func (e *ErrTransport) Unwrap() error { return e.Err }

// DeviceCapabilities describes a connected device's fixed properties
// (spec.md §3 "DeviceCapabilities"). It does not change for the
// lifetime of a connection; Reconnect must return the same value it
// reported before the disconnect.
type DeviceCapabilities struct {
	MaxTorqueNm       float64
	EncoderCPR        int
	UpdateRateHz      float64
	SupportsRawTorque bool
	SupportsPID       bool
}

// DeviceTelemetry is the device's own readback: wheel kinematics and
// health fields the safety interlock and pipeline consume, distinct
// from the game-side NormalizedTelemetry the telemetry package
// produces.
type DeviceTelemetry struct {
	WheelAngleRad  float64
	WheelSpeedRadS float64
	TemperatureC   float64
}

// Device is the HidDevice facade of spec.md §4.9. Implementations
// embed conn.Resource (String/Halt), so a Device composes cleanly with
// the rest of the periph.io-shaped stack; Halt is the resource-teardown
// hook, which the implementations in this module implement by calling
// Disconnect.
type Device interface {
	conn.Resource

	// Capabilities returns the device's fixed properties. Valid at any
	// point after a successful Connect/Reconnect, including while
	// disconnected (spec.md §4.9 "without discarding capabilities").
	Capabilities() DeviceCapabilities

	// WriteFFB commands torqueNm to the device for tick seq. It must
	// never panic; once the device is disconnected it returns
	// ErrDisconnected, and any I/O failure is returned as
	// *ErrTransport.
	WriteFFB(torqueNm float64, seq uint64) error

	// ReadTelemetry returns the device's last known telemetry sample
	// and whether one was available.
	ReadTelemetry() (DeviceTelemetry, bool)

	// IsConnected reports the device's current connection state.
	IsConnected() bool

	// Disconnect tears down the transport. Idempotent.
	Disconnect() error

	// Reconnect re-establishes the transport, returning the device to
	// a writable state without discarding the capabilities reported
	// before the disconnect.
	Reconnect() error
}
