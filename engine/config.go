package engine

import (
	"errors"

	"ffbengine.dev/hid"
	"ffbengine.dev/mode"
	"ffbengine.dev/pipeline"
)

// Config is the engine's construction-time configuration: the
// environment options spec.md §6 enumerates, each with the documented
// default applied by DefaultConfig, followed by the thermal threshold,
// ring capacity, pipeline tuning and mode override fields below. It is
// validated once in New:
// validate eagerly, fail fast, no partially-constructed value escapes
// the constructor.
type Config struct {
	NominalTickPeriodNs int64
	MaxJitterNs         int64
	WatchdogTimeoutMs   int64
	CommsTimeoutMs      int64
	MaxSafeTorqueNm     float64
	MaxHighTorqueNm     float64
	BlackboxEnabled     bool
	BlackboxCapacity    int
	RTRequestHighPriority bool
	RTLockMemory          bool
	FaultLogCapacity      int

	// ThermalLimitC is the device temperature, in Celsius, above which
	// UpdateSafety raises FaultThermalLimit (spec.md §4.8
	// "update_safety ... may raise ThermalLimit fault if temp exceeds
	// a threshold"). Not itself named in spec.md §6's option list, but
	// needed to make that threshold configurable rather than a magic
	// constant.
	ThermalLimitC float64

	// RingCapacity is the SPSC game-input ring's capacity, a power of
	// two (spec.md §4.1 "preferred sizes are 64-256 slots").
	RingCapacity int

	Curve          *pipeline.ResponseCurve
	Notches        []pipeline.NotchConfig
	SlewRateNmPerS float64
	Bumpstop       pipeline.BumpstopConfig
	HandsOff       pipeline.HandsOffConfig

	// ModeOverride, if non-nil, forces Select's result rather than
	// deriving it from device capabilities (spec.md §4.11 "explicit
	// override").
	ModeOverride *mode.FFBMode
}

// DefaultConfig returns the spec.md §6 defaults. MaxSafeTorqueNm and
// MaxHighTorqueNm are left zero for the caller to set, since no
// universal default torque makes sense across wheel-bases of wildly
// different strength. New does not derive them from the device's
// capabilities; with MaxHighTorqueNm left zero every output torque is 0.
func DefaultConfig() Config {
	return Config{
		NominalTickPeriodNs:   1_000_000,
		MaxJitterNs:           250_000,
		WatchdogTimeoutMs:     100,
		CommsTimeoutMs:        50,
		BlackboxEnabled:       true,
		BlackboxCapacity:      4096,
		RTRequestHighPriority: true,
		RTLockMemory:          true,
		FaultLogCapacity:      1000,
		ThermalLimitC:         80,
		RingCapacity:          128,
		SlewRateNmPerS:        50,
	}
}

var (
	// ErrMaxTorqueExceedsDevice is returned by New when
	// MaxHighTorqueNm exceeds the device's reported maximum.
	ErrMaxTorqueExceedsDevice = errors.New("engine: max_high_torque_nm exceeds device capability")
	// ErrSafeExceedsMax is returned by New when MaxSafeTorqueNm
	// exceeds MaxHighTorqueNm.
	ErrSafeExceedsMax = errors.New("engine: max_safe_torque_nm exceeds max_high_torque_nm")
)

// validate checks Config against a device's capabilities (spec.md
// §4.8 "new(device, config): validates config (max torque ≤ device
// max; safe ≤ max)").
func (c Config) validate(caps hid.DeviceCapabilities) error {
	if c.MaxHighTorqueNm > caps.MaxTorqueNm {
		return ErrMaxTorqueExceedsDevice
	}
	if c.MaxSafeTorqueNm > c.MaxHighTorqueNm {
		return ErrSafeExceedsMax
	}
	return nil
}

func (c Config) resolved() Config {
	if c.NominalTickPeriodNs <= 0 {
		c.NominalTickPeriodNs = 1_000_000
	}
	if c.FaultLogCapacity <= 0 {
		c.FaultLogCapacity = 1000
	}
	if c.RingCapacity <= 0 {
		c.RingCapacity = 128
	}
	if c.WatchdogTimeoutMs <= 0 {
		c.WatchdogTimeoutMs = 100
	}
	if c.ThermalLimitC <= 0 {
		c.ThermalLimitC = 80
	}
	return c
}
