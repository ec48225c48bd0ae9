// Package telemetry defines the game adapter contract (spec.md §4.10):
// the interface every per-game telemetry source implements, and the
// DisconnectionTracker shared by all of them. Concrete per-game
// decoders (F1, rFactor 2, iRacing, NASCAR, ACC) are out of scope
// (spec.md §1 Non-goals); this package only supplies the contract and
// the connection-liveness machinery every decoder would plug into.
package telemetry

import (
	"periph.io/x/conn/v3"
)

// NormalizedTelemetry is the game-side sample the core consumes,
// independent of any specific game's wire format (spec.md §3).
type NormalizedTelemetry struct {
	FFBScalar float64 // [-1, 1]
	SpeedMps  float64 // >= 0
	RPM       float64 // >= 0
	Gear      int     // [-1, 32]
	HandsOff  bool
}

// ConnectionState is the adapter's closed connection state.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Error
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// ConnectionStateEvent is published whenever an adapter's
// ConnectionState changes.
type ConnectionStateEvent struct {
	State ConnectionState
	TsNs  int64
}

// Adapter is the per-game telemetry source contract of spec.md §4.10.
// It embeds conn.Resource, the same halt/resource shape hid.Device
// uses, so both device- and game-side I/O endpoints compose uniformly
// in the async domain.
type Adapter interface {
	conn.Resource

	// Connect establishes the adapter's connection to the game. It
	// takes no context or timeout argument; any connect timeout is
	// chosen by the implementation.
	Connect() error
	// Disconnect tears the connection down. Idempotent.
	Disconnect() error
	// Poll is non-blocking: it returns the most recent sample, if any
	// arrived since the last call.
	Poll() (NormalizedTelemetry, bool)
	// GameID identifies which game this adapter decodes for.
	GameID() string
	// ConnectionState reports the adapter's current state.
	ConnectionState() ConnectionState
	// SubscribeStateChanges returns a channel of state transitions, or
	// false if this adapter doesn't support subscriptions.
	SubscribeStateChanges() (<-chan ConnectionStateEvent, bool)
}
