package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	catrate "github.com/joeycumines/go-catrate"

	"ffbengine.dev/internal/ffblog"
)

// DefaultTimeout is the default staleness window before
// DisconnectionTracker declares an adapter Disconnected (spec.md §4.10
// "default 2 s").
const DefaultTimeout = 2 * time.Second

// DefaultReconnectRates bounds auto-reconnect attempts, per category,
// to at most 3 in any 10-second window and at most 4 in any 30-second
// window, rather than retrying once per tick.
var DefaultReconnectRates = map[time.Duration]int{
	10 * time.Second: 3,
	30 * time.Second: 4,
}

// DisconnectionTracker records the last time an adapter produced data
// and derives Connected/Disconnected transitions from staleness,
// publishing a ConnectionStateEvent on every transition (spec.md
// §4.10). It also bounds how often a caller may attempt a reconnect,
// via a catrate.Limiter, instead of a hand-rolled backoff counter.
type DisconnectionTracker struct {
	timeoutNs int64
	lastDataNs atomic.Int64
	state      atomic.Int32

	reconnect *catrate.Limiter

	mu     sync.Mutex
	events chan ConnectionStateEvent

	log *ffblog.Logger
}

// NewDisconnectionTracker constructs a tracker. timeout and
// reconnectRates default to DefaultTimeout/DefaultReconnectRates when
// zero/nil.
func NewDisconnectionTracker(timeout time.Duration, reconnectRates map[time.Duration]int, log *ffblog.Logger) *DisconnectionTracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if reconnectRates == nil {
		reconnectRates = DefaultReconnectRates
	}
	if log == nil {
		log = ffblog.L
	}
	t := &DisconnectionTracker{
		timeoutNs: int64(timeout),
		reconnect: catrate.NewLimiter(reconnectRates),
		events:    make(chan ConnectionStateEvent, 1),
		log:       log,
	}
	t.state.Store(int32(Disconnected))
	return t
}

// Touch records that data arrived at nowNs, transitioning to Connected
// if the tracker wasn't already.
func (t *DisconnectionTracker) Touch(nowNs int64) {
	t.lastDataNs.Store(nowNs)
	t.transition(Connected, nowNs)
}

// CheckTimeout evaluates staleness as of nowNs, transitioning to
// Disconnected and publishing an event if the last data is older than
// the configured timeout. Returns whether a transition occurred.
func (t *DisconnectionTracker) CheckTimeout(nowNs int64) bool {
	if ConnectionState(t.state.Load()) != Connected {
		return false
	}
	last := t.lastDataNs.Load()
	if nowNs-last <= t.timeoutNs {
		return false
	}
	t.transition(Disconnected, nowNs)
	return true
}

// State returns the tracker's current ConnectionState.
func (t *DisconnectionTracker) State() ConnectionState {
	return ConnectionState(t.state.Load())
}

// Events returns the channel ConnectionStateEvents are published on.
// Consumers should drain it promptly; transition publishes are
// non-blocking and will drop the oldest pending event rather than
// block the RT-adjacent caller.
func (t *DisconnectionTracker) Events() <-chan ConnectionStateEvent {
	return t.events
}

// AllowReconnect reports whether a reconnect attempt for category
// (typically the game ID) is permitted under the bounded schedule, and
// the time at which the next attempt would be allowed if not.
func (t *DisconnectionTracker) AllowReconnect(category string) (time.Time, bool) {
	return t.reconnect.Allow(category)
}

func (t *DisconnectionTracker) transition(to ConnectionState, nowNs int64) {
	from := ConnectionState(t.state.Swap(int32(to)))
	if from == to {
		return
	}
	t.log.Info().Str(`from`, from.String()).Str(`to`, to.String()).Log(`telemetry: connection state changed`)
	ev := ConnectionStateEvent{State: to, TsNs: nowNs}
	t.mu.Lock()
	select {
	case <-t.events:
	default:
	}
	select {
	case t.events <- ev:
	default:
	}
	t.mu.Unlock()
}
