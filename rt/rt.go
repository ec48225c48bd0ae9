// Package rt provides the real-time thread's platform hooks (best-effort
// priority elevation and memory locking, spec.md §4.7) and the fixed-
// period scheduler that drives the engine tick.
package rt

import "ffbengine.dev/internal/ffblog"

// Init brings up whatever platform state the priority/mlock hooks
// need, best-effort: a failure here never aborts startup (spec.md
// §4.7 "best-effort").
func Init(log *ffblog.Logger) {
	if log == nil {
		log = ffblog.L
	}
	if err := platformInit(); err != nil {
		log.Warning().Err(err).Log(`rt: platform init failed, continuing without it`)
	}
}

// RequestRealtimePriority asks the OS for elevated scheduling priority
// for the calling thread. Best-effort: a failure is returned to the
// caller to log, never to abort (spec.md §4.7, §6
// "rt_request_high_priority").
func RequestRealtimePriority() error {
	return requestRealtimePriority()
}

// LockMemory locks the process's memory to prevent page faults on the
// RT hot path. Best-effort (spec.md §6 "rt_lock_memory").
func LockMemory() error {
	return lockMemory()
}
