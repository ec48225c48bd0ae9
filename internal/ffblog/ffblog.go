// Package ffblog is the process-wide structured logger, shared by every
// async-domain package (the RT thread never logs; see rt.Scheduler).
package ffblog

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// L is the process-wide logger. It writes newline-delimited JSON to
// stderr by default; Configure replaces it.
var L = stumpy.L.New(stumpy.L.WithStumpy())

// Configure replaces the process-wide logger, e.g. to redirect output
// or change the time field during tests.
func Configure(opts ...stumpy.Option) {
	L = stumpy.L.New(stumpy.L.WithStumpy(opts...))
}

// Logger is the concrete logger type the logging constructors in this
// module (engine.New, serialdevice.Config, telemetry's
// NewDisconnectionTracker, rt.Init) take, so tests can substitute a logger
// writing to a buffer instead of the process-wide default.
type Logger = logiface.Logger[*stumpy.Event]
