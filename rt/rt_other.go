//go:build !linux

package rt

import "errors"

var errUnsupported = errors.New("rt: not supported on this platform")

func platformInit() error { return nil }

func requestRealtimePriority() error { return errUnsupported }

func lockMemory() error { return errUnsupported }
