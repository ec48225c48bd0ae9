//go:build linux

package rt

import (
	"golang.org/x/sys/unix"
	"periph.io/x/host/v3"
)

func platformInit() error {
	_, err := host.Init()
	return err
}

// requestRealtimePriority raises the calling OS thread's scheduling
// priority via setpriority(2) (the highest available niceness), the
// best approximation available without a SCHED_FIFO policy change,
// which requires privileges this process may not have.
func requestRealtimePriority() error {
	return unix.Setpriority(unix.PRIO_PROCESS, 0, -20)
}

// lockMemory locks all of the process's current and future memory
// pages, per mlockall(2), to keep the RT thread off the page-fault
// path (spec.md §5 "never allocates after start-up" is a stronger
// guarantee than this alone provides, but mlockall protects whatever
// does get touched).
func lockMemory() error {
	return unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE)
}
