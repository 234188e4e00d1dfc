// Package reaper wraps the low-level wait4(2) machinery the executor uses
// to reap terminated children: the opportunistic non-blocking sweep run at
// the top of every Process call, the blocking single-command wait used by
// simple commands and subshells, and the pipeline wait loop that must tell
// pipeline members apart from unrelated background zombies.
package reaper

import (
	"golang.org/x/sys/unix"
)

// Reaped describes one terminated child observed by a wait call.
type Reaped struct {
	Pid      int
	ExitCode int
}

// decode converts a raw wait status into the exit code the executor reports
// as `?`: the program's own exit code on normal termination, or 128+signal
// when the child died from an uncaught signal (the conventional shell
// encoding, matching WEXITSTATUS for the success path in the C original).
func decode(status unix.WaitStatus) int {
	if status.Signaled() {
		return 128 + int(status.Signal())
	}
	return status.ExitStatus()
}

// ReapAny performs one non-blocking wait4(-1, WNOHANG) call. pid == 0 means
// no child was ready; ok == false means there are no children to wait for
// at all (ECHILD). This is the primitive behind the opportunistic zombie
// reap at the top of Executor.Process.
func ReapAny() (r Reaped, found bool, ok bool) {
	var status unix.WaitStatus
	pid, err := unix.Wait4(-1, &status, unix.WNOHANG, nil)
	switch {
	case err == unix.ECHILD:
		return Reaped{}, false, false
	case err != nil:
		return Reaped{}, false, false
	case pid <= 0:
		return Reaped{}, false, true
	default:
		return Reaped{Pid: pid, ExitCode: decode(status)}, true, true
	}
}

// WaitPid blocks until the specific pid terminates, returning its exit
// code. Used by the simple-command and subshell handlers, which each fork
// exactly one child and must wait on that one child specifically rather
// than on "any child" (there may be unrelated background zombies present).
func WaitPid(pid int) (exitCode int, err error) {
	var status unix.WaitStatus
	for {
		got, werr := unix.Wait4(pid, &status, 0, nil)
		if werr == unix.EINTR {
			continue
		}
		if werr != nil {
			return 0, werr
		}
		if got == pid {
			return decode(status), nil
		}
	}
}

// WaitAnyBlocking blocks until any child terminates (used by the pipeline
// wait loop, which must keep consuming reaps — pipeline members and stray
// zombies alike — until every pipeline stage has been accounted for).
func WaitAnyBlocking() (r Reaped, err error) {
	var status unix.WaitStatus
	for {
		pid, werr := unix.Wait4(-1, &status, 0, nil)
		if werr == unix.EINTR {
			continue
		}
		if werr != nil {
			return Reaped{}, werr
		}
		return Reaped{Pid: pid, ExitCode: decode(status)}, nil
	}
}
