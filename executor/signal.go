package executor

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// installSignalHandler starts (once per Executor) a goroutine that relays
// SIGINT to whichever process group is currently recorded as the foreground
// job; the foreground handler's own blocking wait then reaps it and records
// its status into e.Status.
//
// The C original installs a signal handler that itself calls wait() and
// setenv() — setenv is not async-signal-safe, a hazard the spec's Design
// Notes flag explicitly. Rather than replicate that race, this relays the
// signal to a regular goroutine (option (a) from the Design Notes: drain a
// flag outside the signal-handling context) which only forwards the signal
// and never waits itself. The blocking Wait call the
// foreground handler (executeSimple/executeSubshell/executePipe) is already
// making observes the termination naturally; there is no second wait racing
// the first one.
func (e *Executor) installSignalHandler() {
	e.sigintOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt)
		go func() {
			for range ch {
				pid := int(e.foregroundPid.Load())
				if pid == 0 {
					fmt.Fprintln(e.Stdout)
					continue
				}
				// Negative PID targets the whole process group, matching
				// the terminal's own SIGINT delivery to every process in
				// the foreground group.
				_ = syscall.Kill(-pid, syscall.SIGINT)
			}
		}()
	})
}

// setForeground records pid as the currently-running foreground child so a
// SIGINT can be relayed to it. Pass 0 to clear once the child is reaped.
func (e *Executor) setForeground(pid int) {
	e.foregroundPid.Store(int32(pid))
}
