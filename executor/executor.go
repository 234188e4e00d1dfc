// Package executor implements the command executor of a POSIX-style
// interactive shell: it walks a pre-parsed ast.Node tree and drives the
// operating system to run it — forking processes, wiring pipes, applying
// redirections, tracking exit status, maintaining a directory stack, and
// reaping background jobs.
//
// The parser that builds the ast.Node tree, tokenization, quoting, variable
// expansion, and the interactive REPL are all out of scope here; they are
// external collaborators.
package executor

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/tinyshell/mibash/ast"
	"github.com/tinyshell/mibash/internal/invariant"
	"github.com/tinyshell/mibash/internal/reaper"
)

// Executor holds the process-global state a shell session threads through
// every call to Process: the exit-status variable, the directory stack, and
// the zombie counter. Spec Design Notes call for encapsulating these in a
// single state object rather than true process globals — Executor is that
// object. The SIGINT hand-off (foregroundPid) is held in an atomic because
// the signal-relay goroutine reads it while a handler is waiting.
type Executor struct {
	// Status is the exit status of the last completed foreground command,
	// exposed to conditionals and to subshell/background exit codes. It is
	// kept as a string because the spec's conditional short-circuit is a
	// string comparison against "0", an intentional simplification (see
	// executeAnd/executeOr).
	Status string

	// DirStack is the pushd/popd stack, most-recently-pushed last.
	DirStack []string

	// Zombies counts backgrounded children forked but not yet reaped.
	Zombies int

	// Stdout/Stderr are the streams builtins and diagnostics write to.
	// Defaulting to os.Stdout/os.Stderr; tests inject buffers instead.
	Stdout io.Writer
	Stderr io.Writer

	sigintOnce    sync.Once
	foregroundPid atomic.Int32 // 0 when no foreground child is running
}

// New returns an Executor with status "0", an empty directory stack, and
// diagnostics routed to os.Stdout/os.Stderr.
func New() *Executor {
	return &Executor{
		Status: "0",
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Process executes node to completion (for foreground work) or to launch
// (for background work), updating e.Status to reflect the last foreground
// command's exit code. It is the single entry point every handler and every
// recursive call funnels through, matching the C original's process().
func (e *Executor) Process(node ast.Node) {
	invariant.NotNil(node, "node")

	e.installSignalHandler()
	e.reapOpportunistic()

	switch n := node.(type) {
	case *ast.Command:
		e.executeSimple(n)
	case *ast.Pipe:
		e.executePipe(n)
	case *ast.And:
		e.executeAnd(n)
	case *ast.Or:
		e.executeOr(n)
	case *ast.Sequence:
		e.executeSequence(n)
	case *ast.Subshell:
		e.executeSubshell(n)
	case *ast.Background:
		e.executeBackground(n)
	default:
		invariant.Invariant(false, "unhandled node type %T", node)
	}
}

// reapOpportunistic drains every zombie that is ready right now without
// blocking, reporting each one on the diagnostic stream. This is the
// "opportunistic zombie reap" the spec requires at the top of every
// Process call.
func (e *Executor) reapOpportunistic() {
	for {
		r, found, ok := reaper.ReapAny()
		if !ok || !found {
			return
		}
		e.Zombies--
		fmt.Fprintf(e.Stderr, "Completed: %d (%d)\n", r.Pid, r.ExitCode)
	}
}
