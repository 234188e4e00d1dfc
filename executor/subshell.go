package executor

import (
	"encoding/gob"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/tinyshell/mibash/ast"
	"github.com/tinyshell/mibash/internal/invariant"
	"github.com/tinyshell/mibash/internal/reaper"
)

// trampolineArg is the hidden argument that tells a re-exec'd copy of this
// binary "you are a subshell/background child: decode an ast.Node from the
// inherited descriptor and run it, instead of behaving like a normal
// invocation." Go has no fork(); re-executing the current binary with a
// marker argument is the idiomatic replacement, the same technique the
// teacher's container-setup code uses to run privileged one-shot work in a
// fresh process (exec.Command(os.Args[0], "forkmount", ...)).
const trampolineArg = "--mibash-subshell"

// IsTrampolineInvocation reports whether os.Args requests the subshell
// trampoline, so cmd/mibash's main() can dispatch to RunTrampoline before
// doing anything else (flag parsing, REPL startup, etc).
func IsTrampolineInvocation(args []string) bool {
	return len(args) > 1 && args[1] == trampolineArg
}

// RunTrampoline decodes an ast.Node from the inherited descriptor (fd 3,
// the re-exec's sole ExtraFiles entry), executes it in a fresh Executor,
// and returns the process exit code the caller should os.Exit with. This
// mirrors the C original's subshell/background child doing
// exit(atoi(getenv("?"))) after its own recursive process() call.
func RunTrampoline() int {
	f := os.NewFile(3, "mibash-subshell-node")
	if f == nil {
		fmt.Fprintln(os.Stderr, "mibash: subshell trampoline missing inherited descriptor")
		return 1
	}
	defer f.Close()

	var node ast.Node
	if err := gob.NewDecoder(f).Decode(&node); err != nil {
		fmt.Fprintf(os.Stderr, "mibash: subshell decode failed: %v\n", err)
		return 1
	}

	e := New()
	if cmd, ok := node.(*ast.Command); ok {
		// A bare command body takes the exec path; builtins are dispatched
		// only by executeSimple at the shell's own top level.
		e.installSignalHandler()
		if pid, serr := e.runExternalStage(cmd.Argv, cmd.Locals, cmd.Stdin, cmd.Stdout); serr != nil {
			e.reportSpawnFailure(cmd.Argv[0], serr)
		} else {
			e.setForeground(pid)
			if code, werr := reaper.WaitPid(pid); werr == nil {
				e.Status = strconv.Itoa(code)
			}
		}
	} else {
		e.Process(node)
	}
	code, err := strconv.Atoi(e.Status)
	if err != nil {
		return 1
	}
	return code
}

// spawnChildProcess re-execs this binary as a subshell/background child
// running node, with locals applied as environment overrides (a child-only
// binding that never leaks back since it lives in a separate process) and
// stdin/stdout wired to the given files (nil means inherit the shell's
// own stdio). It returns the child's pid without waiting for it — callers
// (executeSubshell, executeBackground, and the pipe stage spawner) decide
// how and when to wait.
func (e *Executor) spawnChildProcess(node ast.Node, locals []ast.LocalBinding, stdin, stdout *os.File) (int, error) {
	exePath, err := os.Executable()
	if err != nil {
		return 0, err
	}

	r, w, err := os.Pipe()
	if err != nil {
		return 0, err
	}

	cmd := exec.Command(exePath, trampolineArg)
	cmd.Env = append(os.Environ(), localsToEnv(locals)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.ExtraFiles = []*os.File{r} // inherited as fd 3 in the child

	if stdin != nil {
		cmd.Stdin = stdin
	} else {
		cmd.Stdin = os.Stdin
	}
	if stdout != nil {
		cmd.Stdout = stdout
	} else {
		cmd.Stdout = e.Stdout
	}
	cmd.Stderr = e.Stderr

	if startErr := cmd.Start(); startErr != nil {
		r.Close()
		w.Close()
		if stdin != nil {
			stdin.Close()
		}
		if stdout != nil {
			stdout.Close()
		}
		return 0, startErr
	}
	r.Close() // the child has its own copy via ExtraFiles
	if stdin != nil {
		stdin.Close()
	}
	if stdout != nil {
		stdout.Close()
	}

	pid := cmd.Process.Pid
	invariant.Positive(pid, "pid")
	if encErr := gob.NewEncoder(w).Encode(&node); encErr != nil {
		w.Close()
		return pid, encErr
	}
	w.Close()
	return pid, nil
}

// executeSubshell implements SUBCMD: fork (via re-exec) a child that runs
// Body in isolation, applying this node's own local bindings and
// redirections, then wait for it and record its exit status exactly as a
// simple command's.
func (e *Executor) executeSubshell(n *ast.Subshell) {
	stdin, stdout, err := e.openRedirects(n.Stdin, n.Stdout)
	if err != nil {
		e.reportSpawnFailure("(subshell)", err)
		return
	}

	pid, err := e.spawnChildProcess(n.Body, n.Locals, stdin, stdout)
	if err != nil {
		e.reportSpawnFailure("(subshell)", err)
		return
	}

	e.setForeground(pid)
	code, waitErr := reaper.WaitPid(pid)
	e.setForeground(0)
	if waitErr != nil {
		return
	}
	e.Status = strconv.Itoa(code)
}
