package executor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/tinyshell/mibash/ast"
	"github.com/tinyshell/mibash/internal/invariant"
	"github.com/tinyshell/mibash/internal/reaper"
)

// executeSimple is the SIMPLE-node handler. Builtins are recognized only
// here — at the point where Process itself dispatches a bare *ast.Command
// — never inside a pipeline stage (spawnStage → startProcess) or a subshell
// body whose root is a bare command (RunTrampoline → runExternalStage).
// That asymmetry is the spec's own documented behavior
// (§4.9): a pipeline or subcommand's "cd" runs as the system cd, typically
// absent, rather than as the builtin.
func (e *Executor) executeSimple(n *ast.Command) {
	invariant.Precondition(len(n.Argv) > 0, "argv must not be empty")

	if fn, ok := builtins[n.Argv[0]]; ok {
		fn(e, n.Argv[1:])
		return
	}

	pid, err := e.runExternalStage(n.Argv, n.Locals, n.Stdin, n.Stdout)
	if err != nil {
		e.reportSpawnFailure(n.Argv[0], err)
		return
	}

	e.setForeground(pid)
	code, err := reaper.WaitPid(pid)
	e.setForeground(0)
	if err != nil {
		// The wait itself failed (no status was observed for this PID);
		// leave e.Status as it was rather than overwriting it with a
		// wait() failure.
		return
	}
	e.Status = strconv.Itoa(code)
}

// runExternalStage starts argv as a child with the given local bindings and
// redirections applied, without ever consulting the builtin table. It is
// shared by the top-level simple-command path and a subshell body whose
// root is a bare command; pipeline stages call startProcess directly.
func (e *Executor) runExternalStage(argv []string, locals []ast.LocalBinding, stdinR, stdoutR ast.Redirect) (pid int, err error) {
	stdinFile, stdoutFile, err := e.openRedirects(stdinR, stdoutR)
	if err != nil {
		return 0, err
	}
	return e.startProcess(argv, locals, stdinFile, stdoutFile)
}

// startProcess builds and starts argv[0] argv[1:] with explicit stdio and
// local-binding overrides, closing the parent's copies of the stdin/stdout
// files it is handed (redirection targets or pipe ends) once the child has
// inherited them, or once starting it has failed (FD hygiene). A nil stdin
// falls back to os.Stdin and a nil stdout to e.Stdout; stderr always goes
// to e.Stderr. Tests point e.Stdout/e.Stderr at buffers instead of the
// process's real stdio, per SPEC_FULL §A.2.
func (e *Executor) startProcess(argv []string, locals []ast.LocalBinding, stdin, stdout *os.File) (int, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), localsToEnv(locals)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

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

	if err := cmd.Start(); err != nil {
		if stdin != nil {
			stdin.Close()
		}
		if stdout != nil {
			stdout.Close()
		}
		return 0, err
	}
	if stdin != nil {
		stdin.Close()
	}
	if stdout != nil {
		stdout.Close()
	}

	pid := cmd.Process.Pid
	invariant.Positive(pid, "pid")
	return pid, nil
}

func localsToEnv(locals []ast.LocalBinding) []string {
	env := make([]string, len(locals))
	for i, b := range locals {
		env[i] = b.Name + "=" + b.Value
	}
	return env
}

// reportSpawnFailure covers both "fork"-equivalent failures (the exec
// package couldn't even start the process, e.g. ENOENT from PATH lookup)
// and redirection-open failures, mirroring the spec's "report via
// error-print; set ? to the errno" rule for parent-side syscall failures.
// The "did you mean" suggestion only makes sense for a genuine
// command-not-found - exec.Command resolves argv[0] via LookPath up front
// and surfaces a failed lookup as *exec.Error, which is what distinguishes
// it from a redirection target that happened to not exist.
func (e *Executor) reportSpawnFailure(name string, err error) {
	fmt.Fprintf(e.Stderr, "%s: %v\n", name, err)
	e.Status = strconv.Itoa(errnoExitCode(err))

	var lookupErr *exec.Error
	if errors.As(err, &lookupErr) {
		if suggestion := suggestCommand(name); suggestion != "" {
			fmt.Fprintf(e.Stderr, "%s: command not found. Did you mean %q?\n", name, suggestion)
		}
	}
}

// suggestCommand scans $PATH for the closest-spelled executable name, the
// same "did you mean" courtesy real shells offer, grounded on the teacher's
// planner ranking decorator-name suggestions with the same library.
func suggestCommand(name string) string {
	candidates := pathExecutables()
	if len(candidates) == 0 {
		return ""
	}
	ranked := fuzzy.RankFindFold(name, candidates)
	if len(ranked) == 0 {
		return ""
	}
	return ranked[0].Target
}

func pathExecutables() []string {
	var names []string
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				names = append(names, entry.Name())
			}
		}
	}
	return names
}
