package executor

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/tinyshell/mibash/ast"
	"github.com/tinyshell/mibash/internal/invariant"
	"github.com/tinyshell/mibash/internal/reaper"
)

// flattenPipe performs the in-order walk the spec requires: emit every
// non-Pipe descendant of a PIPE subtree in left-to-right order, regardless
// of whether the parser built a left- or right-leaning tree for `a|b|c`.
func flattenPipe(node ast.Node) []ast.Node {
	p, ok := node.(*ast.Pipe)
	if !ok {
		return []ast.Node{node}
	}
	return append(flattenPipe(p.Left), flattenPipe(p.Right)...)
}

// stageInfo pulls the fields relevant to pipeline wiring out of a stage
// node, which the AST invariants guarantee is either a Command or a
// Subshell (the only kinds that carry redirections).
type stageInfo struct {
	locals        []ast.LocalBinding
	stdin, stdout ast.Redirect
}

func nodeStageInfo(node ast.Node) stageInfo {
	switch n := node.(type) {
	case *ast.Command:
		return stageInfo{locals: n.Locals, stdin: n.Stdin, stdout: n.Stdout}
	case *ast.Subshell:
		return stageInfo{locals: n.Locals, stdin: n.Stdin, stdout: n.Stdout}
	default:
		invariant.Invariant(false, "pipe stage must be Command or Subshell, got %T", node)
		return stageInfo{}
	}
}

// spawnStage starts one pipeline stage with the given pipe-wiring defaults,
// which a stage's own redirection may override (per §4.4: "applies
// redirections, which may override the pipe wiring for that stage's
// endpoint").
func (e *Executor) spawnStage(node ast.Node, applyLocals bool, pipeStdin, pipeStdout *os.File) (pid int, err error) {
	info := nodeStageInfo(node)

	redirStdin, redirStdout, err := e.openRedirects(info.stdin, info.stdout)
	if err != nil {
		return 0, err
	}

	effStdin := redirStdin
	if effStdin == nil {
		effStdin = pipeStdin
	}
	effStdout := redirStdout
	if effStdout == nil {
		effStdout = pipeStdout
	}

	var locals []ast.LocalBinding
	if applyLocals {
		locals = info.locals
	}

	switch n := node.(type) {
	case *ast.Command:
		return e.startProcess(n.Argv, locals, effStdin, effStdout)
	case *ast.Subshell:
		return e.spawnChildProcess(n.Body, locals, effStdin, effStdout)
	default:
		invariant.Invariant(false, "pipe stage must be Command or Subshell, got %T", node)
		return 0, nil
	}
}

// executePipe implements PIPE: flatten to N stages, wire N-1 real OS pipes
// between them, launch every stage before waiting on any, then reap the
// pipeline to completion while still servicing unrelated background
// zombies that happen to reap during the wait.
func (e *Executor) executePipe(root *ast.Pipe) {
	stages := flattenPipe(root)
	invariant.Invariant(len(stages) >= 2, "flattened pipeline must have at least 2 stages, got %d", len(stages))

	n := len(stages)
	readEnds := make([]*os.File, n-1)
	writeEnds := make([]*os.File, n-1)
	for i := 0; i < n-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			fmt.Fprintf(e.Stderr, "pipe: %v\n", err)
			e.Status = strconv.Itoa(errnoExitCode(err))
			return
		}
		readEnds[i] = r
		writeEnds[i] = w
	}

	pipelineStatus := 0
	members := make(map[int]bool, n)
	for i, stage := range stages {
		var pipeStdin, pipeStdout *os.File
		if i > 0 {
			pipeStdin = readEnds[i-1]
		}
		if i < n-1 {
			pipeStdout = writeEnds[i]
		}

		pid, err := e.spawnStage(stage, i == 0, pipeStdin, pipeStdout)

		// The parent never needs its own copy of a pipe descriptor once the
		// stage that should inherit it has been started (or has failed to
		// start). startProcess/spawnChildProcess already close a pipe end
		// they were handed, so "already closed" is expected here; any other
		// close error is a bookkeeping bug.
		if i > 0 {
			if cerr := readEnds[i-1].Close(); !errors.Is(cerr, os.ErrClosed) {
				invariant.ExpectNoError(cerr, "close parent's copy of pipe read end")
			}
		}
		if i < n-1 {
			if cerr := writeEnds[i].Close(); !errors.Is(cerr, os.ErrClosed) {
				invariant.ExpectNoError(cerr, "close parent's copy of pipe write end")
			}
		}

		if err != nil {
			// A stage that cannot start counts as a failed stage, the way a
			// forked child whose exec fails exits with the errno.
			fmt.Fprintf(e.Stderr, "%v\n", err)
			pipelineStatus = errnoExitCode(err)
			continue
		}
		members[pid] = true
	}

	remaining := len(members)
	for remaining > 0 {
		r, err := reaper.WaitAnyBlocking()
		if err != nil {
			break
		}
		if members[r.Pid] {
			if r.ExitCode != 0 {
				pipelineStatus = r.ExitCode
			}
			delete(members, r.Pid)
			remaining--
			continue
		}
		e.Zombies--
		fmt.Fprintf(e.Stderr, "Completed: %d (%d)\n", r.Pid, r.ExitCode)
	}
	e.Status = strconv.Itoa(pipelineStatus)
}
