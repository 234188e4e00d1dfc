package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tinyshell/mibash/internal/invariant"
)

// builtins maps a SIMPLE command's argv[0] to its in-process handler. Every
// entry here runs in the shell process itself (no fork), per §4.9 — and,
// per the same section, is reachable only through executeSimple, never
// through a pipeline stage or a subshell body whose root is a bare command.
var builtins = map[string]func(e *Executor, args []string){
	"cd":    (*Executor).builtinCd,
	"pushd": (*Executor).builtinPushd,
	"popd":  (*Executor).builtinPopd,
}

// builtinCd implements the cd family of path-resolution rules exactly as
// the original: an absolute argument replaces cwd outright; "." is a
// success no-op; "./..." and "../..." are resolved against cwd explicitly
// rather than relying on the kernel's own relative-path handling, matching
// the C source's manual path construction. Any other argument is treated
// as plain-relative.
func (e *Executor) builtinCd(args []string) {
	var target string
	switch {
	case len(args) == 0:
		target = os.Getenv("HOME")
	case len(args) > 1:
		fmt.Fprintln(e.Stderr, "usage: cd OR cd <dirName>")
		e.Status = "1"
		return
	default:
		target = e.resolveCdArg(args[0])
		if target == "" {
			// "." resolved to a no-op success.
			e.Status = "0"
			return
		}
	}
	e.chdirOrFail(target)
}

// resolveCdArg resolves one cd argument into an absolute target path, or
// returns "" for the "." no-op case. The ".." branch keys on the argument's
// first two characters being dots - not on a full ".." or "../" match - so
// "..foo" and "..." resolve against the parent directory exactly as
// original_source/process.c's argv[1][0]=='.' && argv[1][1]=='.' check does,
// rather than falling through to plain-relative resolution.
func (e *Executor) resolveCdArg(arg string) string {
	switch {
	case strings.HasPrefix(arg, "/"):
		return arg
	case arg == ".":
		return ""
	case strings.HasPrefix(arg, "./"):
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, arg[len("./"):])
	case len(arg) >= 2 && arg[0] == '.' && arg[1] == '.':
		cwd, _ := os.Getwd()
		parent := filepath.Dir(cwd)
		suffix := strings.TrimPrefix(arg[2:], string(filepath.Separator))
		if suffix == "" {
			return parent
		}
		return filepath.Join(parent, suffix)
	default:
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, arg)
	}
}

// chdirOrFail performs the chdir and sets ? per the spec's rule: errno on
// failure (preserved deliberately; see DESIGN.md Open Question), "0" on
// success.
func (e *Executor) chdirOrFail(target string) {
	if err := os.Chdir(target); err != nil {
		fmt.Fprintf(e.Stderr, "cd: chdir fail: %v\n", err)
		e.Status = strconv.Itoa(errnoExitCode(err))
		return
	}
	e.Status = "0"
}

// builtinPushd pushes the current directory onto the stack, then cds to
// the supplied argument; on failure the just-pushed entry is popped again
// so the stack is left unchanged.
func (e *Executor) builtinPushd(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(e.Stderr, "usage: pushd <dirName>")
		e.Status = "1"
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(e.Stderr, "pushd: getwd fail: %v\n", err)
		e.Status = strconv.Itoa(errnoExitCode(err))
		return
	}
	e.DirStack = append(e.DirStack, cwd)

	target := e.resolveCdArg(args[0])
	if target == "" {
		target = cwd // "." — no-op, still a successful pushd of cwd onto itself
	}
	if err := os.Chdir(target); err != nil {
		e.DirStack = e.DirStack[:len(e.DirStack)-1]
		fmt.Fprintf(e.Stderr, "cd: chdir fail: %v\n", err)
		e.Status = strconv.Itoa(errnoExitCode(err))
		return
	}
	e.Status = "0"
	e.printDirStack()
}

// builtinPopd pops the top of the stack and cds to it.
func (e *Executor) builtinPopd(args []string) {
	if len(args) != 0 {
		fmt.Fprintln(e.Stderr, "usage: popd")
		e.Status = "1"
		return
	}
	if len(e.DirStack) == 0 {
		fmt.Fprintln(e.Stderr, "popd: dir stack empty")
		e.Status = "1"
		return
	}

	top := e.DirStack[len(e.DirStack)-1]
	e.DirStack = e.DirStack[:len(e.DirStack)-1]

	if err := os.Chdir(top); err != nil {
		fmt.Fprintf(e.Stderr, "cd: chdir fail: %v\n", err)
		e.Status = strconv.Itoa(errnoExitCode(err))
		return
	}
	e.Status = "0"
	e.printDirStack()
}

// printDirStack writes "<cwd> <stack top> <stack top-1> ... <stack bottom>"
// to stdout, the shared pushd/popd listing format.
func (e *Executor) printDirStack() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	parts := make([]string, 0, len(e.DirStack)+1)
	parts = append(parts, cwd)
	for i := len(e.DirStack) - 1; i >= 0; i-- {
		parts = append(parts, e.DirStack[i])
	}
	invariant.Postcondition(len(parts) == len(e.DirStack)+1, "dir stack listing must list cwd plus every stack entry")
	fmt.Fprintln(e.Stdout, strings.Join(parts, " "))
}
