package executor

import (
	"errors"
	"io"
	"os"
	"syscall"

	"github.com/tinyshell/mibash/ast"
	"github.com/tinyshell/mibash/internal/invariant"
)

// openRedirects resolves both sides of a node's redirection into *os.File
// values ready to hand to exec.Cmd.Stdin/Stdout. Go's exec.Cmd performs
// fork+exec atomically, so there is no "inside the child, after fork,
// before exec" step to run redirection in as the C original does; instead
// every file is opened here, in the parent, before the child is ever
// started, and handed over as an inherited descriptor (the same technique
// the teacher's own pipeline code uses real os.Pipe() fds for, in
// preference to an io.Pipe() that would need a copying goroutine).
//
// A nil stdin/stdout return with a nil error means "no redirection, leave
// the caller's existing wiring (pipe or terminal) alone". A non-nil error
// means the caller must not fork at all; the caller is responsible for
// reporting it and setting the executor's exit status to the errno.
func (e *Executor) openRedirects(stdin, stdout ast.Redirect) (in, out *os.File, err error) {
	in, err = e.openInput(stdin)
	if err != nil {
		return nil, nil, err
	}
	out, err = e.openOutput(stdout)
	if err != nil {
		if in != nil {
			in.Close()
		}
		return nil, nil, err
	}
	return in, out, nil
}

func (e *Executor) openInput(r ast.Redirect) (*os.File, error) {
	switch r.Kind {
	case ast.RedirectNone:
		return nil, nil
	case ast.RedirectIn:
		return os.Open(r.Target)
	case ast.RedirectInHere:
		return writeHereDoc(r.Target)
	default:
		invariant.Invariant(false, "unexpected input redirect kind %d", r.Kind)
		return nil, nil
	}
}

func (e *Executor) openOutput(r ast.Redirect) (*os.File, error) {
	switch r.Kind {
	case ast.RedirectNone:
		return nil, nil
	case ast.RedirectOut:
		return os.OpenFile(r.Target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	case ast.RedirectOutAppend:
		return os.OpenFile(r.Target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o666)
	default:
		invariant.Invariant(false, "unexpected output redirect kind %d", r.Kind)
		return nil, nil
	}
}

// writeHereDoc implements the here-document mechanism: create an anonymous
// temp file, write the body, unlink it immediately (so it vanishes the
// moment every descriptor on it is closed, exactly like the C original's
// mkstemp+unlink+write+lseek), then rewind so a fresh reader starts at the
// beginning of the body.
func writeHereDoc(body string) (*os.File, error) {
	f, err := os.CreateTemp("", "mibash-heredoc-")
	if err != nil {
		return nil, err
	}
	name := f.Name()
	if _, err := f.WriteString(body); err != nil {
		f.Close()
		os.Remove(name)
		return nil, err
	}
	if err := os.Remove(name); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// errnoExitCode extracts the errno value a failed syscall carries, matching
// the C original's convention of exiting a child with the raw errno on a
// pre-exec failure. Falls back to 1 for errors that don't wrap an errno
// (should not occur for the os package calls this executor makes).
func errnoExitCode(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 1
}
