package executor

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyshell/mibash/ast"
)

// TestMain lets the test binary serve as the subshell/background trampoline:
// spawnChildProcess re-execs os.Executable(), which under `go test` is this
// binary rather than cmd/mibash.
func TestMain(m *testing.M) {
	if IsTrampolineInvocation(os.Args) {
		os.Exit(RunTrampoline())
	}
	os.Exit(m.Run())
}

func newTestExecutor() (*Executor, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	e := New()
	e.Stdout = &stdout
	e.Stderr = &stderr
	return e, &stdout, &stderr
}

// S1: echo hello -> stdout "hello\n", ? "0"
func TestSimpleCommand(t *testing.T) {
	e, stdout, _ := newTestExecutor()
	e.Process(&ast.Command{Argv: []string{"echo", "hello"}})
	assert.Equal(t, "0", e.Status)
	assert.Equal(t, "hello\n", stdout.String())
}

// S2: echo a | tr a-z A-Z -> stdout "A\n"
func TestPipelineConnectivity(t *testing.T) {
	e, stdout, _ := newTestExecutor()
	tree := &ast.Pipe{
		Left:  &ast.Command{Argv: []string{"echo", "a"}},
		Right: &ast.Command{Argv: []string{"tr", "a-z", "A-Z"}},
	}
	e.Process(tree)
	require.Equal(t, "0", e.Status)
	assert.Equal(t, "A\n", stdout.String())
}

// Pipelines of 3+ stages must flatten correctly regardless of tree shape.
func TestPipelineThreeStagesFlattensEitherShape(t *testing.T) {
	leftLeaning := &ast.Pipe{
		Left: &ast.Pipe{
			Left:  &ast.Command{Argv: []string{"printf", "%s\\n", "b", "a", "c"}},
			Right: &ast.Command{Argv: []string{"sort"}},
		},
		Right: &ast.Command{Argv: []string{"head", "-n", "1"}},
	}
	e, stdout, _ := newTestExecutor()
	e.Process(leftLeaning)
	require.Equal(t, "0", e.Status)
	assert.Equal(t, "a\n", stdout.String())
}

// S3: false && echo unreachable -> stdout empty, ? "1"
func TestAndShortCircuits(t *testing.T) {
	e, stdout, _ := newTestExecutor()
	e.Process(&ast.And{
		Left:  &ast.Command{Argv: []string{"false"}},
		Right: &ast.Command{Argv: []string{"echo", "unreachable"}},
	})
	assert.Equal(t, "1", e.Status)
	assert.Equal(t, "", stdout.String())
}

// S4: false || echo ok -> stdout "ok\n", ? "0"
func TestOrRunsRightOnFailure(t *testing.T) {
	e, stdout, _ := newTestExecutor()
	e.Process(&ast.Or{
		Left:  &ast.Command{Argv: []string{"false"}},
		Right: &ast.Command{Argv: []string{"echo", "ok"}},
	})
	assert.Equal(t, "0", e.Status)
	assert.Equal(t, "ok\n", stdout.String())
}

func TestOrSkipsRightOnSuccess(t *testing.T) {
	e, stdout, _ := newTestExecutor()
	e.Process(&ast.Or{
		Left:  &ast.Command{Argv: []string{"true"}},
		Right: &ast.Command{Argv: []string{"echo", "unreachable"}},
	})
	assert.Equal(t, "0", e.Status)
	assert.Equal(t, "", stdout.String())
}

func TestSequenceRunsBothUnconditionally(t *testing.T) {
	e, stdout, _ := newTestExecutor()
	e.Process(&ast.Sequence{
		Left:  &ast.Command{Argv: []string{"false"}},
		Right: &ast.Command{Argv: []string{"echo", "second"}},
	})
	assert.Equal(t, "0", e.Status)
	assert.Equal(t, "second\n", stdout.String())
}

// S5: pushd /tmp from some starting directory.
func TestPushdPopdRoundTrip(t *testing.T) {
	start, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(start)

	tmp := t.TempDir()

	e, stdout, _ := newTestExecutor()
	e.Process(&ast.Command{Argv: []string{"pushd", tmp}})
	require.Equal(t, "0", e.Status)
	assert.Contains(t, stdout.String(), tmp)
	assert.Equal(t, []string{start}, e.DirStack)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, resolveSymlinks(t, tmp), resolveSymlinks(t, cwd))

	stdout.Reset()
	e.Process(&ast.Command{Argv: []string{"popd"}})
	require.Equal(t, "0", e.Status)
	assert.Empty(t, e.DirStack)

	cwd, err = os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, resolveSymlinks(t, start), resolveSymlinks(t, cwd))
}

func TestPopdOnEmptyStack(t *testing.T) {
	e, _, stderr := newTestExecutor()
	e.Process(&ast.Command{Argv: []string{"popd"}})
	assert.Equal(t, "1", e.Status)
	assert.Contains(t, stderr.String(), "popd: dir stack empty")
}

func TestCdUsageError(t *testing.T) {
	e, _, stderr := newTestExecutor()
	e.Process(&ast.Command{Argv: []string{"cd", "a", "b"}})
	assert.Equal(t, "1", e.Status)
	assert.Contains(t, stderr.String(), "usage: cd OR cd <dirName>")
}

func TestCdDotIsNoopSuccess(t *testing.T) {
	start, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(start)

	e, _, _ := newTestExecutor()
	e.Process(&ast.Command{Argv: []string{"cd", "."}})
	assert.Equal(t, "0", e.Status)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, resolveSymlinks(t, start), resolveSymlinks(t, cwd))
}

// §4.9: an argument starting with ".." resolves against the parent
// directory even without a path separator after the dots (e.g. "..sibling"),
// matching original_source/process.c's argv[1][0]=='.' && argv[1][1]=='.'
// check rather than a strict ".." or "../" match.
func TestCdDotDotPrefixResolvesAgainstParent(t *testing.T) {
	start, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(start)

	base := t.TempDir()
	child := filepath.Join(base, "child")
	sibling := filepath.Join(base, "sibling")
	require.NoError(t, os.Mkdir(child, 0o755))
	require.NoError(t, os.Mkdir(sibling, 0o755))
	require.NoError(t, os.Chdir(child))

	e, _, _ := newTestExecutor()
	e.Process(&ast.Command{Argv: []string{"cd", "..sibling"}})
	assert.Equal(t, "0", e.Status)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, resolveSymlinks(t, sibling), resolveSymlinks(t, cwd))
}

// Builtins must only be reachable from the top-level SIMPLE dispatch, not
// from inside a pipeline stage (§4.9 — documented, not a bug).
func TestCdUnreachableInsidePipeline(t *testing.T) {
	e, _, stderr := newTestExecutor()
	e.Process(&ast.Pipe{
		Left:  &ast.Command{Argv: []string{"cd", "/tmp"}},
		Right: &ast.Command{Argv: []string{"cat"}},
	})
	// The system has no "cd" executable, so this must fail to spawn.
	assert.NotEqual(t, "0", e.Status)
	assert.Contains(t, stderr.String(), "cd")
}

// S7: redirect a nonexistent file onto stdin; reports ENOENT, no fork.
func TestRedirectInputMissingFile(t *testing.T) {
	e, _, stderr := newTestExecutor()
	e.Process(&ast.Command{
		Argv:  []string{"cat"},
		Stdin: ast.Redirect{Kind: ast.RedirectIn, Target: filepath.Join(t.TempDir(), "nonexistent")},
	})
	assert.NotEqual(t, "0", e.Status)
	assert.Contains(t, stderr.String(), "cat")
	assert.Contains(t, stderr.String(), "no such file")
}

func TestRedirectOutputTruncatesThenWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	e, _, _ := newTestExecutor()
	e.Process(&ast.Command{
		Argv:   []string{"echo", "fresh"},
		Stdout: ast.Redirect{Kind: ast.RedirectOut, Target: path},
	})
	require.Equal(t, "0", e.Status)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh\n", string(got))
}

func TestRedirectOutputAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o644))

	e, _, _ := newTestExecutor()
	e.Process(&ast.Command{
		Argv:   []string{"echo", "second"},
		Stdout: ast.Redirect{Kind: ast.RedirectOutAppend, Target: path},
	})
	require.Equal(t, "0", e.Status)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(got))
}

func TestHereDocument(t *testing.T) {
	e, stdout, _ := newTestExecutor()
	e.Process(&ast.Command{
		Argv:  []string{"cat"},
		Stdin: ast.Redirect{Kind: ast.RedirectInHere, Target: "line one\nline two\n"},
	})
	require.Equal(t, "0", e.Status)
	assert.Equal(t, "line one\nline two\n", stdout.String())
}

func TestLocalBindingsVisibleToChildNotToParent(t *testing.T) {
	e, stdout, _ := newTestExecutor()
	e.Process(&ast.Command{
		Argv:   []string{"sh", "-c", "echo $GREETING"},
		Locals: []ast.LocalBinding{{Name: "GREETING", Value: "hi"}},
	})
	require.Equal(t, "0", e.Status)
	assert.Equal(t, "hi\n", stdout.String())
	assert.Equal(t, "", os.Getenv("GREETING"))
}

func TestSubshellExitStatusIsolated(t *testing.T) {
	e, _, _ := newTestExecutor()
	e.Process(&ast.Subshell{
		Body: &ast.Command{Argv: []string{"sh", "-c", "exit 7"}},
	})
	assert.Equal(t, "7", e.Status)
}

func resolveSymlinks(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return resolved
}
