package reaper

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitPidReturnsExitCode(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 3")
	require.NoError(t, cmd.Start())

	code, err := WaitPid(cmd.Process.Pid)
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}

func TestWaitPidSuccess(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, cmd.Start())

	code, err := WaitPid(cmd.Process.Pid)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestReapAnyNonBlockingNoChildren(t *testing.T) {
	_, found, _ := ReapAny()
	assert.False(t, found)
}

func TestWaitAnyBlockingReapsStartedChild(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid

	r, err := WaitAnyBlocking()
	require.NoError(t, err)
	assert.Equal(t, pid, r.Pid)
	assert.Equal(t, 0, r.ExitCode)
}
