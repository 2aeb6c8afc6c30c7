//go:build unix

package shellexec_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolhost/toolhost/pkg/defaults"
	"github.com/toolhost/toolhost/pkg/shellexec"
)

func TestCheckBlocksDestructiveCommands(t *testing.T) {
	r := shellexec.NewRunner(t.TempDir(), nil)

	blocked := []string{
		"rm -rf /",
		"sudo rm   -rf  /",
		"mkfs.ext4 /dev/sda1",
		"dd if=/dev/zero of=/dev/sda",
		":(){ :|:& };:",
		"shutdown -h now",
		"reboot",
		"echo junk > /dev/sda",
		"cat image.iso >> /dev/nvme0n1",
	}
	for _, cmd := range blocked {
		pattern, err := r.Check(cmd)
		require.Error(t, err, "command %q should be blocked", cmd)
		assert.True(t, errors.Is(err, shellexec.ErrDenied))
		assert.NotEmpty(t, pattern)
	}
}

func TestCheckAllowsOrdinaryCommands(t *testing.T) {
	r := shellexec.NewRunner(t.TempDir(), nil)

	for _, cmd := range []string{"ls -la", "echo hello", "rm -rf ./build", "git status"} {
		_, err := r.Check(cmd)
		assert.NoError(t, err, "command %q should be allowed", cmd)
	}
}

func TestCheckExtraPatterns(t *testing.T) {
	r := shellexec.NewRunner(t.TempDir(), []string{"curl"})

	_, err := r.Check("curl https://example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shellexec.ErrDenied))
}

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	r := shellexec.NewRunner(t.TempDir(), nil)

	res, err := r.Run(context.Background(), "echo out; echo err >&2; exit 3", 10, "")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.False(t, res.TimedOut)
}

func TestRunRejectsDeniedCommand(t *testing.T) {
	r := shellexec.NewRunner(t.TempDir(), nil)

	_, err := r.Run(context.Background(), "shutdown now", 10, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shellexec.ErrDenied))
}

func TestRunTimeoutReturnsPartialOutput(t *testing.T) {
	r := shellexec.NewRunner(t.TempDir(), nil)

	res, err := r.Run(context.Background(), "echo started; sleep 30", 1, "")
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, -1, res.ExitCode)
	assert.Equal(t, "started\n", res.Stdout)
}

func TestRunCapsOutput(t *testing.T) {
	r := shellexec.NewRunner(t.TempDir(), nil)

	res, err := r.Run(context.Background(), "yes a | head -c 300000", 30, "")
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Len(t, res.Stdout, defaults.ShellOutputCap)
}

func TestRunWorkDirOverride(t *testing.T) {
	base := t.TempDir()
	sub := filepath.Join(base, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	r := shellexec.NewRunner(base, nil)

	res, err := r.Run(context.Background(), "pwd", 10, sub)
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "sub")
}

func TestRunEmptyCommand(t *testing.T) {
	r := shellexec.NewRunner(t.TempDir(), nil)
	_, err := r.Run(context.Background(), "   ", 10, "")
	require.Error(t, err)
}
