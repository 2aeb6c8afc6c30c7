//go:build unix

package shellexec

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup puts the child in its own process group so that a
// timeout kills the command and everything it spawned. Killing only
// the shell would reparent its children to PID 1 and leave them running.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		// Negative PID targets the whole process group.
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
}
