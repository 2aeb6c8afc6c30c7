//go:build windows

package shellexec

import "os/exec"

// setProcessGroup is a no-op on Windows; exec.CommandContext kills the
// process directly when the context expires.
func setProcessGroup(cmd *exec.Cmd) {}
