//go:build !windows

package backend

import (
	"os/exec"
	"syscall"
)

// setSessionProcAttr places the helper in its own process group so a stop
// request can signal the helper and everything it spawned in one call.
// Applied before winconsole.Hide would be a no-op ordering concern here, but
// Hide is OR-based and order-independent off Windows anyway.
func setSessionProcAttr(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// terminateProcessTree signals the helper's process group, SIGTERM first and
// SIGKILL when force is requested. The caller retries with force after a
// grace period.
func terminateProcessTree(pid int, force bool) error {
	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	// Negative pid addresses the whole process group.
	if err := syscall.Kill(-pid, sig); err != nil {
		// Fall back to the single process when it was not a group leader.
		return syscall.Kill(pid, sig)
	}
	return nil
}
