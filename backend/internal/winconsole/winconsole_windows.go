//go:build windows

package winconsole

import (
	"os"
	"os/exec"
	"syscall"
)

// createNoWindow is the CREATE_NO_WINDOW process-creation flag. The child
// neither allocates a console nor inherits the parent's.
const createNoWindow = 0x08000000

// Hide marks cmd so its next spawn passes CREATE_NO_WINDOW to CreateProcess.
// Existing creation flags are preserved. Returns cmd for chaining.
func Hide(cmd *exec.Cmd) *exec.Cmd {
	if cmd == nil {
		return cmd
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= createNoWindow
	return cmd
}

// HideProcAttr applies the same flag for the os.StartProcess spawn path.
func HideProcAttr(attr *os.ProcAttr) *os.ProcAttr {
	if attr == nil {
		return attr
	}
	if attr.Sys == nil {
		attr.Sys = &syscall.SysProcAttr{}
	}
	attr.Sys.CreationFlags |= createNoWindow
	return attr
}
