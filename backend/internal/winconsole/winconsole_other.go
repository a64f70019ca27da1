//go:build !windows

package winconsole

import (
	"os"
	"os/exec"
)

// Hide is a no-op on non-Windows platforms. Returns cmd for chaining.
func Hide(cmd *exec.Cmd) *exec.Cmd {
	return cmd
}

// HideProcAttr is a no-op on non-Windows platforms.
func HideProcAttr(attr *os.ProcAttr) *os.ProcAttr {
	return attr
}
