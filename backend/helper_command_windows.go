//go:build windows

package backend

import (
	"fmt"
	"os/exec"
)

// setSessionProcAttr needs no extra attributes on Windows; tree termination
// goes through taskkill instead of process groups.
func setSessionProcAttr(cmd *exec.Cmd) {}

// terminateProcessTree stops the helper and its children via taskkill. The
// taskkill invocation is itself a hidden command, otherwise stopping a helper
// would flash the very console window the suppressor exists to prevent.
func terminateProcessTree(pid int, force bool) error {
	args := []string{"/T", "/PID", fmt.Sprintf("%d", pid)}
	if force {
		args = append(args, "/F")
	}
	return hiddenCommand("taskkill", args...).Run()
}
