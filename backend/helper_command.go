package backend

import (
	"context"
	"os/exec"

	"github.com/maestrodesk/app/backend/internal/winconsole"
)

// hiddenCommand returns a command that will spawn without flashing a console
// window on Windows. Every backend spawn goes through here or
// hiddenCommandContext so no call site can forget the treatment.
func hiddenCommand(name string, arg ...string) *exec.Cmd {
	cmd := exec.Command(name, arg...)
	// Prevent inherited stdin so shells cannot block waiting for input.
	cmd.Stdin = nil
	return winconsole.Hide(cmd)
}

// hiddenCommandContext is the context-aware variant of hiddenCommand.
func hiddenCommandContext(ctx context.Context, name string, arg ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Stdin = nil
	return winconsole.Hide(cmd)
}
