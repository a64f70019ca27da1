//go:build windows

package winconsole

import (
	"os"
	"os/exec"
	"syscall"
	"testing"
)

func TestHideSetsCreateNoWindow(t *testing.T) {
	cmd := exec.Command("cmd", "/c", "exit", "0")
	Hide(cmd)

	if cmd.SysProcAttr == nil {
		t.Fatalf("expected SysProcAttr to be allocated")
	}
	if cmd.SysProcAttr.CreationFlags != 0x08000000 {
		t.Fatalf("unexpected creation flags: %#x", cmd.SysProcAttr.CreationFlags)
	}
}

func TestHidePreservesExistingCreationFlags(t *testing.T) {
	cmd := exec.Command("cmd", "/c", "exit", "0")
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: 0x00000200} // CREATE_NEW_PROCESS_GROUP
	Hide(cmd)

	if cmd.SysProcAttr.CreationFlags != 0x08000200 {
		t.Fatalf("expected merged creation flags 0x08000200, got %#x", cmd.SysProcAttr.CreationFlags)
	}
}

func TestHideIsIdempotent(t *testing.T) {
	cmd := exec.Command("cmd", "/c", "exit", "0")
	Hide(Hide(cmd))

	if cmd.SysProcAttr.CreationFlags != 0x08000000 {
		t.Fatalf("expected idempotent creation flags, got %#x", cmd.SysProcAttr.CreationFlags)
	}
}

func TestHidePreservesOtherSysProcAttrFields(t *testing.T) {
	cmd := exec.Command("cmd", "/c", "exit", "0")
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	Hide(cmd)

	if !cmd.SysProcAttr.HideWindow {
		t.Fatalf("expected HideWindow to be preserved")
	}
	if cmd.SysProcAttr.CreationFlags&0x08000000 == 0 {
		t.Fatalf("expected CREATE_NO_WINDOW to be set, got %#x", cmd.SysProcAttr.CreationFlags)
	}
}

func TestHideProcAttrSetsCreateNoWindow(t *testing.T) {
	attr := &os.ProcAttr{Sys: &syscall.SysProcAttr{CreationFlags: 0x00000200}}
	HideProcAttr(attr)

	if attr.Sys.CreationFlags != 0x08000200 {
		t.Fatalf("expected merged creation flags 0x08000200, got %#x", attr.Sys.CreationFlags)
	}
}

func TestHiddenSpawnExitsCleanly(t *testing.T) {
	cmd := Hide(exec.Command("cmd", "/c", "exit", "0"))
	if err := cmd.Run(); err != nil {
		t.Fatalf("expected hidden spawn to succeed: %v", err)
	}
}
