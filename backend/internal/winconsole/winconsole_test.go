package winconsole

import (
	"os"
	"os/exec"
	"testing"
)

func TestHideReturnsSameCommand(t *testing.T) {
	cmd := exec.Command("echo", "hello")
	if got := Hide(cmd); got != cmd {
		t.Fatalf("expected Hide to return its argument, got %p want %p", got, cmd)
	}
}

func TestHideNilCommand(t *testing.T) {
	if got := Hide(nil); got != nil {
		t.Fatalf("expected nil command to pass through, got %v", got)
	}
}

func TestHideProcAttrReturnsSameAttr(t *testing.T) {
	attr := &os.ProcAttr{}
	if got := HideProcAttr(attr); got != attr {
		t.Fatalf("expected HideProcAttr to return its argument, got %p want %p", got, attr)
	}
	if got := HideProcAttr(nil); got != nil {
		t.Fatalf("expected nil attr to pass through, got %v", got)
	}
}

func TestHidePreservesCommandConfiguration(t *testing.T) {
	cmd := exec.Command("echo", "a")
	Hide(cmd)
	cmd.Args = append(cmd.Args, "b")

	if len(cmd.Args) != 3 || cmd.Args[1] != "a" || cmd.Args[2] != "b" {
		t.Fatalf("unexpected args after chaining: %v", cmd.Args)
	}
	if cmd.Path == "" {
		t.Fatalf("expected resolved path to survive Hide")
	}
}

func TestHideIsIdempotentOnCommandIdentity(t *testing.T) {
	cmd := exec.Command("echo")
	if got := Hide(Hide(cmd)); got != cmd {
		t.Fatalf("expected repeated Hide to keep returning the same command")
	}
}
