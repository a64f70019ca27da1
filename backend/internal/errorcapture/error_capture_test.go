package errorcapture

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsErrorLine(t *testing.T) {
	require.True(t, isErrorLine("GLib-GObject-CRITICAL: error while loading"))
	require.True(t, isErrorLine("helper failed with status 1"))
	require.True(t, isErrorLine("permission denied opening /dev/tty"))
	require.False(t, isErrorLine("loaded 3 plugins"))
	require.False(t, isErrorLine(""))
}

func TestTrimBufferKeepsNewestBytes(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteString("aaaaabbbbb")

	trimBuffer(buf, 8, 4)
	require.Equal(t, "bbbb", buf.String())

	// Under the limit nothing changes.
	trimBuffer(buf, 8, 2)
	require.Equal(t, "bbbb", buf.String())
}

func TestTailString(t *testing.T) {
	require.Equal(t, "cde", tailString([]byte("abcde"), 3))
	require.Equal(t, "ab", tailString([]byte("ab"), 5))
}

func TestScanRecentError(t *testing.T) {
	require.Empty(t, scanRecentError(""))
	require.Empty(t, scanRecentError("all good\nnothing to see\n"))
	require.Equal(t, "spawn failed: exit 1", scanRecentError("starting\nspawn failed: exit 1\ndone\n"))
}

func TestCaptureIfInterestingEmitsEvents(t *testing.T) {
	c := &Capture{buffer: &bytes.Buffer{}}

	var emitted []string
	SetEventEmitter(func(msg string) { emitted = append(emitted, msg) })
	defer SetEventEmitter(nil)

	c.captureIfInteresting("regular output\nsomething failed badly\n")

	require.Equal(t, []string{"something failed badly"}, emitted)
	require.Equal(t, "something failed badly", c.last())

	c.clearLast()
	require.Empty(t, c.last())
}

func TestEnhanceAppendsStderrContext(t *testing.T) {
	global = &Capture{buffer: &bytes.Buffer{}}
	global.setLastError("webview error: renderer crashed")

	err := Enhance(errors.New("helper exited unexpectedly"))
	require.ErrorContains(t, err, "helper exited unexpectedly")
	require.ErrorContains(t, err, "renderer crashed")

	// The captured error is consumed by the first call.
	again := Enhance(errors.New("second failure"))
	require.Equal(t, "second failure", again.Error())

	require.NoError(t, Enhance(nil))
}

func TestEmitToLogSinkClassifiesLevels(t *testing.T) {
	c := &Capture{buffer: &bytes.Buffer{}}

	type sunk struct{ level, msg string }
	var got []sunk
	SetLogSink(func(level, msg string) { got = append(got, sunk{level, msg}) })
	defer SetLogSink(nil)

	c.emitToLogSink([]byte("Gtk-WARNING: theme missing\nfatal: cannot continue\nplain note\n"))

	require.Len(t, got, 3)
	require.Equal(t, "warn", got[0].level)
	require.Equal(t, "error", got[1].level)
	require.Equal(t, "info", got[2].level)
}
