package backend

import (
	"context"
	"os"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutPOSIX(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("helper runner tests use POSIX commands")
	}
}

// eventRecorder captures frontend events emitted during a test.
type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	name string
	args []interface{}
}

func (r *eventRecorder) record(_ context.Context, name string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{name: name, args: args})
}

func (r *eventRecorder) named(name string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matches []recordedEvent
	for _, event := range r.events {
		if event.name == name {
			matches = append(matches, event)
		}
	}
	return matches
}

func newHelperTestApp(t *testing.T, catalogYAML string) (*App, *eventRecorder) {
	t.Helper()
	setTestConfigEnv(t)

	app := NewApp()
	app.Ctx = context.Background()

	recorder := &eventRecorder{}
	app.eventEmitter = recorder.record

	path, err := app.getHelperCatalogPath()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o644))

	return app, recorder
}

func TestRunHelperCapturesOutput(t *testing.T) {
	skipWithoutPOSIX(t)
	app, _ := newHelperTestApp(t, `
helpers:
  - name: greet
    command: sh
    args: ["-c", "echo hello"]
`)

	result, err := app.RunHelper("greet", nil)
	require.NoError(t, err)
	require.Equal(t, 0, result.ExitCode)
	require.Equal(t, "hello\n", result.Stdout)
	require.Empty(t, result.Stderr)
	require.False(t, result.TimedOut)
}

func TestRunHelperAppendsExtraArgs(t *testing.T) {
	skipWithoutPOSIX(t)
	app, _ := newHelperTestApp(t, `
helpers:
  - name: echo
    command: echo
    args: ["a"]
`)

	result, err := app.RunHelper("echo", []string{"b"})
	require.NoError(t, err)
	require.Equal(t, "a b\n", result.Stdout)
}

func TestRunHelperReportsNonZeroExit(t *testing.T) {
	skipWithoutPOSIX(t)
	app, _ := newHelperTestApp(t, `
helpers:
  - name: fail
    command: sh
    args: ["-c", "echo oops >&2; exit 3"]
`)

	result, err := app.RunHelper("fail", nil)
	require.NoError(t, err)
	require.Equal(t, 3, result.ExitCode)
	require.Contains(t, result.Stderr, "oops")
}

func TestRunHelperTimesOut(t *testing.T) {
	skipWithoutPOSIX(t)
	app, _ := newHelperTestApp(t, `
helpers:
  - name: slow
    command: sleep
    args: ["10"]
    timeoutSeconds: 1
`)

	result, err := app.RunHelper("slow", nil)
	require.NoError(t, err)
	require.True(t, result.TimedOut)
	require.Equal(t, -1, result.ExitCode)
}

func TestRunHelperUnknownName(t *testing.T) {
	app, _ := newHelperTestApp(t, "helpers: []\n")

	_, err := app.RunHelper("missing", nil)
	require.ErrorContains(t, err, "unknown helper")
}

func TestRunHelperUnresolvableCommand(t *testing.T) {
	skipWithoutPOSIX(t)
	app, _ := newHelperTestApp(t, `
helpers:
  - name: ghost
    command: definitely-not-a-command-on-this-machine
`)

	_, err := app.RunHelper("ghost", nil)
	require.ErrorContains(t, err, "failed to run helper")
}

func TestStartHelperStreamsOutputAndReaps(t *testing.T) {
	skipWithoutPOSIX(t)
	app, recorder := newHelperTestApp(t, `
helpers:
  - name: greet
    command: sh
    args: ["-c", "echo hello"]
`)

	info, err := app.StartHelper("greet", nil)
	require.NoError(t, err)
	require.NotEmpty(t, info.ID)
	require.Equal(t, "greet", info.Name)

	// The reaper removes the session once the helper exits.
	assert.Eventually(t, func() bool {
		return len(app.ListHelperSessions()) == 0
	}, 5*time.Second, 20*time.Millisecond)

	statuses := recorder.named(helperStatusEventName)
	require.GreaterOrEqual(t, len(statuses), 2)

	outputs := recorder.named(helperOutputEventName)
	require.NotEmpty(t, outputs)
	payload, ok := outputs[0].args[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, info.ID, payload["sessionId"])
	require.Contains(t, payload["data"], "hello")
}

func TestStartHelperUnknownName(t *testing.T) {
	app, _ := newHelperTestApp(t, "helpers: []\n")

	_, err := app.StartHelper("missing", nil)
	require.ErrorContains(t, err, "unknown helper")
}

func TestStopHelperTerminatesSession(t *testing.T) {
	skipWithoutPOSIX(t)
	app, _ := newHelperTestApp(t, `
helpers:
  - name: wait
    command: sleep
    args: ["60"]
`)

	info, err := app.StartHelper("wait", nil)
	require.NoError(t, err)
	require.Len(t, app.ListHelperSessions(), 1)

	require.NoError(t, app.StopHelper(info.ID))
	assert.Eventually(t, func() bool {
		return len(app.ListHelperSessions()) == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStopHelperUnknownSession(t *testing.T) {
	app, _ := newHelperTestApp(t, "helpers: []\n")

	err := app.StopHelper("nope")
	require.ErrorIs(t, err, errHelperSessionNotFound)
	require.ErrorContains(t, err, "nope")
}

func TestStopAllHelpers(t *testing.T) {
	skipWithoutPOSIX(t)
	app, _ := newHelperTestApp(t, `
helpers:
  - name: wait
    command: sleep
    args: ["60"]
`)

	for i := 0; i < 3; i++ {
		_, err := app.StartHelper("wait", nil)
		require.NoError(t, err)
	}
	require.Len(t, app.ListHelperSessions(), 3)

	require.NoError(t, app.StopAllHelpers())
	assert.Eventually(t, func() bool {
		return len(app.ListHelperSessions()) == 0
	}, 10*time.Second, 20*time.Millisecond)
}

func TestReloadHelperCatalogPicksUpEdits(t *testing.T) {
	app, _ := newHelperTestApp(t, "helpers: []\n")

	specs, err := app.GetHelperCatalog()
	require.NoError(t, err)
	require.Empty(t, specs)

	path, err := app.getHelperCatalogPath()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("helpers:\n  - name: fmt\n    command: gofmt\n"), 0o644))

	require.NoError(t, app.ReloadHelperCatalog())

	specs, err = app.GetHelperCatalog()
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.Equal(t, "fmt", specs[0].Name)
}

func TestExitCodeFromError(t *testing.T) {
	skipWithoutPOSIX(t)
	cmd := hiddenCommand("sh", "-c", "exit 7")
	err := cmd.Run()
	require.Error(t, err)
	require.Equal(t, 7, exitCodeFromError(err))

	require.Equal(t, -1, exitCodeFromError(os.ErrNotExist))
}

func TestHiddenCommandHasNoStdin(t *testing.T) {
	cmd := hiddenCommand("echo")
	require.Nil(t, cmd.Stdin)

	ctxCmd := hiddenCommandContext(context.Background(), "echo")
	require.Nil(t, ctxCmd.Stdin)
	require.NotNil(t, ctxCmd)
}

func TestHelperSessionInfoReflectsExit(t *testing.T) {
	session := &helperSession{id: "s", name: "n", startedAt: time.Now()}
	running := session.info()
	require.True(t, running.Running)

	session.markFinished(2)
	finished := session.info()
	require.False(t, finished.Running)
	require.Equal(t, 2, finished.ExitCode)
}

func TestSweepStopsExpiredSessions(t *testing.T) {
	skipWithoutPOSIX(t)
	app, _ := newHelperTestApp(t, `
helpers:
  - name: wait
    command: sleep
    args: ["60"]
`)

	info, err := app.StartHelper("wait", nil)
	require.NoError(t, err)

	// Backdate the session so the sweeper sees it as idle far too long.
	app.helperSessionsMu.Lock()
	session := app.helperSessions[info.ID]
	app.helperSessionsMu.Unlock()
	session.activityMu.Lock()
	session.lastActivity = time.Now().Add(-2 * helperIdleTimeout)
	session.activityMu.Unlock()

	app.sweepHelperSessions()
	assert.Eventually(t, func() bool {
		return len(app.ListHelperSessions()) == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestHelperEventWriterIgnoresEmptyChunks(t *testing.T) {
	writer := &helperEventWriter{}
	n, err := writer.Write(nil)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRunHelperOrderingWithExtraConfiguration(t *testing.T) {
	skipWithoutPOSIX(t)
	// Argument chaining around the hidden-command constructor must preserve
	// order: catalog args first, extra args appended.
	app, _ := newHelperTestApp(t, `
helpers:
  - name: order
    command: echo
    args: ["first"]
`)

	result, err := app.RunHelper("order", []string{"second", "third"})
	require.NoError(t, err)
	require.Equal(t, "first second third\n", result.Stdout)
	require.False(t, strings.Contains(result.Stdout, "echo"))
}
