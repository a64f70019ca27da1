package backend

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListProcessesIncludesSelf(t *testing.T) {
	app := NewApp()

	infos, err := app.ListProcesses()
	require.NoError(t, err)
	require.NotEmpty(t, infos)

	self := os.Getpid()
	found := false
	for _, info := range infos {
		if info.PID == self {
			found = true
			break
		}
	}
	require.True(t, found, "expected own pid %d in inventory", self)
}

func TestFindProcessesByNameRequiresQuery(t *testing.T) {
	app := NewApp()

	_, err := app.FindProcessesByName("   ")
	require.ErrorContains(t, err, "query is required")
}

func TestIsProcessRunning(t *testing.T) {
	app := NewApp()

	require.True(t, app.IsProcessRunning(os.Getpid()))
	// PIDs are positive; a large negative value can never be running.
	require.False(t, app.IsProcessRunning(-1))
}
