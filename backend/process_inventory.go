package backend

import (
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessInfo describes one process in the system inventory.
type ProcessInfo struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// ListProcesses returns the system process inventory. Processes that vanish
// or deny access mid-enumeration are skipped.
func (a *App) ListProcesses() ([]ProcessInfo, error) {
	pids, err := process.Pids()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	infos := make([]ProcessInfo, 0, len(pids))
	for _, pid := range pids {
		proc, err := process.NewProcess(pid)
		if err != nil {
			continue
		}

		name, _ := proc.Name()
		exe, _ := proc.Exe()

		infos = append(infos, ProcessInfo{
			PID:  int(pid),
			Name: name,
			Path: exe,
		})
	}

	return infos, nil
}

// FindProcessesByName returns processes whose name contains the query,
// case-insensitively.
func (a *App) FindProcessesByName(query string) ([]ProcessInfo, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, fmt.Errorf("process name query is required")
	}

	all, err := a.ListProcesses()
	if err != nil {
		return nil, err
	}

	var matches []ProcessInfo
	for _, info := range all {
		if strings.Contains(strings.ToLower(info.Name), query) {
			matches = append(matches, info)
		}
	}
	return matches, nil
}

// IsProcessRunning reports whether the given pid is alive.
func (a *App) IsProcessRunning(pid int) bool {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	running, err := proc.IsRunning()
	if err != nil {
		return false
	}
	return running
}
