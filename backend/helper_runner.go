package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/google/uuid"

	"github.com/maestrodesk/app/backend/internal/errorcapture"
	"github.com/maestrodesk/app/backend/internal/parallel"
)

// HelperResult captures the outcome of a synchronous helper run.
type HelperResult struct {
	Name       string `json:"name"`
	ExitCode   int    `json:"exitCode"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMs int64  `json:"durationMs"`
	TimedOut   bool   `json:"timedOut"`
}

// helperCatalogLoaded returns the catalog, loading it from disk on first use.
func (a *App) helperCatalogLoaded() (*helperCatalog, error) {
	a.catalogMu.Lock()
	defer a.catalogMu.Unlock()

	if a.catalog != nil {
		return a.catalog, nil
	}

	path, err := a.getHelperCatalogPath()
	if err != nil {
		return nil, err
	}
	catalog, err := loadHelperCatalog(path)
	if err != nil {
		return nil, err
	}
	a.catalog = catalog
	return catalog, nil
}

// ReloadHelperCatalog re-reads helpers.yaml, e.g. after an external edit.
func (a *App) ReloadHelperCatalog() error {
	path, err := a.getHelperCatalogPath()
	if err != nil {
		return err
	}
	catalog, err := loadHelperCatalog(path)
	if err != nil {
		return err
	}

	a.catalogMu.Lock()
	a.catalog = catalog
	a.catalogMu.Unlock()

	a.logger.Info(fmt.Sprintf("Helper catalog reloaded (%d helpers)", len(catalog.list())), "HelperCatalog")
	a.emitEvent("helper-catalog-changed")
	return nil
}

// GetHelperCatalog returns the declared helpers.
func (a *App) GetHelperCatalog() ([]HelperSpec, error) {
	catalog, err := a.helperCatalogLoaded()
	if err != nil {
		return nil, err
	}
	return catalog.list(), nil
}

// RunHelper runs a catalog helper to completion and returns its output. A
// non-zero exit is reported in the result, not as an error; errors mean the
// helper could not be resolved or spawned.
func (a *App) RunHelper(name string, extraArgs []string) (*HelperResult, error) {
	catalog, err := a.helperCatalogLoaded()
	if err != nil {
		return nil, err
	}
	spec, err := catalog.lookup(name)
	if err != nil {
		return nil, err
	}

	defaultTimeout, _ := a.helperDefaults()
	ctx, cancel := context.WithTimeout(context.Background(), spec.timeout(defaultTimeout))
	defer cancel()

	cmd := hiddenCommandContext(ctx, spec.resolvedCommand(), append(append([]string{}, spec.Args...), extraArgs...)...)
	cmd.Dir = spec.WorkingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	runErr := cmd.Run()
	result := &HelperResult{
		Name:       spec.Name,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: time.Since(started).Milliseconds(),
	}

	if runErr == nil {
		a.logger.Debug(fmt.Sprintf("Helper %q finished in %dms", spec.Name, result.DurationMs), "HelperRunner")
		return result, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		result.ExitCode = -1
		a.logger.Warn(fmt.Sprintf("Helper %q timed out after %dms", spec.Name, result.DurationMs), "HelperRunner")
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	return nil, fmt.Errorf("failed to run helper %q: %w", spec.Name, errorcapture.Enhance(runErr))
}

// StartHelper spawns a catalog helper in the background, streaming its output
// to the frontend, and returns the new session.
func (a *App) StartHelper(name string, extraArgs []string) (*HelperSessionInfo, error) {
	catalog, err := a.helperCatalogLoaded()
	if err != nil {
		return nil, err
	}
	spec, err := catalog.lookup(name)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := hiddenCommandContext(ctx, spec.resolvedCommand(), append(append([]string{}, spec.Args...), extraArgs...)...)
	cmd.Dir = spec.WorkingDir
	// Hide already ran inside hiddenCommandContext; setSessionProcAttr only
	// adds fields, so the suppressed-console flag survives.
	setSessionProcAttr(cmd)

	session := &helperSession{
		id:           uuid.NewString(),
		name:         spec.Name,
		cmd:          cmd,
		cancel:       cancel,
		done:         make(chan struct{}),
		startedAt:    time.Now(),
		lastActivity: time.Now(),
	}
	cmd.Stdout = &helperEventWriter{app: a, session: session, stream: "stdout"}
	cmd.Stderr = &helperEventWriter{app: a, session: session, stream: "stderr"}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start helper %q: %w", spec.Name, errorcapture.Enhance(err))
	}

	a.helperSessionsMu.Lock()
	a.helperSessions[session.id] = session
	a.helperSessionsMu.Unlock()

	a.logger.Info(fmt.Sprintf("Started helper %q (session %s, pid %d)", spec.Name, session.id, session.pid()), "HelperRunner")
	a.emitHelperStatus(session.id, session.name, "started", 0)

	go a.reapHelper(session)

	info := session.info()
	return &info, nil
}

// reapHelper waits for the helper to exit, records its status and drops the
// session from the registry.
func (a *App) reapHelper(session *helperSession) {
	waitErr := session.cmd.Wait()

	exitCode := 0
	if waitErr != nil {
		exitCode = exitCodeFromError(waitErr)
	}
	session.markFinished(exitCode)
	session.Close()
	close(session.done)

	a.helperSessionsMu.Lock()
	delete(a.helperSessions, session.id)
	a.helperSessionsMu.Unlock()

	a.logger.Info(fmt.Sprintf("Helper %q exited with code %d (session %s)", session.name, exitCode, session.id), "HelperRunner")
	a.emitHelperStatus(session.id, session.name, "exited", exitCode)
}

// errHelperSessionNotFound marks stop requests that raced a session's exit.
var errHelperSessionNotFound = errors.New("no running helper session")

// StopHelper terminates a running helper session, gracefully first and
// forcefully after helperStopGracePeriod.
func (a *App) StopHelper(sessionID string) error {
	a.helperSessionsMu.Lock()
	session, ok := a.helperSessions[sessionID]
	a.helperSessionsMu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", errHelperSessionNotFound, sessionID)
	}

	pid := session.pid()
	if pid > 0 {
		if err := terminateProcessTree(pid, false); err != nil {
			a.logger.Debug(fmt.Sprintf("Graceful stop of session %s failed: %v", sessionID, err), "HelperRunner")
		}
	}

	select {
	case <-session.done:
		return nil
	case <-time.After(helperStopGracePeriod):
	}

	if pid > 0 {
		if err := terminateProcessTree(pid, true); err != nil {
			a.logger.Warn(fmt.Sprintf("Forceful stop of session %s failed: %v", sessionID, err), "HelperRunner")
		}
	}
	// Cancelling the spawn context kills the direct child even when the
	// platform tree termination could not reach it.
	session.Close()

	select {
	case <-session.done:
		return nil
	case <-time.After(helperStopGracePeriod):
		return fmt.Errorf("helper session %q did not exit", sessionID)
	}
}

// StopAllHelpers stops every running session, bounded by the configured stop
// concurrency. Used on shutdown.
func (a *App) StopAllHelpers() error {
	a.helperSessionsMu.Lock()
	ids := make([]string, 0, len(a.helperSessions))
	for id := range a.helperSessions {
		ids = append(ids, id)
	}
	a.helperSessionsMu.Unlock()

	if len(ids) == 0 {
		return nil
	}

	_, maxStops := a.helperDefaults()
	err := parallel.ForEach(context.Background(), ids, maxStops, func(_ context.Context, id string) error {
		if stopErr := a.StopHelper(id); stopErr != nil && !errors.Is(stopErr, errHelperSessionNotFound) {
			return stopErr
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to stop helpers: %w", err)
	}
	return nil
}

// ListHelperSessions snapshots the running sessions.
func (a *App) ListHelperSessions() []HelperSessionInfo {
	a.helperSessionsMu.Lock()
	defer a.helperSessionsMu.Unlock()

	infos := make([]HelperSessionInfo, 0, len(a.helperSessions))
	for _, session := range a.helperSessions {
		infos = append(infos, session.info())
	}
	return infos
}

// exitCodeFromError extracts a process exit code, -1 when the process never
// ran or was killed by a signal the platform reports without a code.
func exitCodeFromError(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
