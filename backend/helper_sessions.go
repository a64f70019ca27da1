package backend

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/maestrodesk/app/backend/internal/timeutil"
)

const (
	helperOutputEventName = "helper:output"
	helperStatusEventName = "helper:status"

	// helperIdleTimeout is the duration of inactivity after which a running
	// helper is stopped by the sweeper.
	helperIdleTimeout = 30 * time.Minute

	// helperMaxDuration is the maximum lifetime of a helper session
	// regardless of activity.
	helperMaxDuration = 4 * time.Hour

	// helperSweepInterval is how often the sweeper checks running sessions.
	helperSweepInterval = time.Minute

	// helperStopGracePeriod is how long a stop request waits between the
	// graceful and forceful termination attempts.
	helperStopGracePeriod = 3 * time.Second
)

type helperSession struct {
	id     string
	name   string
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	activityMu   sync.Mutex
	lastActivity time.Time
	startedAt    time.Time

	exitMu   sync.Mutex
	finished bool
	exitCode int
}

// touchActivity updates the last activity timestamp.
func (s *helperSession) touchActivity() {
	s.activityMu.Lock()
	s.lastActivity = time.Now()
	s.activityMu.Unlock()
}

// idleDuration returns how long the session has been idle.
func (s *helperSession) idleDuration() time.Duration {
	s.activityMu.Lock()
	defer s.activityMu.Unlock()
	return time.Since(s.lastActivity)
}

// totalDuration returns how long the session has been running.
func (s *helperSession) totalDuration() time.Duration {
	return time.Since(s.startedAt)
}

// markFinished records the helper's exit code once its reaper observed it.
func (s *helperSession) markFinished(exitCode int) {
	s.exitMu.Lock()
	s.finished = true
	s.exitCode = exitCode
	s.exitMu.Unlock()
}

// exitStatus reports whether the helper finished and with which code.
func (s *helperSession) exitStatus() (bool, int) {
	s.exitMu.Lock()
	defer s.exitMu.Unlock()
	return s.finished, s.exitCode
}

// pid returns the helper's process id, or 0 before the spawn completed.
func (s *helperSession) pid() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

func (s *helperSession) Close() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// helperEventWriter forwards helper output to the frontend as events while
// keeping the session's activity clock fresh.
type helperEventWriter struct {
	app     *App
	session *helperSession
	stream  string
}

func (w *helperEventWriter) Write(p []byte) (int, error) {
	if len(p) == 0 || w.app == nil {
		return len(p), nil
	}
	if w.session != nil {
		w.session.touchActivity()
		w.app.emitHelperOutput(w.session.id, w.session.name, w.stream, string(p))
	}
	return len(p), nil
}

// HelperSessionInfo is the session view exposed to the frontend.
type HelperSessionInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"startedAt"`
	Age       string    `json:"age"`
	Running   bool      `json:"running"`
	ExitCode  int       `json:"exitCode"`
}

// info snapshots the session for the frontend.
func (s *helperSession) info() HelperSessionInfo {
	finished, exitCode := s.exitStatus()
	return HelperSessionInfo{
		ID:        s.id,
		Name:      s.name,
		PID:       s.pid(),
		StartedAt: s.startedAt,
		Age:       timeutil.FormatAge(s.startedAt),
		Running:   !finished,
		ExitCode:  exitCode,
	}
}

// emitHelperOutput publishes one chunk of helper output to the frontend and
// to any attached stream clients.
func (a *App) emitHelperOutput(sessionID, name, stream, data string) {
	payload := map[string]any{
		"sessionId": sessionID,
		"name":      name,
		"stream":    stream,
		"data":      data,
	}
	a.emitEvent(helperOutputEventName, payload)
	a.broadcastStreamEvent(helperOutputEventName, payload)
}

// emitHelperStatus publishes a session lifecycle transition.
func (a *App) emitHelperStatus(sessionID, name, state string, exitCode int) {
	payload := map[string]any{
		"sessionId": sessionID,
		"name":      name,
		"state":     state,
		"exitCode":  exitCode,
	}
	a.emitEvent(helperStatusEventName, payload)
	a.broadcastStreamEvent(helperStatusEventName, payload)
}

// startHelperSweeper terminates sessions that idle out or overstay
// helperMaxDuration. Runs until stop is closed.
func (a *App) startHelperSweeper(stop <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(helperSweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				a.sweepHelperSessions()
			}
		}
	}()
	return done
}

// sweepHelperSessions stops sessions past their idle or lifetime limits.
func (a *App) sweepHelperSessions() {
	a.helperSessionsMu.Lock()
	var expired []*helperSession
	for _, session := range a.helperSessions {
		if session.idleDuration() > helperIdleTimeout || session.totalDuration() > helperMaxDuration {
			expired = append(expired, session)
		}
	}
	a.helperSessionsMu.Unlock()

	for _, session := range expired {
		a.logger.Warn("Stopping expired helper session "+session.id, "HelperRunner")
		if err := a.StopHelper(session.id); err != nil {
			a.logger.Error("Failed to stop expired helper: "+err.Error(), "HelperRunner")
		}
	}
}
