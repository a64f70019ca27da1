package backend

import (
	"context"
	"fmt"
	"net"
	"sync"
)

var defaultLoopbackListener = func() (net.Listener, error) {
	return net.Listen("tcp", "127.0.0.1:0")
}

// App provides the backend façade exposed to Wails.
type App struct {
	Ctx    context.Context
	logger *Logger

	settingsMu sync.Mutex
	settings   *settingsFile

	catalogMu sync.Mutex
	catalog   *helperCatalog

	helperSessions   map[string]*helperSession
	helperSessionsMu sync.Mutex

	watcher   *settingsWatcher
	streamHub *streamHub

	sweeperStop chan struct{}
	sweeperDone <-chan struct{}

	listenLoopback func() (net.Listener, error)
	eventEmitter   func(context.Context, string, ...interface{})
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{
		logger:         NewLogger(1000),
		helperSessions: make(map[string]*helperSession),
		streamHub:      newStreamHub(),
		listenLoopback: defaultLoopbackListener,
		eventEmitter:   func(context.Context, string, ...interface{}) {},
	}
}

// emitEvent forwards an event to the frontend when the runtime is up.
func (a *App) emitEvent(name string, args ...interface{}) {
	if a == nil || a.eventEmitter == nil || a.Ctx == nil {
		return
	}
	a.eventEmitter(a.Ctx, name, args...)
}

// broadcastStreamEvent mirrors an event onto the loopback stream server.
func (a *App) broadcastStreamEvent(name string, payload any) {
	if a == nil || a.streamHub == nil {
		return
	}
	a.streamHub.broadcast(name, payload)
}

// GetStreamAddress returns the loopback address of the output stream server,
// empty when streaming is disabled.
func (a *App) GetStreamAddress() string {
	if a.streamHub == nil {
		return ""
	}
	return a.streamHub.address()
}

// GetLogs returns the in-memory log ring for the frontend log view.
func (a *App) GetLogs() []LogEntry {
	if a.logger == nil {
		return []LogEntry{}
	}
	return a.logger.GetEntries()
}

// ClearLogs empties the log ring, leaving a single entry recording the clear.
func (a *App) ClearLogs() error {
	if a.logger == nil {
		return fmt.Errorf("logger not initialized")
	}

	a.logger.Clear()
	a.logger.Info("Application logs cleared", "App")
	return nil
}
