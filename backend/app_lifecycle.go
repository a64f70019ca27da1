package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/maestrodesk/app/backend/internal/errorcapture"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

var runtimeEventsEmit = runtime.EventsEmit

// Startup is called when the app starts. The context passed is stored for later use.
func (a *App) Startup(ctx context.Context) {
	a.Ctx = ctx
	a.eventEmitter = runtimeEventsEmit
	a.logger.Info("Application startup initiated", "App")

	a.logger.SetEventEmitter(func(eventName string) {
		a.emitEvent(eventName)
	})

	errorcapture.Init()
	errorcapture.SetEventEmitter(func(message string) {
		a.emitEvent("backend-error", map[string]any{
			"message": strings.TrimSpace(message),
			"source":  "stderr",
		})
	})
	errorcapture.SetLogSink(func(level string, message string) {
		switch strings.ToLower(level) {
		case "error":
			a.logger.Error(message, "ErrorCapture")
		case "warn", "warning":
			a.logger.Warn(message, "ErrorCapture")
		default:
			a.logger.Debug(message, "ErrorCapture")
		}
	})

	settings, err := a.loadSettingsFile()
	if err != nil {
		a.logger.Warn(fmt.Sprintf("Failed to load settings: %v", err), "App")
		settings = defaultSettingsFile()
	}
	a.settingsMu.Lock()
	a.settings = settings
	a.settingsMu.Unlock()
	a.applySettings(settings)

	if _, err := a.helperCatalogLoaded(); err != nil {
		a.logger.Warn(fmt.Sprintf("Failed to load helper catalog: %v", err), "App")
	}

	a.startConfigWatcher()

	if settings.Stream.Enabled {
		if addr, err := a.streamHub.start(a.listenLoopback); err != nil {
			a.logger.Warn(fmt.Sprintf("Failed to start stream server: %v", err), "App")
		} else {
			a.logger.Info("Stream server listening on "+addr, "App")
		}
	}

	a.sweeperStop = make(chan struct{})
	a.sweeperDone = a.startHelperSweeper(a.sweeperStop)

	a.logger.Info("Application startup completed", "App")
}

// startConfigWatcher wires the fsnotify reload of settings.json and helpers.yaml.
func (a *App) startConfigWatcher() {
	configDir, err := configDirectory()
	if err != nil {
		a.logger.Warn(fmt.Sprintf("Config watcher disabled: %v", err), "App")
		return
	}

	watcher, err := newSettingsWatcher(a, configDir, []string{settingsFileName, helperCatalogFileName}, a.handleConfigChange)
	if err != nil {
		a.logger.Warn(fmt.Sprintf("Config watcher disabled: %v", err), "App")
		return
	}
	a.watcher = watcher
}

// handleConfigChange reloads whichever config files changed on disk.
func (a *App) handleConfigChange(files []string) {
	for _, name := range files {
		switch name {
		case settingsFileName:
			settings, err := a.loadSettingsFile()
			if err != nil {
				a.logger.Warn(fmt.Sprintf("Ignoring settings change: %v", err), "App")
				continue
			}
			a.settingsMu.Lock()
			a.settings = settings
			a.settingsMu.Unlock()
			a.applySettings(settings)
			a.logger.Info("Settings reloaded from disk", "App")
			a.emitEvent("settings-changed")

		case helperCatalogFileName:
			if err := a.ReloadHelperCatalog(); err != nil {
				a.logger.Warn(fmt.Sprintf("Ignoring helper catalog change: %v", err), "App")
			}
		}
	}
}

// Shutdown is called when the app is closing. Stops helpers and subsystems.
func (a *App) Shutdown(ctx context.Context) {
	a.logger.Info("Application shutdown initiated", "App")

	if a.watcher != nil {
		a.watcher.stop()
		a.watcher = nil
	}

	if a.sweeperStop != nil {
		close(a.sweeperStop)
		if a.sweeperDone != nil {
			<-a.sweeperDone
		}
		a.sweeperStop = nil
	}

	if err := a.StopAllHelpers(); err != nil {
		a.logger.Warn(fmt.Sprintf("Failed to stop helpers during shutdown: %v", err), "App")
	}

	if a.streamHub != nil {
		a.streamHub.stop()
	}

	a.logger.Info("Application shutdown completed", "App")
}
