package backend

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const settingsWatcherDebounceInterval = 500 * time.Millisecond

// settingsWatcher reloads configuration edited outside the app. It watches
// the config directory for settings.json and helpers.yaml changes and invokes
// onChange with the debounced set of changed file names.
type settingsWatcher struct {
	app       *App
	watcher   *fsnotify.Watcher
	onChange  func([]string)
	watched   map[string]struct{}
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// newSettingsWatcher starts watching dir for changes to the named files.
func newSettingsWatcher(app *App, dir string, files []string, onChange func([]string)) (*settingsWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	watched := make(map[string]struct{}, len(files))
	for _, name := range files {
		watched[name] = struct{}{}
	}

	w := &settingsWatcher{
		app:       app,
		watcher:   fsWatcher,
		onChange:  onChange,
		watched:   watched,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}

	go w.eventLoop()
	return w, nil
}

func (w *settingsWatcher) eventLoop() {
	defer close(w.stoppedCh)

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time
	changedFiles := make(map[string]struct{})

	flush := func() {
		if len(changedFiles) == 0 || w.onChange == nil {
			return
		}
		files := make([]string, 0, len(changedFiles))
		for name := range changedFiles {
			files = append(files, name)
		}
		changedFiles = make(map[string]struct{})
		w.onChange(files)
	}

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isRelevantFSEvent(event) {
				continue
			}

			filename := filepath.Base(event.Name)
			if _, accepted := w.watched[filename]; !accepted {
				continue
			}

			changedFiles[filename] = struct{}{}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(settingsWatcherDebounceInterval)
			debounceCh = debounceTimer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.app != nil && w.app.logger != nil {
				w.app.logger.Warn(fmt.Sprintf("settings watcher error: %v", err), "SettingsWatcher")
			}

		case <-debounceCh:
			debounceCh = nil
			flush()
		}
	}
}

func isRelevantFSEvent(event fsnotify.Event) bool {
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0
}

func (w *settingsWatcher) stop() {
	select {
	case <-w.stopCh:
		return
	default:
		close(w.stopCh)
	}
	_ = w.watcher.Close()
	<-w.stoppedCh
}
