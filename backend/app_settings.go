package backend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const settingsSchemaVersion = 1

const (
	settingsFileName      = "settings.json"
	helperCatalogFileName = "helpers.yaml"
	configDirName         = "maestrodesk"
)

// settingsFile captures the persisted application settings stored in settings.json.
type settingsFile struct {
	SchemaVersion int             `json:"schemaVersion"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Logging       settingsLogging `json:"logging"`
	Helpers       settingsHelpers `json:"helpers"`
	Stream        settingsStream  `json:"stream"`
}

type settingsLogging struct {
	Level string `json:"level"`
}

type settingsHelpers struct {
	DefaultTimeoutSeconds int `json:"defaultTimeoutSeconds"`
	MaxConcurrentStops    int `json:"maxConcurrentStops"`
}

type settingsStream struct {
	Enabled bool `json:"enabled"`
}

// defaultSettingsFile provides a fully-populated settings file with safe defaults.
func defaultSettingsFile() *settingsFile {
	return &settingsFile{
		SchemaVersion: settingsSchemaVersion,
		UpdatedAt:     time.Now().UTC(),
		Logging:       settingsLogging{Level: "info"},
		Helpers: settingsHelpers{
			DefaultTimeoutSeconds: 60,
			MaxConcurrentStops:    4,
		},
		Stream: settingsStream{Enabled: true},
	}
}

// normalizeSettingsFile ensures required defaults are present after loading.
func normalizeSettingsFile(settings *settingsFile) *settingsFile {
	if settings == nil {
		return defaultSettingsFile()
	}
	if settings.SchemaVersion == 0 {
		settings.SchemaVersion = settingsSchemaVersion
	}
	if settings.Logging.Level == "" {
		settings.Logging.Level = "info"
	}
	if settings.Helpers.DefaultTimeoutSeconds <= 0 {
		settings.Helpers.DefaultTimeoutSeconds = 60
	}
	if settings.Helpers.MaxConcurrentStops <= 0 {
		settings.Helpers.MaxConcurrentStops = 4
	}
	return settings
}

// configDirectory returns the app's config directory, creating it on demand.
func configDirectory() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not find config directory: %w", err)
	}

	configDir = filepath.Join(configDir, configDirName)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// getSettingsFilePath returns the path to settings.json.
func (a *App) getSettingsFilePath() (string, error) {
	dir, err := configDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, settingsFileName), nil
}

// getHelperCatalogPath returns the path to helpers.yaml.
func (a *App) getHelperCatalogPath() (string, error) {
	dir, err := configDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, helperCatalogFileName), nil
}

// loadSettingsFile reads settings.json or returns defaults when missing.
func (a *App) loadSettingsFile() (*settingsFile, error) {
	configFile, err := a.getSettingsFilePath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return defaultSettingsFile(), nil
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	settings := &settingsFile{}
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	return normalizeSettingsFile(settings), nil
}

// saveSettingsFile writes settings.json with an updated timestamp.
func (a *App) saveSettingsFile(settings *settingsFile) error {
	if settings == nil {
		return fmt.Errorf("no settings to save")
	}

	configFile, err := a.getSettingsFilePath()
	if err != nil {
		return err
	}

	settings.SchemaVersion = settingsSchemaVersion
	settings.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := writeFileAtomic(configFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// writeFileAtomic persists data with a temp file + rename sequence.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tempFile.Name(), perm); err != nil {
		return err
	}

	return os.Rename(tempFile.Name(), path)
}

// AppSettings is the settings view exposed to the frontend.
type AppSettings struct {
	LogLevel              string `json:"logLevel"`
	DefaultTimeoutSeconds int    `json:"defaultTimeoutSeconds"`
	MaxConcurrentStops    int    `json:"maxConcurrentStops"`
	StreamEnabled         bool   `json:"streamEnabled"`
}

// GetSettings returns the current settings.
func (a *App) GetSettings() (AppSettings, error) {
	a.settingsMu.Lock()
	defer a.settingsMu.Unlock()

	if a.settings == nil {
		settings, err := a.loadSettingsFile()
		if err != nil {
			return AppSettings{}, err
		}
		a.settings = settings
	}

	return AppSettings{
		LogLevel:              a.settings.Logging.Level,
		DefaultTimeoutSeconds: a.settings.Helpers.DefaultTimeoutSeconds,
		MaxConcurrentStops:    a.settings.Helpers.MaxConcurrentStops,
		StreamEnabled:         a.settings.Stream.Enabled,
	}, nil
}

// UpdateSettings persists the supplied settings and applies them immediately.
func (a *App) UpdateSettings(updated AppSettings) error {
	a.settingsMu.Lock()

	settings := a.settings
	if settings == nil {
		loaded, err := a.loadSettingsFile()
		if err != nil {
			a.settingsMu.Unlock()
			return err
		}
		settings = loaded
	}

	settings.Logging.Level = updated.LogLevel
	settings.Helpers.DefaultTimeoutSeconds = updated.DefaultTimeoutSeconds
	settings.Helpers.MaxConcurrentStops = updated.MaxConcurrentStops
	settings.Stream.Enabled = updated.StreamEnabled
	settings = normalizeSettingsFile(settings)

	if err := a.saveSettingsFile(settings); err != nil {
		a.settingsMu.Unlock()
		return err
	}
	a.settings = settings
	a.settingsMu.Unlock()

	a.applySettings(settings)
	return nil
}

// applySettings pushes settings values into the running subsystems.
func (a *App) applySettings(settings *settingsFile) {
	if settings == nil {
		return
	}
	a.logger.SetMinLevel(ParseLogLevel(settings.Logging.Level))
}

// helperDefaults reads the timeout and stop-concurrency settings under lock.
func (a *App) helperDefaults() (time.Duration, int) {
	a.settingsMu.Lock()
	defer a.settingsMu.Unlock()

	timeout := defaultHelperTimeout
	stops := 4
	if a.settings != nil {
		if a.settings.Helpers.DefaultTimeoutSeconds > 0 {
			timeout = time.Duration(a.settings.Helpers.DefaultTimeoutSeconds) * time.Second
		}
		if a.settings.Helpers.MaxConcurrentStops > 0 {
			stops = a.settings.Helpers.MaxConcurrentStops
		}
	}
	return timeout, stops
}
