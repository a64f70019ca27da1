package backend

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// defaultHelperTimeout bounds synchronous helper runs when neither the catalog
// entry nor the settings provide one.
const defaultHelperTimeout = 60 * time.Second

// HelperSpec declares a named background helper the app may launch.
type HelperSpec struct {
	Name    string   `yaml:"name" json:"name"`
	Command string   `yaml:"command" json:"command"`
	Args    []string `yaml:"args,omitempty" json:"args,omitempty"`
	// Platform maps a GOOS value to a command override, e.g. git → git.exe
	// shims or a different probe binary on Windows.
	Platform       map[string]string `yaml:"platform,omitempty" json:"platform,omitempty"`
	WorkingDir     string            `yaml:"workingDir,omitempty" json:"workingDir,omitempty"`
	TimeoutSeconds int               `yaml:"timeoutSeconds,omitempty" json:"timeoutSeconds,omitempty"`
}

// resolvedCommand returns the command to spawn on the current platform.
func (s HelperSpec) resolvedCommand() string {
	if override, ok := s.Platform[runtime.GOOS]; ok && strings.TrimSpace(override) != "" {
		return override
	}
	return s.Command
}

// timeout returns the per-helper timeout, falling back to the supplied default.
func (s HelperSpec) timeout(fallback time.Duration) time.Duration {
	if s.TimeoutSeconds > 0 {
		return time.Duration(s.TimeoutSeconds) * time.Second
	}
	if fallback > 0 {
		return fallback
	}
	return defaultHelperTimeout
}

// helperCatalog holds the declared helpers keyed by name.
type helperCatalog struct {
	specs  []HelperSpec
	byName map[string]HelperSpec
}

// loadHelperCatalog reads and validates helpers.yaml. A missing file yields an
// empty catalog so a fresh install starts cleanly.
func loadHelperCatalog(path string) (*helperCatalog, error) {
	catalog := &helperCatalog{byName: make(map[string]HelperSpec)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return catalog, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read helper catalog: %w", err)
	}

	var file struct {
		Helpers []HelperSpec `yaml:"helpers"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse helper catalog: %w", err)
	}

	for _, spec := range file.Helpers {
		spec.Name = strings.TrimSpace(spec.Name)
		spec.Command = strings.TrimSpace(spec.Command)
		if spec.Name == "" {
			return nil, fmt.Errorf("helper catalog entry is missing a name")
		}
		if spec.Command == "" {
			return nil, fmt.Errorf("helper %q is missing a command", spec.Name)
		}
		if _, exists := catalog.byName[spec.Name]; exists {
			return nil, fmt.Errorf("helper %q is declared more than once", spec.Name)
		}
		catalog.specs = append(catalog.specs, spec)
		catalog.byName[spec.Name] = spec
	}

	return catalog, nil
}

// lookup finds a helper by name.
func (c *helperCatalog) lookup(name string) (HelperSpec, error) {
	if c == nil {
		return HelperSpec{}, fmt.Errorf("helper catalog not loaded")
	}
	spec, ok := c.byName[strings.TrimSpace(name)]
	if !ok {
		return HelperSpec{}, fmt.Errorf("unknown helper %q", name)
	}
	return spec, nil
}

// list returns the declared helpers in file order.
func (c *helperCatalog) list() []HelperSpec {
	if c == nil {
		return nil
	}
	specs := make([]HelperSpec, len(c.specs))
	copy(specs, c.specs)
	return specs
}
