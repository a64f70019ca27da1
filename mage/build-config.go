package mage

import (
	"encoding/json"
	"fmt"
	"runtime"
	"time"
)

type BuildConfig struct {
	AppLongName  string // Long Name of the application
	AppShortName string // Short name of the application
	ArchType     string // Architecture type (e.g., amd64, arm64)
	BuildArgs    []string
	BuildDir     string // Directory to place build outputs
	BuildTime    string // Build time in RFC3339 format
	Commit       string // Git commit hash
	OsType       string // Operating system type (e.g., linux, windows)
	PackagePath  string // Go module package path
	Version      string // Version of the app build
}

func NewBuildConfig() BuildConfig {
	appShortName := "maestrodesk"
	now := time.Now().UTC()

	version, err := getProductVersion()
	if err != nil {
		panic(fmt.Sprintf("failed to get app version: %v", err))
	}

	return BuildConfig{
		AppLongName:  "Maestro Desk",
		AppShortName: appShortName,
		ArchType:     runtime.GOARCH,
		BuildArgs:    []string{"build", "-clean", "-o", appShortName},
		BuildDir:     "build",
		BuildTime:    now.Format(time.RFC3339),
		Commit:       gitRevParse(),
		OsType:       runtime.GOOS,
		PackagePath:  "github.com/maestrodesk/app",
		Version:      version,
	}
}

// PrettyPrint dumps the build configuration as indented JSON.
func PrettyPrint(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(string(data))
}
