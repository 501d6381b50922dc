package version

import (
	"fmt"
	"runtime"
)

// Set via ldflags during build
var (
	// Version is the semantic version (e.g., v0.1.0)
	Version = "dev"

	// Commit is the git commit hash
	Commit = "unknown"

	// Date is the build date
	Date = "unknown"
)

// Details is the machine-readable form of the build metadata
type Details struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	Go      string `json:"go" yaml:"go"`
	OSArch  string `json:"os_arch" yaml:"os_arch"`
}

// Get collects the build metadata
func Get() Details {
	return Details{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
		Go:      runtime.Version(),
		OSArch:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Info returns version information as a formatted string
func Info() string {
	d := Get()
	return fmt.Sprintf(
		"valknut %s\nCommit: %s\nBuilt: %s\nGo: %s\nOS/Arch: %s",
		d.Version, d.Commit, d.Date, d.Go, d.OSArch,
	)
}

// Short returns just the version string
func Short() string {
	return Version
}
