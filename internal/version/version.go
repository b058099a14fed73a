package version

import (
	_ "embed"
	"runtime"
	"strings"
)

//go:embed VERSION
var versionFile string

// Build-time variables set via ldflags
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App returns the current version of starforge
func App() string {
	return strings.TrimSpace(versionFile)
}

// PlanFormat returns the plan JSON format version. Bump this when the
// structure of the plan output changes incompatibly.
func PlanFormat() string {
	return "1.0"
}

// GetGitCommit returns the git commit hash
func GetGitCommit() string {
	return GitCommit
}

// GetBuildDate returns the git commit date
func GetBuildDate() string {
	return BuildDate
}

// Platform returns the OS/architecture combination
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}
