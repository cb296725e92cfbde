// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-sitesnap/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserConnect returns hints for browser startup failures.
// Detects CI/Docker environment and suggests the sandbox and binary knobs.
func ForBrowserConnect() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	// CI=true already disables the sandbox.
	if (inCI || IsInContainer()) && os.Getenv("CI") != "true" {
		hints = append(hints, "use --no-sandbox for Docker/CI")
	}

	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "use --browser-bin or set ROD_BROWSER_BIN to pick a Chrome binary")
	}

	return formatHints(hints)
}

// ForConfigNotFound returns hints for config file not found errors.
// For a bare config name it suggests where a user config would be found.
func ForConfigNotFound(name string) string {
	hint := "use --config /path/to/file.yaml"

	if name != "" && !fileutil.IsFilePath(name) {
		if dir, err := os.UserConfigDir(); err == nil {
			hint += " or create " + filepath.Join(dir, "go-sitesnap", name+".yaml")
		}
	}

	return format(hint)
}

// ForWorklist returns hints for unreadable or malformed worklists.
func ForWorklist(indexCol, nameCol, addressCol string) string {
	return format("worklists are .xlsx or .csv with a header row containing " +
		strings.Join([]string{indexCol, nameCol, addressCol}, ", "))
}

// ForOutputDirectory returns hints for screenshot or page write errors.
func ForOutputDirectory() string {
	return format("check the output and screenshot directories exist and are writable")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
