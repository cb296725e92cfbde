package main

import (
	"errors"
	"os"

	sitesnap "github.com/alnah/go-sitesnap"
	"github.com/alnah/go-sitesnap/internal/config"
)

// Exit codes for the sitesnap CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Run completed (placeholders included)
	ExitGeneral = 1 // General/unexpected error, including cancellation
	ExitUsage   = 2 // Invalid flags or config
	ExitIO      = 3 // Worklist, artifact, or page document failures
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, sitesnap.ErrBrowserConnect) ||
		errors.Is(err, sitesnap.ErrPageCreate) ||
		errors.Is(err, sitesnap.ErrPageLoad) {
		return ExitBrowser
	}

	// I/O and input errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, sitesnap.ErrReadWorklist) ||
		errors.Is(err, sitesnap.ErrMalformedWorklist) ||
		errors.Is(err, sitesnap.ErrArtifactWrite) ||
		errors.Is(err, sitesnap.ErrAggregate) {
		return ExitIO
	}

	// Usage/config errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, ErrTooManyArgs) {
		return ExitUsage
	}

	return ExitGeneral
}
