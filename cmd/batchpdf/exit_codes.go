package main

import (
	"context"
	"errors"
	"os"

	"github.com/alnah/batchpdf"
	"github.com/alnah/batchpdf/internal/config"
)

// Exit codes for the batchpdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess      = 0 // Every file converted
	ExitGeneral      = 1 // At least one file failed, or an unexpected error
	ExitUsage        = 2 // Invalid flags, config, or target folder
	ExitIO           = 3 // File not found, permission denied
	ExitToolNotFound = 4 // pandoc or wkhtmltopdf not on PATH
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Missing tools (exit 4)
	if errors.Is(err, batchpdf.ErrToolNotFound) {
		return ExitToolNotFound
	}

	// Failed files and interruptions are reported per file (exit 1)
	if errors.Is(err, ErrFilesFailed) ||
		errors.Is(err, context.Canceled) {
		return ExitGeneral
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrInvalidEnv) ||
		errors.Is(err, batchpdf.ErrTargetFolder) ||
		errors.Is(err, batchpdf.ErrInvalidConfig) ||
		errors.Is(err, batchpdf.ErrStylesheet) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) {
		return ExitIO
	}

	return ExitGeneral
}
