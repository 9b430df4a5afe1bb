package main

import (
	"context"
	"errors"
	"os"

	pdfstitch "github.com/alnah/go-pdfstitch"
	"github.com/alnah/go-pdfstitch/internal/config"
	"github.com/alnah/go-pdfstitch/internal/fetch"
	"github.com/alnah/go-pdfstitch/internal/hints"
)

// Exit codes for the pdfstitch CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess  = 0 // Successful conversion
	ExitGeneral  = 1 // General/unexpected error
	ExitUsage    = 2 // Invalid flags, config, or options
	ExitIO       = 3 // File not found, permission denied, download failed
	ExitEngine   = 4 // Render engine or browser errors
	ExitDocument = 5 // Empty, corrupt, unsupported or oversized document
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Document errors (exit 5)
	if errors.Is(err, pdfstitch.ErrEmptyDocument) ||
		errors.Is(err, pdfstitch.ErrCorruptPage) ||
		errors.Is(err, pdfstitch.ErrUnsupportedSource) ||
		errors.Is(err, pdfstitch.ErrCanvasTooLarge) ||
		errors.Is(err, pdfstitch.ErrResizeFailed) {
		return ExitDocument
	}

	// Engine and browser errors (exit 4)
	if errors.Is(err, pdfstitch.ErrNoEngine) ||
		errors.Is(err, pdfstitch.ErrRasterizationFailed) ||
		errors.Is(err, pdfstitch.ErrBrowserConnect) ||
		errors.Is(err, pdfstitch.ErrPagination) {
		return ExitEngine
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, pdfstitch.ErrEncodeFailed) ||
		errors.Is(err, fetch.ErrFetch) ||
		errors.Is(err, fetch.ErrTooLarge) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrInvalidTimeout) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, pdfstitch.ErrInput) ||
		errors.Is(err, pdfstitch.ErrInvalidFormat) ||
		errors.Is(err, pdfstitch.ErrInvalidQuality) ||
		errors.Is(err, pdfstitch.ErrInvalidResizeMode) ||
		errors.Is(err, pdfstitch.ErrInvalidResolution) ||
		errors.Is(err, pdfstitch.ErrUnknownEngine) ||
		errors.Is(err, pdfstitch.ErrInvalidPageSize) ||
		errors.Is(err, pdfstitch.ErrInvalidMargin) ||
		errors.Is(err, fetch.ErrInvalidURL) {
		return ExitUsage
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	switch {
	case errors.Is(err, pdfstitch.ErrNoEngine):
		return hints.ForNoEngine()
	case errors.Is(err, pdfstitch.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, pdfstitch.ErrCanvasTooLarge):
		return hints.ForCanvasTooLarge()
	case errors.Is(err, pdfstitch.ErrUnsupportedSource):
		return hints.ForUnsupportedSource()
	case errors.Is(err, pdfstitch.ErrRasterizationFailed):
		return hints.ForRenderFailure()
	case errors.Is(err, pdfstitch.ErrEncodeFailed):
		return hints.ForOutputDirectory()
	}
	return ""
}
