package pdfstitch

import (
	"errors"
	"fmt"

	"github.com/alnah/go-pdfstitch/internal/paginate"
	"github.com/alnah/go-pdfstitch/internal/raster"
	"github.com/alnah/go-pdfstitch/internal/stitch"
)

// Sentinel errors for library operations. Pipeline failures are returned
// as *StageError and match these with errors.Is.
var (
	ErrInput         = errors.New("invalid input")
	ErrClosed        = errors.New("converter is closed")
	ErrOutputIsInput = errors.New("output path is the input document")

	// Source errors.
	ErrUnsupportedSource = paginate.ErrUnsupportedSource
	ErrPagination        = paginate.ErrPagination
	ErrBrowserConnect    = paginate.ErrBrowserConnect
	ErrInvalidPageSize   = paginate.ErrInvalidPageSize
	ErrInvalidMargin     = paginate.ErrInvalidMargin

	// Rasterization errors.
	ErrRasterizationFailed = raster.ErrRasterizationFailed
	ErrEmptyDocument       = raster.ErrEmptyDocument
	ErrCorruptPage         = raster.ErrCorruptPage
	ErrInvalidResolution   = raster.ErrInvalidResolution
	ErrUnknownEngine       = raster.ErrUnknownEngine
	ErrNoEngine            = raster.ErrNoEngine

	// Stitching errors.
	ErrNoPages           = stitch.ErrNoPages
	ErrResizeFailed      = stitch.ErrResizeFailed
	ErrEncodeFailed      = stitch.ErrEncodeFailed
	ErrCanvasTooLarge    = stitch.ErrCanvasTooLarge
	ErrInvalidFormat     = stitch.ErrInvalidFormat
	ErrInvalidQuality    = stitch.ErrInvalidQuality
	ErrInvalidResizeMode = stitch.ErrInvalidResizeMode
)

// Stage names the pipeline step that failed.
type Stage string

const (
	StageInput     Stage = "input"
	StageWorkspace Stage = "workspace"
	StagePaginate  Stage = "paginate"
	StageRasterize Stage = "rasterize"
	StageStitch    Stage = "stitch"
	StageWrite     Stage = "write"
	StageCleanup   Stage = "cleanup"
)

// StageError reports which stage of StitchDocument failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the failed stage carried by err, or "" if err is not a
// pipeline failure.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
