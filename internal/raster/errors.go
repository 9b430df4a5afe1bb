package raster

import "errors"

// Sentinel errors for rasterization.
var (
	ErrRasterizationFailed = errors.New("rasterization failed")
	ErrEmptyDocument       = errors.New("document produced no pages")
	ErrCorruptPage         = errors.New("page image cannot be read")
	ErrInvalidResolution   = errors.New("resolution must be a positive DPI")
	ErrUnknownEngine       = errors.New("unknown render engine")
	ErrNoEngine            = errors.New("no render engine available")
)
