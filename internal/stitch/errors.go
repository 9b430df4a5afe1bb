package stitch

import "errors"

// Sentinel errors for stitching.
var (
	ErrNoPages           = errors.New("no pages to stitch")
	ErrResizeFailed      = errors.New("page resize failed")
	ErrEncodeFailed      = errors.New("canvas encode failed")
	ErrCanvasTooLarge    = errors.New("canvas exceeds pixel budget")
	ErrInvalidFormat     = errors.New("unsupported output format")
	ErrInvalidQuality    = errors.New("quality must be between 0 and 100")
	ErrInvalidResizeMode = errors.New("unknown resize mode")
)
