package stitch

import (
	"fmt"
	"math"

	"github.com/alnah/go-pdfstitch/internal/page"
)

// ResizeMode selects how pages narrower or wider than the canvas are
// brought to the canvas width.
type ResizeMode string

const (
	// ResizeProportional scales height with width, keeping aspect ratio.
	ResizeProportional ResizeMode = "proportional"
	// ResizeStretch changes width only; page heights are kept.
	ResizeStretch ResizeMode = "stretch"
)

// Validate reports whether m is a known mode. Empty means proportional.
func (m ResizeMode) Validate() error {
	switch m {
	case "", ResizeProportional, ResizeStretch:
		return nil
	}
	return fmt.Errorf("%w: %q (expected proportional or stretch)", ErrInvalidResizeMode, m)
}

// Band is the row range a page occupies on the canvas.
type Band struct {
	Ordinal int
	Y       int // top row, inclusive
	Height  int
	// Scaled is false when the page is already at canvas width.
	Scaled bool
}

// Layout is the canvas geometry, fixed before any pixel is touched.
type Layout struct {
	Width  int
	Height int
	Bands  []Band
}

// Pixels returns Width*Height without overflowing int on 32-bit platforms.
func (l Layout) Pixels() int64 {
	return int64(l.Width) * int64(l.Height)
}

// Plan computes the canvas geometry for seq. Bands are contiguous and in
// ordinal order: band i starts at the sum of the heights of bands 0..i-1.
func Plan(seq page.Sequence, mode ResizeMode) (Layout, error) {
	if len(seq) == 0 {
		return Layout{}, ErrNoPages
	}
	if err := seq.Validate(); err != nil {
		return Layout{}, fmt.Errorf("%w: %v", ErrResizeFailed, err)
	}
	if err := mode.Validate(); err != nil {
		return Layout{}, err
	}

	width := seq.MaxWidth()
	bands := make([]Band, len(seq))
	y := 0
	for i, p := range seq {
		h := targetHeight(p, width, mode)
		if h > math.MaxInt32-y {
			return Layout{}, fmt.Errorf("%w: height overflows at page %d", ErrCanvasTooLarge, p.Ordinal)
		}
		bands[i] = Band{Ordinal: p.Ordinal, Y: y, Height: h, Scaled: p.Width != width}
		y += h
	}
	return Layout{Width: width, Height: y, Bands: bands}, nil
}

func targetHeight(p page.Image, width int, mode ResizeMode) int {
	if p.Width == width || mode == ResizeStretch {
		return p.Height
	}
	h := int(math.Round(float64(p.Height) * float64(width) / float64(p.Width)))
	return max(h, 1)
}
