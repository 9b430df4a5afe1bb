// Package page defines the rasterized page model shared by the rasterizer
// and the stitcher.
package page

import (
	"errors"
	"fmt"
)

// Sentinel errors for sequence validation.
var (
	ErrEmptySequence     = errors.New("page sequence is empty")
	ErrOrdinalGap        = errors.New("page sequence has a gap")
	ErrDuplicateOrdinal  = errors.New("page sequence has a duplicate ordinal")
	ErrInvalidDimensions = errors.New("page has invalid dimensions")
)

// Image is one rasterized page. The pixels live in the file at Path and are
// decoded only when the page is composited.
type Image struct {
	Ordinal int // 1-based source page number
	Path    string
	Width   int
	Height  int
}

// Sequence is the ordered list of pages of one document.
// Ordinals run 1..n in ascending order with no gaps or duplicates.
type Sequence []Image

// ValidateOrder checks the ordering half of the invariant: non-empty and
// ordinals exactly 1..len(s) ascending. Dimensions are not inspected, so it
// can run before pages are measured.
func (s Sequence) ValidateOrder() error {
	if len(s) == 0 {
		return ErrEmptySequence
	}
	for i, img := range s {
		want := i + 1
		switch {
		case img.Ordinal == want:
		case i > 0 && img.Ordinal == s[i-1].Ordinal:
			return fmt.Errorf("%w: page %d", ErrDuplicateOrdinal, img.Ordinal)
		default:
			return fmt.Errorf("%w: expected page %d, found %d", ErrOrdinalGap, want, img.Ordinal)
		}
	}
	return nil
}

// Validate checks the full invariant: ValidateOrder plus positive
// dimensions on every page.
func (s Sequence) Validate() error {
	if err := s.ValidateOrder(); err != nil {
		return err
	}
	for _, img := range s {
		if img.Width <= 0 || img.Height <= 0 {
			return fmt.Errorf("%w: page %d is %dx%d", ErrInvalidDimensions, img.Ordinal, img.Width, img.Height)
		}
	}
	return nil
}

// MaxWidth returns the widest page width.
func (s Sequence) MaxWidth() int {
	w := 0
	for _, img := range s {
		w = max(w, img.Width)
	}
	return w
}

// TotalHeight returns the sum of source page heights.
func (s Sequence) TotalHeight() int {
	h := 0
	for _, img := range s {
		h += img.Height
	}
	return h
}

// Paths returns the page file paths in ordinal order.
func (s Sequence) Paths() []string {
	paths := make([]string, len(s))
	for i, img := range s {
		paths[i] = img.Path
	}
	return paths
}
