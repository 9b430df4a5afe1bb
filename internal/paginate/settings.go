package paginate

import (
	"fmt"
	"strings"
)

// Page sizes accepted by Settings.
const (
	PageLetter = "letter"
	PageA4     = "a4"
	PageLegal  = "legal"
)

// Margin bounds in inches.
const (
	DefaultMargin = 0.5
	MaxMargin     = 3.0
)

type paperSize struct {
	width, height float64 // inches
}

var paperSizes = map[string]paperSize{
	PageLetter: {8.5, 11},
	PageA4:     {8.27, 11.69},
	PageLegal:  {8.5, 14},
}

// Settings controls how HTML is printed to PDF.
type Settings struct {
	PageSize string  // letter, a4 or legal; empty means letter
	Margin   float64 // inches on every side; negative is invalid
}

// DefaultSettings returns letter paper with half-inch margins.
func DefaultSettings() Settings {
	return Settings{PageSize: PageLetter, Margin: DefaultMargin}
}

// Validate checks page size and margin.
func (s Settings) Validate() error {
	if _, ok := paperSizes[strings.ToLower(s.PageSize)]; !ok && s.PageSize != "" {
		return fmt.Errorf("%w: %q (expected letter, a4 or legal)", ErrInvalidPageSize, s.PageSize)
	}
	if s.Margin < 0 || s.Margin > MaxMargin {
		return fmt.Errorf("%w: %.2f (expected 0 to %.0f inches)", ErrInvalidMargin, s.Margin, MaxMargin)
	}
	return nil
}

func (s Settings) paper() paperSize {
	if p, ok := paperSizes[strings.ToLower(s.PageSize)]; ok {
		return p
	}
	return paperSizes[PageLetter]
}
