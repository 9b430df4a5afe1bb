package pdfstitch

import (
	"fmt"
	"time"

	"github.com/alnah/go-pdfstitch/internal/paginate"
	"github.com/alnah/go-pdfstitch/internal/stitch"
)

// Format is the output image encoding.
type Format = stitch.Format

const (
	FormatPNG  = stitch.FormatPNG
	FormatJPEG = stitch.FormatJPEG
)

// ResizeMode selects how pages are brought to the canvas width.
type ResizeMode = stitch.ResizeMode

const (
	ResizeProportional = stitch.ResizeProportional
	ResizeStretch      = stitch.ResizeStretch
)

// Kind is the detected format of a source document.
type Kind = paginate.Kind

const (
	KindPDF      = paginate.KindPDF
	KindMarkdown = paginate.KindMarkdown
	KindHTML     = paginate.KindHTML
)

// Option defaults.
const (
	DefaultResolutionDPI = 300
	DefaultQuality       = stitch.DefaultQuality
)

// Options are per-document conversion settings. Zero values select the
// defaults: png, 300 DPI, quality 100, proportional resize.
type Options struct {
	Format        Format     // "png" (default), "jpg" or "jpeg"
	ResolutionDPI int        // render density, must be positive when set
	OutputQuality int        // 0-100, JPEG only; 0 means 100
	ResizeMode    ResizeMode // "proportional" (default) or "stretch"
}

// DefaultOptions returns Options with every default spelled out.
func DefaultOptions() Options {
	return Options{
		Format:        FormatPNG,
		ResolutionDPI: DefaultResolutionDPI,
		OutputQuality: DefaultQuality,
		ResizeMode:    ResizeProportional,
	}
}

// Validate checks o. A nil receiver is valid and means defaults.
func (o *Options) Validate() error {
	if o == nil {
		return nil
	}
	_, err := o.normalized()
	return err
}

// normalized returns a copy with defaults applied and Format canonical.
func (o *Options) normalized() (Options, error) {
	out := DefaultOptions()
	if o == nil {
		return out, nil
	}

	f, err := stitch.ParseFormat(string(o.Format))
	if err != nil {
		return out, err
	}
	out.Format = f

	if o.ResolutionDPI < 0 {
		return out, fmt.Errorf("%w: %d", ErrInvalidResolution, o.ResolutionDPI)
	}
	if o.ResolutionDPI > 0 {
		out.ResolutionDPI = o.ResolutionDPI
	}

	if err := stitch.ValidateQuality(o.OutputQuality); err != nil {
		return out, err
	}
	if o.OutputQuality > 0 {
		out.OutputQuality = o.OutputQuality
	}

	if err := o.ResizeMode.Validate(); err != nil {
		return out, err
	}
	if o.ResizeMode != "" {
		out.ResizeMode = o.ResizeMode
	}
	return out, nil
}

// Input is one document to stitch. Exactly one of Data or Path is set.
type Input struct {
	Data []byte // document bytes
	Path string // document on disk, read in place
	// Name identifies Data for kind detection and output naming,
	// e.g. "report.pdf". Ignored when Path is set.
	Name string
	// OutputPath is where the image is written. When empty, the image is
	// written next to Path, or to a uniquely named file in the work
	// directory for Data.
	OutputPath string
	Options    *Options // nil means defaults
}

// Result describes a stitched image.
type Result struct {
	ImagePath string
	Width     int
	Height    int
	Pages     int
	Engine    string // render engine that produced the pages
	Kind      Kind
	Duration  time.Duration
}

// DetectKind identifies a source by its leading bytes and file name.
func DetectKind(name string, head []byte) (Kind, error) {
	return paginate.DetectKind(name, head)
}
