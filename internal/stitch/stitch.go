// Package stitch composites an ordered page sequence into one vertically
// stacked image.
//
// The canvas geometry is planned up front (see Plan). Pages are then
// decoded and drawn concurrently, each into its own row band, so workers
// never write the same pixels.
package stitch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"os"
	"runtime"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-pdfstitch/internal/fileutil"
	"github.com/alnah/go-pdfstitch/internal/logger"
	"github.com/alnah/go-pdfstitch/internal/page"
)

// DefaultMaxPixels caps the canvas at 400 megapixels (1.6 GB as RGBA).
const DefaultMaxPixels int64 = 400_000_000

// Options controls compositing and encoding.
type Options struct {
	Format    Format
	Quality   int
	Resize    ResizeMode
	MaxPixels int64 // zero means DefaultMaxPixels, negative disables the check
	Workers   int   // zero means GOMAXPROCS
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) maxPixels() int64 {
	if o.MaxPixels == 0 {
		return DefaultMaxPixels
	}
	return o.MaxPixels
}

// Result describes a written canvas.
type Result struct {
	Path   string
	Width  int
	Height int
	Pages  int
}

// Stitch composites seq and writes the canvas to outPath. The file appears
// at outPath only once fully written; on failure nothing is left there.
// Page files are not removed; see Cleanup.
func Stitch(ctx context.Context, seq page.Sequence, outPath string, opts Options) (*Result, error) {
	if err := ValidateQuality(opts.Quality); err != nil {
		return nil, err
	}
	if opts.Format != "" && opts.Format != FormatPNG && opts.Format != FormatJPEG {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, opts.Format)
	}

	canvas, err := Compose(ctx, seq, opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := WriteCanvas(canvas, outPath, opts.Format, opts.Quality); err != nil {
		return nil, err
	}

	b := canvas.Bounds()
	logger.Debug("stitched %d page(s) into %dx%d %s", len(seq), b.Dx(), b.Dy(), outPath)
	return &Result{Path: outPath, Width: b.Dx(), Height: b.Dy(), Pages: len(seq)}, nil
}

// Compose plans the layout, allocates a white canvas and draws every page
// into its band.
func Compose(ctx context.Context, seq page.Sequence, opts Options) (*image.RGBA, error) {
	layout, err := Plan(seq, opts.Resize)
	if err != nil {
		return nil, err
	}
	if limit := opts.maxPixels(); limit > 0 && layout.Pixels() > limit {
		return nil, fmt.Errorf("%w: %dx%d is %d pixels, limit %d",
			ErrCanvasTooLarge, layout.Width, layout.Height, layout.Pixels(), limit)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, layout.Width, layout.Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i := range seq {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return drawPage(canvas, seq[i], layout.Bands[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return canvas, nil
}

// drawPage decodes p and draws it into band, scaling when the page is not
// already at canvas width.
func drawPage(canvas *image.RGBA, p page.Image, band Band) error {
	src, err := decodeFile(p.Path)
	if err != nil {
		return fmt.Errorf("%w: page %d: %v", ErrResizeFailed, p.Ordinal, err)
	}
	sb := src.Bounds()
	if sb.Dx() != p.Width || sb.Dy() != p.Height {
		return fmt.Errorf("%w: page %d decoded as %dx%d, measured %dx%d",
			ErrResizeFailed, p.Ordinal, sb.Dx(), sb.Dy(), p.Width, p.Height)
	}

	dst := image.Rect(0, band.Y, canvas.Bounds().Dx(), band.Y+band.Height)
	if !band.Scaled && band.Height == sb.Dy() {
		draw.Draw(canvas, dst, src, sb.Min, draw.Over)
		return nil
	}
	xdraw.CatmullRom.Scale(canvas, dst, src, sb, xdraw.Over, nil)
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path) // #nosec G304 -- page paths come from the rasterizer
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// WriteCanvas encodes canvas to path atomically.
func WriteCanvas(canvas image.Image, path string, format Format, quality int) error {
	err := fileutil.WriteAtomic(path, func(w io.Writer) error {
		return Encode(w, canvas, format, quality)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidFormat) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return nil
}

// Cleanup removes the page files of seq. Missing files are not an error.
func Cleanup(seq page.Sequence) error {
	var errs []error
	for _, p := range seq {
		if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
