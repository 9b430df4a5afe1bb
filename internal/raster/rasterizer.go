// Package raster turns a paginated document into an ordered sequence of
// page images by delegating rendering to an external engine. Engines are
// tried in order; the first one that succeeds wins.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // decode JPEG page headers
	_ "image/png"  // decode PNG page headers
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"  // decode BMP page headers
	_ "golang.org/x/image/tiff" // decode TIFF page headers
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-pdfstitch/internal/logger"
	"github.com/alnah/go-pdfstitch/internal/page"
)

// DefaultTimeout bounds a single engine invocation.
const DefaultTimeout = 2 * time.Minute

// pageFilePattern matches PagePrefix, an optional dash, the page number and
// an image extension. The number is parsed as an integer so page-10 sorts
// after page-9.
var pageFilePattern = regexp.MustCompile(`^` + PagePrefix + `-?(\d+)\.(?i:png|jpe?g|tiff?|bmp)$`)

// Rasterizer renders documents with a fallback chain of engines.
type Rasterizer struct {
	engines []Engine
	timeout time.Duration
	workers int
}

// Option configures a Rasterizer.
type Option func(*Rasterizer)

// WithTimeout sets the per-engine timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(r *Rasterizer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithWorkers sets how many pages are measured concurrently.
func WithWorkers(n int) Option {
	return func(r *Rasterizer) {
		if n > 0 {
			r.workers = n
		}
	}
}

// New creates a Rasterizer trying engines in the given order.
func New(engines []Engine, opts ...Option) *Rasterizer {
	r := &Rasterizer{
		engines: engines,
		timeout: DefaultTimeout,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is a rasterized document.
type Result struct {
	Pages  page.Sequence
	Engine string
}

// Rasterize renders src into dir at dpi and returns the pages in ordinal
// order with measured dimensions. dir is created if absent. Page files are
// left in dir for the caller to consume and delete.
func (r *Rasterizer) Rasterize(ctx context.Context, src, dir string, dpi int) (*Result, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidResolution, dpi)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: creating output directory: %v", ErrRasterizationFailed, err)
	}

	engine, err := r.render(ctx, src, dir, dpi)
	if err != nil {
		return nil, err
	}

	pages, err := ListPages(dir)
	if err != nil {
		return nil, err
	}
	if err := pages.ValidateOrder(); err != nil {
		if errors.Is(err, page.ErrEmptySequence) {
			return nil, fmt.Errorf("%w: %s wrote no page files", ErrEmptyDocument, engine)
		}
		return nil, fmt.Errorf("%w: %v", ErrRasterizationFailed, err)
	}

	if err := r.measure(ctx, pages); err != nil {
		return nil, err
	}
	if err := pages.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPage, err)
	}

	logger.Debug("rasterized %d page(s) with %s at %d dpi", len(pages), engine, dpi)
	return &Result{Pages: pages, Engine: engine}, nil
}

// render runs the engine chain. Partial output of a failed attempt is
// removed before the next engine starts.
func (r *Rasterizer) render(ctx context.Context, src, dir string, dpi int) (string, error) {
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("%w: source: %v", ErrRasterizationFailed, err)
	}

	var attempts []error
	ran := false
	for _, e := range r.engines {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %w", ErrRasterizationFailed, err)
		}
		if !e.Available() {
			logger.Debug("render engine %s not available, skipping", e.Name())
			attempts = append(attempts, fmt.Errorf("%s: not installed", e.Name()))
			continue
		}

		if err := removePageFiles(dir); err != nil {
			return "", fmt.Errorf("%w: clearing partial output: %v", ErrRasterizationFailed, err)
		}

		ran = true
		logger.Debug("rendering %s with %s", filepath.Base(src), e.Name())
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := e.Render(attemptCtx, src, dir, dpi)
		cancel()
		if err == nil {
			return e.Name(), nil
		}

		logger.Warn("render engine %s failed: %v", e.Name(), err)
		attempts = append(attempts, fmt.Errorf("%s: %w", e.Name(), err))
		_ = removePageFiles(dir)
	}

	if !ran {
		return "", fmt.Errorf("%w: %w: %w", ErrRasterizationFailed, ErrNoEngine, errors.Join(attempts...))
	}
	return "", fmt.Errorf("%w: %w", ErrRasterizationFailed, errors.Join(attempts...))
}

// measure reads every page header concurrently. Results are written by index,
// so the sequence order never changes.
func (r *Rasterizer) measure(ctx context.Context, pages page.Sequence) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			w, h, err := MeasureFile(pages[i].Path)
			if err != nil {
				return fmt.Errorf("%w: page %d: %v", ErrCorruptPage, pages[i].Ordinal, err)
			}
			pages[i].Width, pages[i].Height = w, h
			return nil
		})
	}
	return g.Wait()
}

// MeasureFile returns the pixel dimensions of an image file without decoding
// its pixels.
func MeasureFile(path string) (width, height int, err error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from the workspace listing
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// ListPages returns the page files in dir ordered by their parsed page
// number. Files not matching the page naming scheme are ignored.
func ListPages(dir string) (page.Sequence, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: listing pages: %v", ErrRasterizationFailed, err)
	}

	var pages page.Sequence
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n, ok := ParsePageNumber(e.Name())
		if !ok {
			continue
		}
		pages = append(pages, page.Image{Ordinal: n, Path: filepath.Join(dir, e.Name())})
	}

	slices.SortStableFunc(pages, func(a, b page.Image) int {
		if a.Ordinal != b.Ordinal {
			return a.Ordinal - b.Ordinal
		}
		return strings.Compare(a.Path, b.Path)
	})
	return pages, nil
}

// ParsePageNumber extracts the page number from a page file name.
func ParsePageNumber(name string) (int, bool) {
	m := pageFilePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func removePageFiles(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), PagePrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
