package pdfstitch

import (
	"time"

	"github.com/alnah/go-pdfstitch/internal/paginate"
	"github.com/alnah/go-pdfstitch/internal/raster"
)

// defaultTimeout bounds each render engine attempt and each pagination.
const defaultTimeout = raster.DefaultTimeout

// converterConfig holds the settings applied by Options.
type converterConfig struct {
	timeout       time.Duration
	workDir       string
	engineNames   []string
	engines       []raster.Engine
	workers       int
	maxPixels     int64
	keepWorkspace bool
	pageSettings  paginate.Settings
	// remoteResources lets paginated HTML load http(s) subresources.
	remoteResources bool
}

// Option configures a Converter.
type Option func(*Converter)

// WithTimeout sets the render timeout. Each engine attempt gets the full
// duration. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Converter) {
		if d > 0 {
			c.cfg.timeout = d
		}
	}
}

// WithWorkDir sets the parent directory of per-document workspaces.
// Empty means os.TempDir.
func WithWorkDir(dir string) Option {
	return func(c *Converter) {
		c.cfg.workDir = dir
	}
}

// WithEngines selects built-in render engines by name, tried in order:
// "poppler", "mupdf", "ghostscript".
func WithEngines(names ...string) Option {
	return func(c *Converter) {
		c.cfg.engineNames = names
	}
}

// WithRenderEngines uses custom engines instead of the built-in ones.
func WithRenderEngines(engines ...raster.Engine) Option {
	return func(c *Converter) {
		c.cfg.engines = engines
	}
}

// WithRemoteResources lets Markdown and HTML sources load images and
// stylesheets over http(s) while they are printed. Local files are never
// readable from a document.
func WithRemoteResources(allow bool) Option {
	return func(c *Converter) {
		c.cfg.remoteResources = allow
	}
}

// WithWorkers sets per-page concurrency for measuring and compositing.
func WithWorkers(n int) Option {
	return func(c *Converter) {
		if n > 0 {
			c.cfg.workers = n
		}
	}
}

// WithMaxCanvasPixels caps the output canvas size. Negative disables the
// check.
func WithMaxCanvasPixels(n int64) Option {
	return func(c *Converter) {
		c.cfg.maxPixels = n
	}
}

// WithKeepWorkspace leaves the workspace and page files on disk after the
// conversion, for inspecting engine output.
func WithKeepWorkspace(keep bool) Option {
	return func(c *Converter) {
		c.cfg.keepWorkspace = keep
	}
}

// WithPageSettings sets paper size and margin used when printing Markdown
// and HTML sources.
func WithPageSettings(pageSize string, margin float64) Option {
	return func(c *Converter) {
		c.cfg.pageSettings = paginate.Settings{PageSize: pageSize, Margin: margin}
	}
}

// WithPaginator replaces the headless Chrome paginator.
func WithPaginator(p paginate.Paginator) Option {
	return func(c *Converter) {
		c.paginator = p
	}
}
