// Package paginate prints Markdown and HTML sources to PDF so they can be
// rasterized like any other paginated document.
package paginate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-pdfstitch/internal/logger"
)

// DefaultTimeout bounds one page load and print.
const DefaultTimeout = 2 * time.Minute

// Paginator turns a source document into a PDF file.
type Paginator interface {
	Paginate(ctx context.Context, kind Kind, src, dstPDF string) error
	Close() error
}

var _ Paginator = (*Chrome)(nil)

// Chrome paginates with headless Chrome. Markdown is first rendered to
// HTML next to the destination file.
type Chrome struct {
	settings    Settings
	timeout     time.Duration
	allowRemote bool
	markdown    *MarkdownRenderer
	printer     pdfPrinter
}

// Option configures a Chrome paginator.
type Option func(*Chrome)

// WithSettings sets page size and margin.
func WithSettings(s Settings) Option {
	return func(c *Chrome) { c.settings = s }
}

// WithTimeout sets the page load timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Chrome) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRemoteResources lets printed pages load http(s) images, styles and
// fonts. Off by default: pages render from their own markup only.
// file: URLs are blocked either way.
func WithRemoteResources(allow bool) Option {
	return func(c *Chrome) { c.allowRemote = allow }
}

// NewChrome creates a paginator. The browser starts on first use.
func NewChrome(opts ...Option) *Chrome {
	c := &Chrome{
		settings: DefaultSettings(),
		timeout:  DefaultTimeout,
		markdown: NewMarkdownRenderer(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.printer = newRodPrinter(c.timeout, c.allowRemote)
	return c
}

// Paginate writes a PDF rendering of src to dstPDF.
func (c *Chrome) Paginate(ctx context.Context, kind Kind, src, dstPDF string) error {
	if err := c.settings.Validate(); err != nil {
		return err
	}

	htmlPath := src
	switch kind {
	case KindHTML:
	case KindMarkdown:
		content, err := os.ReadFile(src) // #nosec G304 -- caller-provided source
		if err != nil {
			return fmt.Errorf("%w: reading markdown: %v", ErrPagination, err)
		}
		title := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		doc, err := c.markdown.ToHTML(ctx, title, content)
		if err != nil {
			return err
		}
		htmlPath = strings.TrimSuffix(dstPDF, filepath.Ext(dstPDF)) + ".html"
		if err := os.WriteFile(htmlPath, []byte(doc), 0o600); err != nil {
			return fmt.Errorf("%w: writing html: %v", ErrPagination, err)
		}
		defer os.Remove(htmlPath)
	default:
		return fmt.Errorf("%w: cannot paginate %s", ErrUnsupportedSource, kind)
	}

	logger.Debug("printing %s to PDF", filepath.Base(src))
	data, err := c.printer.PrintFile(ctx, htmlPath, c.settings)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dstPDF, data, 0o600); err != nil {
		return fmt.Errorf("%w: writing pdf: %v", ErrPagination, err)
	}
	return nil
}

// Close releases the browser.
func (c *Chrome) Close() error {
	return c.printer.Close()
}
