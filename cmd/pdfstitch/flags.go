package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// stitchFlags holds per-document image options.
type stitchFlags struct {
	format     string
	resolution int
	quality    int
	resize     string
}

// renderFlags holds render engine and workspace flags.
type renderFlags struct {
	engines       []string
	timeout       string
	keepWorkspace bool
	workDir       string
}

// pageFlags holds paper settings for Markdown and HTML sources.
type pageFlags struct {
	size   string
	margin float64
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common  commonFlags
	output  string
	workers int
	stitch  stitchFlags
	render  renderFlags
	page    pageFlags
}

// serveFlags holds flags for the serve command.
type serveFlags struct {
	common  commonFlags
	addr    string
	workers int
	timeout string
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVar(&f.quiet, "quiet", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show engine fallbacks and timing")
}

// addStitchFlags adds image option flags to a FlagSet.
func addStitchFlags(fs *flag.FlagSet, f *stitchFlags) {
	fs.StringVarP(&f.format, "format", "f", "", "output format: png, jpg")
	fs.IntVarP(&f.resolution, "resolution", "r", 0, "render density in DPI (default 300)")
	fs.IntVarP(&f.quality, "quality", "q", 0, "JPEG quality 1-100 (default 100)")
	fs.StringVar(&f.resize, "resize", "", "resize mode: proportional, stretch")
}

// addRenderFlags adds engine flags to a FlagSet.
func addRenderFlags(fs *flag.FlagSet, f *renderFlags) {
	fs.StringSliceVarP(&f.engines, "engine", "e", nil, "render engine, repeatable: poppler, mupdf, ghostscript")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-engine render timeout (e.g., 30s, 2m)")
	fs.BoolVar(&f.keepWorkspace, "keep-workspace", false, "keep page files for inspection")
	fs.StringVar(&f.workDir, "work-dir", "", "parent directory for temporary workspaces")
}

// addPageFlags adds page layout flags to a FlagSet.
func addPageFlags(fs *flag.FlagSet, f *pageFlags) {
	fs.StringVarP(&f.size, "page-size", "p", "", "paper for Markdown/HTML: letter, a4, legal")
	fs.Float64Var(&f.margin, "margin", 0, "paper margin in inches (0-3)")
}

// parseConvertFlags parses convert command flags and returns positional args.
func parseConvertFlags(args []string, stderr io.Writer) (*convertFlags, []string, error) {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &convertFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "output image file or directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "documents converted in parallel (0 = auto)")

	addCommonFlags(fs, &f.common)
	addStitchFlags(fs, &f.stitch)
	addRenderFlags(fs, &f.render)
	addPageFlags(fs, &f.page)

	fs.Usage = func() { printConvertUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseServeFlags parses serve command flags.
func parseServeFlags(args []string, stderr io.Writer) (*serveFlags, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &serveFlags{}

	fs.StringVar(&f.addr, "addr", "", "listen address (default :5000)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "concurrent conversions (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-engine render timeout")
	addCommonFlags(fs, &f.common)

	fs.Usage = func() { printServeUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}
