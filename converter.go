package pdfstitch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alnah/go-pdfstitch/internal/fileutil"
	"github.com/alnah/go-pdfstitch/internal/logger"
	"github.com/alnah/go-pdfstitch/internal/page"
	"github.com/alnah/go-pdfstitch/internal/paginate"
	"github.com/alnah/go-pdfstitch/internal/raster"
	"github.com/alnah/go-pdfstitch/internal/stitch"
	"github.com/alnah/go-pdfstitch/internal/workspace"
)

// sniffLen is how many leading bytes are read for kind detection.
const sniffLen = 512

// Workspace file names.
const (
	sourceStem = "source"
	pagesDir   = "pages"
)

// Converter runs the rasterize-and-stitch pipeline. Create with
// NewConverter, call StitchDocument any number of times (concurrently if
// needed), and Close when done.
type Converter struct {
	cfg        converterConfig
	rasterizer *raster.Rasterizer
	paginator  paginate.Paginator
	// cleanupPages removes rendered pages once the image is written.
	cleanupPages func(page.Sequence) error

	mu     sync.Mutex
	closed bool
}

// NewConverter creates a Converter. Unknown engine names and invalid page
// settings are reported here rather than on first use.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg: converterConfig{
			timeout:      defaultTimeout,
			pageSettings: paginate.DefaultSettings(),
		},
		cleanupPages: stitch.Cleanup,
	}
	for _, opt := range opts {
		opt(c)
	}

	engines := c.cfg.engines
	if len(engines) == 0 {
		var err error
		engines, err = raster.Engines(c.cfg.engineNames)
		if err != nil {
			return nil, err
		}
	}
	if err := c.cfg.pageSettings.Validate(); err != nil {
		return nil, err
	}

	rasterOpts := []raster.Option{raster.WithTimeout(c.cfg.timeout)}
	if c.cfg.workers > 0 {
		rasterOpts = append(rasterOpts, raster.WithWorkers(c.cfg.workers))
	}
	c.rasterizer = raster.New(engines, rasterOpts...)

	if c.paginator == nil {
		c.paginator = paginate.NewChrome(
			paginate.WithSettings(c.cfg.pageSettings),
			paginate.WithTimeout(c.cfg.timeout),
			paginate.WithRemoteResources(c.cfg.remoteResources),
		)
	}
	return c, nil
}

// Close releases the headless browser if one was started.
func (c *Converter) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.paginator.Close()
}

func (c *Converter) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// StitchDocument rasterizes every page of the input and stacks the pages
// vertically into one image. Failures are returned as *StageError. The
// per-document workspace is removed on every path unless the converter
// keeps workspaces. Panics inside the pipeline are recovered into errors.
func (c *Converter) StitchDocument(ctx context.Context, in Input) (res *Result, err error) {
	stage := StageInput
	defer func() {
		if r := recover(); r != nil {
			err = stageErr(stage, fmt.Errorf("internal error: %v", r))
			res = nil
		}
	}()

	if c.isClosed() {
		return nil, stageErr(StageInput, ErrClosed)
	}
	start := time.Now()

	opts, err := in.Options.normalized()
	if err != nil {
		return nil, stageErr(StageInput, fmt.Errorf("%w: %w", ErrInput, err))
	}
	kind, err := in.detect()
	if err != nil {
		return nil, stageErr(StageInput, fmt.Errorf("%w: %w", ErrInput, err))
	}
	outPath, err := c.outputPath(in, opts.Format)
	if err != nil {
		return nil, stageErr(StageInput, fmt.Errorf("%w: %w", ErrInput, err))
	}

	// Registered before the workspace defer so it also sees a failed Close.
	var written bool
	defer func() {
		if err != nil && written {
			if rerr := os.Remove(outPath); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
				logger.Warn("removing %s: %v", outPath, rerr)
			}
		}
	}()

	stage = StageWorkspace
	ws, err := workspace.New(c.cfg.workDir)
	if err != nil {
		return nil, stageErr(StageWorkspace, err)
	}
	if c.cfg.keepWorkspace {
		ws.KeepOnClose()
		logger.Info("keeping workspace %s", ws.Dir())
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			if err == nil {
				err = stageErr(StageCleanup, cerr)
				res = nil
				return
			}
			logger.Warn("workspace cleanup failed: %v", cerr)
		}
	}()

	src := in.Path
	if in.Path == "" {
		src, err = ws.WriteFile(sourceStem+sourceExt(kind), in.Data)
		if err != nil {
			return nil, stageErr(StageWorkspace, err)
		}
	}

	if kind.NeedsPagination() {
		stage = StagePaginate
		logger.Debug("paginating %s source", kind)
		pdfPath := ws.Path(sourceStem + ".pdf")
		pctx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
		err = c.paginator.Paginate(pctx, kind, src, pdfPath)
		cancel()
		if err != nil {
			return nil, stageErr(StagePaginate, err)
		}
		src = pdfPath
	}

	stage = StageRasterize
	rr, err := c.rasterizer.Rasterize(ctx, src, ws.Path(pagesDir), opts.ResolutionDPI)
	if err != nil {
		return nil, stageErr(StageRasterize, err)
	}
	if !c.cfg.keepWorkspace {
		if err := ws.RemovePrefix(sourceStem); err != nil {
			logger.Debug("could not drop intermediate source: %v", err)
		}
	}

	stage = StageStitch
	if err := os.MkdirAll(filepath.Dir(outPath), fileutil.DirPermissions); err != nil {
		return nil, stageErr(StageWrite, fmt.Errorf("%w: creating output directory: %v", ErrEncodeFailed, err))
	}
	sr, err := stitch.Stitch(ctx, rr.Pages, outPath, stitch.Options{
		Format:    opts.Format,
		Quality:   opts.OutputQuality,
		Resize:    opts.ResizeMode,
		MaxPixels: c.cfg.maxPixels,
		Workers:   c.cfg.workers,
	})
	if err != nil {
		if errors.Is(err, ErrEncodeFailed) {
			return nil, stageErr(StageWrite, err)
		}
		return nil, stageErr(StageStitch, err)
	}
	written = true

	if !c.cfg.keepWorkspace {
		stage = StageCleanup
		if err := c.cleanupPages(rr.Pages); err != nil {
			return nil, stageErr(StageCleanup, err)
		}
	}

	res = &Result{
		ImagePath: sr.Path,
		Width:     sr.Width,
		Height:    sr.Height,
		Pages:     sr.Pages,
		Engine:    rr.Engine,
		Kind:      kind,
		Duration:  time.Since(start),
	}
	logger.Debug("stitched %d page(s) in %s", res.Pages, res.Duration.Round(time.Millisecond))
	return res, nil
}

// detect validates the Data/Path choice and identifies the source kind.
func (in Input) detect() (Kind, error) {
	switch {
	case in.Path != "" && in.Data != nil:
		return 0, errors.New("set either Data or Path, not both")
	case in.Path != "":
		head, err := readHead(in.Path)
		if err != nil {
			return 0, err
		}
		return DetectKind(in.Path, head)
	case len(in.Data) > 0:
		return DetectKind(in.Name, in.Data[:min(len(in.Data), sniffLen)])
	}
	return 0, errors.New("document is empty")
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path) // #nosec G304 -- caller-provided document path
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}
	return head[:n], nil
}

// outputPath resolves where the image goes. An explicit OutputPath keeps
// its name; a missing extension gets the format's. The source is never a
// valid destination: a derived name gets a suffix, an explicit one fails.
func (c *Converter) outputPath(in Input, format Format) (string, error) {
	ext := format.Extension()
	if in.OutputPath != "" {
		out := in.OutputPath
		if filepath.Ext(out) == "" {
			out += "." + ext
		}
		if in.Path != "" && fileutil.SamePath(out, in.Path) {
			return "", fmt.Errorf("%w: %s", ErrOutputIsInput, out)
		}
		return out, nil
	}
	if in.Path != "" {
		return fileutil.StitchedName(in.Path, ext), nil
	}

	dir := c.cfg.workDir
	if dir == "" {
		dir = os.TempDir()
	}
	name, err := fileutil.UniqueName(strings.TrimSuffix(in.Name, filepath.Ext(in.Name)), ext)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func sourceExt(k Kind) string {
	switch k {
	case KindMarkdown:
		return ".md"
	case KindHTML:
		return ".html"
	}
	return ".pdf"
}
