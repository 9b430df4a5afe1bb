package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	flag "github.com/spf13/pflag"

	pdfstitch "github.com/alnah/go-pdfstitch"
	"github.com/alnah/go-pdfstitch/internal/config"
	"github.com/alnah/go-pdfstitch/internal/fetch"
	"github.com/alnah/go-pdfstitch/internal/fileutil"
	"github.com/alnah/go-pdfstitch/internal/stitch"
)

// Sentinel errors for convert.
var (
	ErrNoInput       = errors.New("no input specified")
	ErrConverterInit = errors.New("failed to initialize converter")
)

// sourceExtensions are the file types discovered in directories.
var sourceExtensions = map[string]bool{
	".pdf":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
}

// documentFetcher downloads URL inputs.
type documentFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Document, error)
}

// job is one document to stitch: a file path or an http(s) URL.
type job struct {
	Source     string
	OutputPath string
}

func (j job) isURL() bool { return fileutil.IsURL(j.Source) }

// ConversionResult holds the outcome of a single conversion.
type ConversionResult struct {
	Source     string
	OutputPath string
	Result     *pdfstitch.Result
	Err        error
	Duration   time.Duration
}

// batchError summarizes failed conversions and unwraps to the first one,
// so the exit code reflects it.
type batchError struct {
	failed, total int
	first         error
}

func (e *batchError) Error() string {
	if e.total == 1 {
		return e.first.Error()
	}
	return fmt.Sprintf("%d of %d conversions failed", e.failed, e.total)
}

func (e *batchError) Unwrap() error { return e.first }

// runConvert orchestrates the convert command.
func runConvert(ctx context.Context, args []string, env *Environment) error {
	flags, inputs, err := parseConvertFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	configureRuntime(flags.common)
	warnUnknownEnvVars(env)

	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	ecfg := loadEnvConfig(env)
	cfg, err := loadConfig(flags.common.config, ecfg)
	if err != nil {
		return err
	}
	mergeConvertFlags(flags, inputs, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	timeout, err := resolveTimeoutWithEnv(flags.render.timeout, ecfg.Timeout, cfg.Render.Timeout)
	if err != nil {
		return err
	}

	if len(inputs) == 0 {
		return ErrNoInput
	}
	format, err := stitch.ParseFormat(cfg.Stitch.Format)
	if err != nil {
		return err
	}
	jobs, err := planJobs(inputs, flags.output, cfg.Output.DefaultDir, format.Extension())
	if err != nil {
		return err
	}

	workers := flags.workers
	if workers == 0 {
		workers = ecfg.Workers
	}
	size := min(pdfstitch.ResolvePoolSize(workers), len(jobs))
	opts := append(converterOptions(cfg, timeout), env.ConverterOptions...)
	pool := pdfstitch.NewConverterPool(size, opts...)
	defer pool.Close()

	fetcher := fetch.New(fetch.WithTimeout(cfg.FetchTimeout()))
	docOpts := &pdfstitch.Options{
		Format:        format,
		ResolutionDPI: cfg.Stitch.ResolutionDPI,
		OutputQuality: cfg.Stitch.OutputQuality,
		ResizeMode:    pdfstitch.ResizeMode(cfg.Stitch.ResizeMode),
	}

	results := convertBatch(ctx, pool, fetcher, jobs, docOpts)
	return printResults(results, flags.common, env)
}

// mergeConvertFlags applies explicitly set flags over cfg (CLI wins).
// With a single input and an image output path, the output extension
// picks the format unless --format is given.
func mergeConvertFlags(f *convertFlags, inputs []string, cfg *config.Config) {
	if f.stitch.format != "" {
		cfg.Stitch.Format = f.stitch.format
	} else if len(inputs) == 1 && isImagePath(f.output) {
		cfg.Stitch.Format = strings.TrimPrefix(strings.ToLower(filepath.Ext(f.output)), ".")
	}
	if f.stitch.resolution != 0 {
		cfg.Stitch.ResolutionDPI = f.stitch.resolution
	}
	if f.stitch.quality != 0 {
		cfg.Stitch.OutputQuality = f.stitch.quality
	}
	if f.stitch.resize != "" {
		cfg.Stitch.ResizeMode = f.stitch.resize
	}
	if len(f.render.engines) > 0 {
		cfg.Render.Engines = f.render.engines
	}
	if f.render.keepWorkspace {
		cfg.Render.KeepWorkspace = true
	}
	if f.render.workDir != "" {
		cfg.Render.WorkDir = f.render.workDir
	}
	if f.page.size != "" {
		cfg.Paginate.PageSize = f.page.size
	}
	if f.page.margin != 0 {
		cfg.Paginate.Margin = f.page.margin
	}
}

// converterOptions translates cfg into library options.
func converterOptions(cfg *config.Config, timeout time.Duration) []pdfstitch.Option {
	opts := []pdfstitch.Option{
		pdfstitch.WithEngines(cfg.Render.Engines...),
		pdfstitch.WithWorkDir(cfg.Render.WorkDir),
		pdfstitch.WithWorkers(cfg.Stitch.Workers),
		pdfstitch.WithKeepWorkspace(cfg.Render.KeepWorkspace),
		pdfstitch.WithPageSettings(cfg.Paginate.PageSize, cfg.Paginate.Margin),
		pdfstitch.WithRemoteResources(cfg.Paginate.RemoteResources),
	}
	if cfg.Stitch.MaxCanvasPixels != 0 {
		opts = append(opts, pdfstitch.WithMaxCanvasPixels(cfg.Stitch.MaxCanvasPixels))
	}
	if timeout > 0 {
		opts = append(opts, pdfstitch.WithTimeout(timeout))
	}
	return opts
}

// validateWorkers rejects negative worker counts.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be 0 for auto or positive)", ErrInvalidWorkerCount, n)
	}
	return nil
}

func isImagePath(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// looksLikeDocument reports whether s is a URL or has a source extension.
func looksLikeDocument(s string) bool {
	return fileutil.IsURL(s) || sourceExtensions[strings.ToLower(filepath.Ext(s))]
}

// source is an input with the directory it was discovered under.
type source struct {
	path string
	base string // non-empty when found by walking a directory
}

// planJobs expands directories and assigns output paths.
// Output rules: a single input with an image-named --output writes there;
// otherwise --output (or the configured default) is a directory, mirroring
// discovered subdirectories; with neither, images go next to their source
// and URL results into the current directory.
func planJobs(inputs []string, output, defaultDir, ext string) ([]job, error) {
	var sources []source
	for _, in := range inputs {
		if fileutil.IsURL(in) {
			sources = append(sources, source{path: in})
			continue
		}
		info, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", in, err)
		}
		if !info.IsDir() {
			sources = append(sources, source{path: in})
			continue
		}
		found, err := discoverFiles(in)
		if err != nil {
			return nil, fmt.Errorf("discovering files: %w", err)
		}
		for _, p := range found {
			sources = append(sources, source{path: p, base: in})
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no PDF, Markdown or HTML files found", ErrNoInput)
	}

	if len(sources) == 1 && isImagePath(output) {
		return []job{{Source: sources[0].path, OutputPath: output}}, nil
	}

	outDir := output
	if outDir == "" {
		outDir = defaultDir
	}

	jobs := make([]job, 0, len(sources))
	seen := make(map[string]int)
	for _, s := range sources {
		out := outputPathFor(s, outDir, ext)
		// a.pdf and a.md in one directory must not overwrite each other.
		if n := seen[out]; n > 0 {
			seen[out]++
			out = strings.TrimSuffix(out, "."+ext) + "-" + strconv.Itoa(n+1) + "." + ext
		} else {
			seen[out] = 1
		}
		jobs = append(jobs, job{Source: s.path, OutputPath: out})
	}
	return jobs, nil
}

func outputPathFor(s source, outDir, ext string) string {
	if fileutil.IsURL(s.path) {
		name := "document.pdf"
		if u, err := url.Parse(s.path); err == nil {
			name = fetch.NameFromURL(u)
		}
		stem := fileutil.SanitizeStem(name)
		if stem == "" {
			stem = "document"
		}
		return filepath.Join(outDir, stem+"."+ext)
	}

	if outDir == "" {
		return fileutil.StitchedName(s.path, ext)
	}
	rel := filepath.Base(s.path)
	if s.base != "" {
		if r, err := filepath.Rel(s.base, s.path); err == nil {
			rel = r
		}
	}
	out := filepath.Join(outDir, fileutil.ReplaceExt(rel, ext))
	if fileutil.SamePath(out, s.path) {
		out = strings.TrimSuffix(out, "."+ext) + "-stitched." + ext
	}
	return out
}

// discoverFiles walks dir for supported sources, skipping hidden
// directories. Results are in lexical order.
func discoverFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if sourceExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertBatch processes jobs concurrently, one converter per worker.
func convertBatch(ctx context.Context, pool *pdfstitch.ConverterPool, f documentFetcher, jobs []job, opts *pdfstitch.Options) []ConversionResult {
	if len(jobs) == 0 {
		return nil
	}

	concurrency := min(pool.Size(), len(jobs))
	results := make([]ConversionResult, len(jobs))
	queue := make(chan int, len(jobs))
	for i := range jobs {
		queue <- i
	}
	close(queue)

	var wg sync.WaitGroup
	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()

			conv, err := pool.Acquire()
			if err != nil {
				// Converter creation failed, mark remaining jobs as failed.
				for idx := range queue {
					results[idx] = ConversionResult{
						Source: jobs[idx].Source,
						Err:    fmt.Errorf("%w: %w", ErrConverterInit, err),
					}
				}
				return
			}
			defer pool.Release(conv)

			for idx := range queue {
				if ctx.Err() != nil {
					results[idx] = ConversionResult{Source: jobs[idx].Source, Err: ctx.Err()}
					continue
				}
				results[idx] = convertJob(ctx, conv, f, jobs[idx], opts)
			}
		}()
	}
	wg.Wait()
	return results
}

// convertJob stitches one document.
func convertJob(ctx context.Context, conv *pdfstitch.Converter, f documentFetcher, j job, opts *pdfstitch.Options) ConversionResult {
	start := time.Now()
	r := ConversionResult{Source: j.Source, OutputPath: j.OutputPath}

	in := pdfstitch.Input{OutputPath: j.OutputPath, Options: opts}
	if j.isURL() {
		doc, err := f.Fetch(ctx, j.Source)
		if err != nil {
			r.Err = err
			r.Duration = time.Since(start)
			return r
		}
		in.Data, in.Name = doc.Data, doc.Name
	} else {
		in.Path = j.Source
	}

	res, err := conv.StitchDocument(ctx, in)
	r.Duration = time.Since(start)
	if err != nil {
		r.Err = err
		return r
	}
	r.Result = res
	r.OutputPath = res.ImagePath
	return r
}

// printResults reports each conversion and returns a *batchError if any
// failed.
func printResults(results []ConversionResult, f commonFlags, env *Environment) error {
	var failed int
	var first error
	for _, r := range results {
		if r.Err != nil {
			failed++
			if first == nil {
				first = r.Err
			}
			if len(results) > 1 {
				fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.Source, r.Err)
			}
			continue
		}
		if f.quiet {
			continue
		}
		if f.verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%dx%d, %d pages, %s, %v)\n",
				r.Source, r.OutputPath, r.Result.Width, r.Result.Height, r.Result.Pages,
				r.Result.Engine, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !f.quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", len(results)-failed, failed)
	}
	if failed > 0 {
		return &batchError{failed: failed, total: len(results), first: first}
	}
	return nil
}
