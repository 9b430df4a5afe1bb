package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	pdfstitch "github.com/alnah/go-pdfstitch"
	"github.com/alnah/go-pdfstitch/internal/config"
	"github.com/alnah/go-pdfstitch/internal/fetch"
	"github.com/alnah/go-pdfstitch/internal/logger"
	"github.com/alnah/go-pdfstitch/internal/server"
	"github.com/alnah/go-pdfstitch/internal/upload"
)

// runServe starts the HTTP API and blocks until ctx is cancelled.
func runServe(ctx context.Context, args []string, env *Environment) error {
	srv, pool, closeStorage, err := buildServer(ctx, args, env)
	if err != nil {
		return err
	}
	defer pool.Close()
	defer closeStorage()

	return srv.ListenAndServe(ctx)
}

// buildServer wires config, storage, the converter pool and the HTTP
// server. The caller owns the returned pool and storage closer.
func buildServer(ctx context.Context, args []string, env *Environment) (*server.Server, *pdfstitch.ConverterPool, func() error, error) {
	flags, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, nil, err
		}
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	configureRuntime(flags.common)
	warnUnknownEnvVars(env)

	if err := validateWorkers(flags.workers); err != nil {
		return nil, nil, nil, err
	}

	ecfg := loadEnvConfig(env)
	cfg, err := loadConfig(flags.common.config, ecfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}
	if flags.workers > 0 {
		cfg.Server.Workers = flags.workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	timeout, err := resolveTimeoutWithEnv(flags.timeout, ecfg.Timeout, cfg.Render.Timeout)
	if err != nil {
		return nil, nil, nil, err
	}

	uploader, staticDir, closeStorage, err := newUploader(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, nil, err
	}

	size := pdfstitch.ResolvePoolSize(cfg.Server.Workers)
	opts := append(converterOptions(cfg, timeout), env.ConverterOptions...)
	pool := pdfstitch.NewConverterPool(size, opts...)

	fetcher := fetch.New(
		fetch.WithTimeout(cfg.FetchTimeout()),
		fetch.WithMaxBytes(cfg.Server.MaxUploadBytes),
	)

	workDir := cfg.Render.WorkDir
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "pdfstitch-results")
	}

	srv, err := server.New(server.Config{
		Addr:           cfg.Server.Addr,
		WorkDir:        workDir,
		StaticDir:      staticDir,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		AllowNonPDF:    cfg.Server.AllowNonPDF,
	}, server.FromPool(pool), fetcher, uploader)
	if err != nil {
		_ = pool.Close()
		_ = closeStorage()
		return nil, nil, nil, err
	}

	if !flags.common.quiet {
		fmt.Fprintf(env.Stdout, "pdfstitch API listening on %s (%d workers, %s storage)\n",
			cfg.Server.Addr, size, storageName(cfg.Storage))
	}
	logger.Debug("work directory %s", workDir)
	return srv, pool, closeStorage, nil
}

// newUploader builds the configured storage backend. staticDir is set
// for the local backend so the server can serve /output/.
func newUploader(ctx context.Context, s config.StorageConfig) (upload.Uploader, string, func() error, error) {
	noop := func() error { return nil }

	if strings.EqualFold(s.Backend, config.BackendGCS) {
		g, err := upload.NewGCS(ctx, s.Bucket, s.Prefix)
		if err != nil {
			return nil, "", nil, err
		}
		return g, "", g.Close, nil
	}

	l, err := upload.NewLocal(s.Dir, s.BaseURL)
	if err != nil {
		return nil, "", nil, err
	}
	return l, l.Dir(), noop, nil
}

func storageName(s config.StorageConfig) string {
	if strings.EqualFold(s.Backend, config.BackendGCS) {
		return "gs://" + s.Bucket
	}
	return "local"
}
