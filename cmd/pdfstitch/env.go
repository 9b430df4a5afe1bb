package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	pdfstitch "github.com/alnah/go-pdfstitch"
	"github.com/alnah/go-pdfstitch/internal/config"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	// Environ lists the process environment, used to flag unknown
	// PDFSTITCH_* variables.
	Environ func() []string
	// ConverterOptions are appended to the options every converter is
	// built with. Tests use it to swap in fake render engines.
	ConverterOptions []pdfstitch.Option
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Getenv:  os.Getenv,
		Environ: os.Environ,
	}
}

func (e *Environment) getenv(key string) string {
	if e.Getenv == nil {
		return ""
	}
	return e.Getenv(key)
}

// envConfig holds PDFSTITCH_* overrides. Precedence is
// CLI flags > environment > config file > defaults.
type envConfig struct {
	ConfigPath string        // PDFSTITCH_CONFIG
	Timeout    time.Duration // PDFSTITCH_TIMEOUT
	Workers    int           // PDFSTITCH_WORKERS
	Engines    []string      // PDFSTITCH_ENGINES, comma separated
	OutputDir  string        // PDFSTITCH_OUTPUT_DIR
	WorkDir    string        // PDFSTITCH_WORK_DIR
	Addr       string        // PDFSTITCH_ADDR
	Bucket     string        // PDFSTITCH_GCS_BUCKET
}

var knownEnvVars = map[string]bool{
	"PDFSTITCH_CONFIG":     true,
	"PDFSTITCH_TIMEOUT":    true,
	"PDFSTITCH_WORKERS":    true,
	"PDFSTITCH_ENGINES":    true,
	"PDFSTITCH_OUTPUT_DIR": true,
	"PDFSTITCH_WORK_DIR":   true,
	"PDFSTITCH_ADDR":       true,
	"PDFSTITCH_GCS_BUCKET": true,
	"PDFSTITCH_CONTAINER":  true,
}

// loadEnvConfig reads PDFSTITCH_* variables. Malformed numbers and
// durations are ignored.
func loadEnvConfig(env *Environment) *envConfig {
	cfg := &envConfig{
		ConfigPath: env.getenv("PDFSTITCH_CONFIG"),
		OutputDir:  env.getenv("PDFSTITCH_OUTPUT_DIR"),
		WorkDir:    env.getenv("PDFSTITCH_WORK_DIR"),
		Addr:       env.getenv("PDFSTITCH_ADDR"),
		Bucket:     env.getenv("PDFSTITCH_GCS_BUCKET"),
	}
	if v := env.getenv("PDFSTITCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	if v := env.getenv("PDFSTITCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := env.getenv("PDFSTITCH_ENGINES"); v != "" {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Engines = append(cfg.Engines, name)
			}
		}
	}
	return cfg
}

// warnUnknownEnvVars catches typos like PDFSTITCH_WORKER.
func warnUnknownEnvVars(env *Environment) {
	if env.Environ == nil {
		return
	}
	for _, kv := range env.Environ() {
		if !strings.HasPrefix(kv, "PDFSTITCH_") {
			continue
		}
		name, _, _ := strings.Cut(kv, "=")
		if !knownEnvVars[name] {
			fmt.Fprintf(env.Stderr, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig overlays environment values onto cfg. Timeout is
// resolved separately by resolveTimeoutWithEnv.
func applyEnvConfig(e *envConfig, cfg *config.Config) {
	if e.Workers > 0 {
		cfg.Stitch.Workers = e.Workers
		cfg.Server.Workers = e.Workers
	}
	if len(e.Engines) > 0 {
		cfg.Render.Engines = e.Engines
	}
	if e.OutputDir != "" {
		cfg.Output.DefaultDir = e.OutputDir
	}
	if e.WorkDir != "" {
		cfg.Render.WorkDir = e.WorkDir
	}
	if e.Addr != "" {
		cfg.Server.Addr = e.Addr
	}
	if e.Bucket != "" {
		cfg.Storage.Backend = config.BackendGCS
		cfg.Storage.Bucket = e.Bucket
	}
}

// loadConfig resolves the config file (flag, then PDFSTITCH_CONFIG) and
// applies environment overrides.
func loadConfig(flagConfig string, e *envConfig) (*config.Config, error) {
	name := flagConfig
	if name == "" {
		name = e.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		var err error
		cfg, err = config.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	applyEnvConfig(e, cfg)
	return cfg, nil
}

// resolveTimeoutWithEnv picks the render timeout.
// Priority: flag > environment > config > library default (zero).
func resolveTimeoutWithEnv(flagValue string, envValue time.Duration, configValue string) (time.Duration, error) {
	switch {
	case flagValue != "":
		return parsePositiveDuration(flagValue)
	case envValue > 0:
		return envValue, nil
	case configValue != "":
		return parsePositiveDuration(configValue)
	}
	return 0, nil
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q (use e.g. 30s, 2m)", ErrInvalidTimeout, s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidTimeout, s)
	}
	return d, nil
}
