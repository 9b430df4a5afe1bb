// Package config loads pdfstitch YAML configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-pdfstitch/internal/hints"
	"github.com/alnah/go-pdfstitch/internal/paginate"
	"github.com/alnah/go-pdfstitch/internal/raster"
	"github.com/alnah/go-pdfstitch/internal/stitch"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidValue    = errors.New("invalid config value")
)

// appDir is the directory under os.UserConfigDir searched for configs.
const appDir = "go-pdfstitch"

// Defaults.
const (
	DefaultResolutionDPI = 300
	DefaultAddr          = ":5000"
	DefaultMaxUpload     = 100 << 20
	DefaultRenderTimeout = "2m"
	DefaultFetchTimeout  = "60s"
	DefaultOutputDir     = "output"
	MaxResolutionDPI     = 2400
)

// Storage backends.
const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
)

// Config holds all pdfstitch settings.
type Config struct {
	Stitch   StitchConfig   `yaml:"stitch"`
	Render   RenderConfig   `yaml:"render"`
	Paginate PaginateConfig `yaml:"paginate"`
	Output   OutputConfig   `yaml:"output"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
}

// StitchConfig controls compositing and encoding.
type StitchConfig struct {
	Format          string `yaml:"format"`          // "png" or "jpg"
	ResolutionDPI   int    `yaml:"resolutionDPI"`   // render density
	OutputQuality   int    `yaml:"outputQuality"`   // 0-100, JPEG only
	ResizeMode      string `yaml:"resizeMode"`      // "proportional" or "stretch"
	MaxCanvasPixels int64  `yaml:"maxCanvasPixels"` // 0 = built-in limit
	Workers         int    `yaml:"workers"`         // per-page concurrency, 0 = GOMAXPROCS
}

// RenderConfig controls the external render engines.
type RenderConfig struct {
	Engines       []string `yaml:"engines"` // tried in order
	Timeout       string   `yaml:"timeout"` // Go duration, per engine attempt
	WorkDir       string   `yaml:"workDir"` // parent of per-run workspaces
	KeepWorkspace bool     `yaml:"keepWorkspace"`
}

// PaginateConfig controls how Markdown and HTML are printed to PDF.
type PaginateConfig struct {
	PageSize string  `yaml:"pageSize"` // letter, a4, legal
	Margin   float64 `yaml:"margin"`   // inches
	// RemoteResources lets Markdown and HTML load http(s) images and styles.
	RemoteResources bool `yaml:"remoteResources"`
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // empty = next to the source
}

// ServerConfig controls "pdfstitch serve".
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadBytes int64  `yaml:"maxUploadBytes"`
	Workers        int    `yaml:"workers"` // concurrent conversions, 0 = auto
	FetchTimeout   string `yaml:"fetchTimeout"`
	AllowNonPDF    bool   `yaml:"allowNonPDF"` // accept Markdown and HTML uploads
}

// StorageConfig selects where the server publishes results.
type StorageConfig struct {
	Backend string `yaml:"backend"` // local or gcs
	Dir     string `yaml:"dir"`     // local: directory served under /output/
	BaseURL string `yaml:"baseURL"` // local: public URL prefix
	Bucket  string `yaml:"bucket"`  // gcs
	Prefix  string `yaml:"prefix"`  // gcs object prefix
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Stitch: StitchConfig{
			Format:        string(stitch.FormatPNG),
			ResolutionDPI: DefaultResolutionDPI,
			OutputQuality: stitch.DefaultQuality,
			ResizeMode:    string(stitch.ResizeProportional),
		},
		Render: RenderConfig{
			Engines: append([]string(nil), raster.DefaultEngineNames...),
			Timeout: DefaultRenderTimeout,
		},
		Paginate: PaginateConfig{
			PageSize: paginate.PageLetter,
			Margin:   paginate.DefaultMargin,
		},
		Server: ServerConfig{
			Addr:           DefaultAddr,
			MaxUploadBytes: DefaultMaxUpload,
			FetchTimeout:   DefaultFetchTimeout,
		},
		Storage: StorageConfig{
			Backend: BackendLocal,
			Dir:     DefaultOutputDir,
		},
	}
}

// Validate checks every field. Called automatically by LoadConfig, but
// available for callers who build a Config by hand.
func (c *Config) Validate() error {
	if _, err := stitch.ParseFormat(c.Stitch.Format); err != nil {
		return fmt.Errorf("stitch.format: %w", err)
	}
	if c.Stitch.ResolutionDPI < 0 || c.Stitch.ResolutionDPI > MaxResolutionDPI {
		return fmt.Errorf("%w: stitch.resolutionDPI must be between 1 and %d, got %d",
			ErrInvalidValue, MaxResolutionDPI, c.Stitch.ResolutionDPI)
	}
	if err := stitch.ValidateQuality(c.Stitch.OutputQuality); err != nil {
		return fmt.Errorf("stitch.outputQuality: %w", err)
	}
	if err := stitch.ResizeMode(c.Stitch.ResizeMode).Validate(); err != nil {
		return fmt.Errorf("stitch.resizeMode: %w", err)
	}
	if c.Stitch.Workers < 0 {
		return fmt.Errorf("%w: stitch.workers must not be negative", ErrInvalidValue)
	}

	for i, name := range c.Render.Engines {
		if _, err := raster.Lookup(name); err != nil {
			return fmt.Errorf("render.engines[%d]: %w", i, err)
		}
	}
	if _, err := parseDuration("render.timeout", c.Render.Timeout); err != nil {
		return err
	}

	if err := (paginate.Settings{PageSize: c.Paginate.PageSize, Margin: c.Paginate.Margin}).Validate(); err != nil {
		return fmt.Errorf("paginate: %w", err)
	}

	if c.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("%w: server.maxUploadBytes must not be negative", ErrInvalidValue)
	}
	if c.Server.Workers < 0 {
		return fmt.Errorf("%w: server.workers must not be negative", ErrInvalidValue)
	}
	if _, err := parseDuration("server.fetchTimeout", c.Server.FetchTimeout); err != nil {
		return err
	}

	switch strings.ToLower(c.Storage.Backend) {
	case "", BackendLocal:
	case BackendGCS:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("%w: storage.bucket is required for the gcs backend", ErrInvalidValue)
		}
	default:
		return fmt.Errorf("%w: storage.backend %q (must be local or gcs)", ErrInvalidValue, c.Storage.Backend)
	}
	return nil
}

// RenderTimeout returns render.timeout, or zero when unset.
func (c *Config) RenderTimeout() time.Duration {
	d, _ := parseDuration("render.timeout", c.Render.Timeout)
	return d
}

// FetchTimeout returns server.fetchTimeout, or zero when unset.
func (c *Config) FetchTimeout() time.Duration {
	d, _ := parseDuration("server.fetchTimeout", c.Server.FetchTimeout)
	return d
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidValue, field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", ErrInvalidValue, field)
	}
	return d, nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Fields absent from the file keep their DefaultConfig values.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !isFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := unmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-pdfstitch/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, appDir, name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s%s", ErrConfigNotFound, strings.Join(triedPaths, ", "), hints.ForConfigNotFound(triedPaths))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
