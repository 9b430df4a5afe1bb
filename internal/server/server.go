// Package server exposes the stitcher over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	pdfstitch "github.com/alnah/go-pdfstitch"
	"github.com/alnah/go-pdfstitch/internal/fetch"
	"github.com/alnah/go-pdfstitch/internal/logger"
	"github.com/alnah/go-pdfstitch/internal/upload"
)

// Defaults.
const (
	DefaultAddr           = ":5000"
	DefaultMaxUploadBytes = 100 << 20
	DefaultRequestTimeout = 5 * time.Minute
	shutdownTimeout       = 30 * time.Second
	maxJSONBytes          = 1 << 20
)

// Stitcher converts one document. *pdfstitch.Converter satisfies it, and
// FromPool adapts a ConverterPool.
type Stitcher interface {
	StitchDocument(ctx context.Context, in pdfstitch.Input) (*pdfstitch.Result, error)
}

// Fetcher downloads a document by URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Document, error)
}

// Config holds the server settings.
type Config struct {
	Addr           string
	WorkDir        string // stitched images are written here before upload
	StaticDir      string // served under /output/ when set
	MaxUploadBytes int64
	RequestTimeout time.Duration
	AllowNonPDF    bool // accept Markdown and HTML sources as well as PDF
}

// Server handles stitch requests.
type Server struct {
	cfg      Config
	stitcher Stitcher
	fetcher  Fetcher
	uploader upload.Uploader
	router   chi.Router
}

// New wires a Server. Zero config fields take the defaults.
func New(cfg Config, st Stitcher, f Fetcher, up upload.Uploader) (*Server, error) {
	if st == nil || f == nil || up == nil {
		return nil, errors.New("server: stitcher, fetcher and uploader are required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}

	s := &Server{cfg: cfg, stitcher: st, fetcher: f, uploader: up}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors)

	r.Get("/", s.healthHandler)
	r.Post("/stitch", s.stitchHandler)
	if s.cfg.StaticDir != "" {
		fs := http.StripPrefix("/output/", http.FileServer(http.Dir(s.cfg.StaticDir)))
		r.Get("/output/*", fs.ServeHTTP)
	}
	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pdfstitch API is running"))
}

// cors allows any origin and answers preflight requests directly.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET,HEAD,PUT,PATCH,POST,DELETE")
		if r.Method == http.MethodOptions {
			if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
				h.Set("Access-Control-Allow-Headers", req)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Info("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond))
	})
}

// FromPool adapts a ConverterPool to Stitcher. Each call holds one
// converter for its duration, which bounds concurrent conversions.
func FromPool(p *pdfstitch.ConverterPool) Stitcher {
	return poolStitcher{pool: p}
}

type poolStitcher struct {
	pool *pdfstitch.ConverterPool
}

func (p poolStitcher) StitchDocument(ctx context.Context, in pdfstitch.Input) (*pdfstitch.Result, error) {
	c, err := p.pool.Acquire()
	if err != nil {
		return nil, err
	}
	defer p.pool.Release(c)
	return c.StitchDocument(ctx, in)
}
