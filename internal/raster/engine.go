package raster

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/alnah/go-pdfstitch/internal/process"
)

// PagePrefix is the file name prefix every engine writes page files with.
const PagePrefix = "page"

// Engine names.
const (
	EnginePoppler     = "poppler"
	EngineMuPDF       = "mupdf"
	EngineGhostscript = "ghostscript"
)

// DefaultEngineNames is the fallback order used when none is configured.
var DefaultEngineNames = []string{EnginePoppler, EngineMuPDF, EngineGhostscript}

// Engine renders every page of a document into dir, one file per page,
// named PagePrefix followed by the page number. It is invoked once per
// document.
type Engine interface {
	Name() string
	Available() bool
	Render(ctx context.Context, src, dir string, dpi int) error
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// commandEngine runs an external binary through the process package.
type commandEngine struct {
	name   string
	binary string
	args   func(src, dir string, dpi int) []string
}

func (e *commandEngine) Name() string { return e.name }

// Binary returns the executable the engine invokes.
func (e *commandEngine) Binary() string { return e.binary }

func (e *commandEngine) Available() bool {
	_, err := lookPath(e.binary)
	return err == nil
}

func (e *commandEngine) Render(ctx context.Context, src, dir string, dpi int) error {
	_, err := process.Run(ctx, e.binary, e.args(src, dir, dpi)...)
	return err
}

// Poppler renders with pdftoppm (poppler-utils). Output: page-1.png, or
// zero padded (page-01.png) for longer documents.
func Poppler() Engine {
	return &commandEngine{
		name:   EnginePoppler,
		binary: "pdftoppm",
		args: func(src, dir string, dpi int) []string {
			return []string{"-png", "-r", strconv.Itoa(dpi), src, filepath.Join(dir, PagePrefix)}
		},
	}
}

// MuPDF renders with mutool draw.
func MuPDF() Engine {
	return &commandEngine{
		name:   EngineMuPDF,
		binary: "mutool",
		args: func(src, dir string, dpi int) []string {
			return []string{"draw", "-q", "-r", strconv.Itoa(dpi),
				"-o", filepath.Join(dir, PagePrefix+"-%d.png"), src}
		},
	}
}

// Ghostscript renders with gs using the 24-bit png16m device.
func Ghostscript() Engine {
	return &commandEngine{
		name:   EngineGhostscript,
		binary: "gs",
		args: func(src, dir string, dpi int) []string {
			return []string{"-q", "-dSAFER", "-dBATCH", "-dNOPAUSE",
				"-sDEVICE=png16m", "-dTextAlphaBits=4", "-dGraphicsAlphaBits=4",
				"-r" + strconv.Itoa(dpi),
				"-sOutputFile=" + filepath.Join(dir, PagePrefix+"-%d.png"), src}
		},
	}
}

// Lookup returns the built-in engine with the given name.
func Lookup(name string) (Engine, error) {
	switch name {
	case EnginePoppler:
		return Poppler(), nil
	case EngineMuPDF:
		return MuPDF(), nil
	case EngineGhostscript:
		return Ghostscript(), nil
	}
	return nil, fmt.Errorf("%w: %q (known: poppler, mupdf, ghostscript)", ErrUnknownEngine, name)
}

// Engines resolves names in order. An empty list yields DefaultEngineNames.
func Engines(names []string) ([]Engine, error) {
	if len(names) == 0 {
		names = DefaultEngineNames
	}
	engines := make([]Engine, 0, len(names))
	for _, n := range names {
		e, err := Lookup(n)
		if err != nil {
			return nil, err
		}
		engines = append(engines, e)
	}
	return engines, nil
}

// BinaryOf returns the executable behind a built-in engine, or "" for
// custom engines.
func BinaryOf(e Engine) string {
	if ce, ok := e.(*commandEngine); ok {
		return ce.Binary()
	}
	return ""
}
