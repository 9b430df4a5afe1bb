package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	pdfstitch "github.com/alnah/go-pdfstitch"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Fake render engine
// ---------------------------------------------------------------------------

// twoPageEngine renders a 50x30 red page and a 50x20 blue page for every
// document, so stitched outputs are always 50x50.
type twoPageEngine struct{}

func (twoPageEngine) Name() string    { return "fake" }
func (twoPageEngine) Available() bool { return true }

func (twoPageEngine) Render(_ context.Context, _, dir string, _ int) error {
	pages := []struct {
		h int
		c color.RGBA
	}{
		{30, color.RGBA{R: 0xff, A: 0xff}},
		{20, color.RGBA{B: 0xff, A: 0xff}},
	}
	for i, p := range pages {
		img := image.NewRGBA(image.Rect(0, 0, 50, p.h))
		draw.Draw(img, img.Bounds(), image.NewUniform(p.c), image.Point{}, draw.Src)
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("page-%d.png", i+1)))
		if err != nil {
			return err
		}
		err = png.Encode(f, img)
		_ = f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// testEnv returns an Environment with captured output and the fake engine.
func testEnv(t *testing.T) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	env := &Environment{
		Stdout: &stdout,
		Stderr: &stderr,
		Getenv: func(string) string { return "" },
		ConverterOptions: []pdfstitch.Option{
			pdfstitch.WithRenderEngines(twoPageEngine{}),
			pdfstitch.WithWorkDir(t.TempDir()),
		},
	}
	return env, &stdout, &stderr
}

// writePDF creates a file with a PDF header; the fake engine ignores the
// body.
func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("%PDF-1.7\n%fake\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func imageSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path) // #nosec G304 -- test path
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return cfg.Width, cfg.Height
}
