package pdfstitch

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/alnah/go-pdfstitch/internal/paginate"
)

// pageFixture is one synthetic page a fakeEngine renders.
type pageFixture struct {
	w, h int
	c    color.RGBA
}

// fakeEngine writes solid-color PNG pages the way pdftoppm names them.
type fakeEngine struct {
	name  string
	pages []pageFixture
	err   error
	panic bool
	calls atomic.Int32
}

func (f *fakeEngine) Name() string    { return f.name }
func (f *fakeEngine) Available() bool { return true }

func (f *fakeEngine) Render(_ context.Context, src, dir string, _ int) error {
	f.calls.Add(1)
	if f.panic {
		panic("engine exploded")
	}
	if f.err != nil {
		return f.err
	}
	for i, p := range f.pages {
		img := image.NewRGBA(image.Rect(0, 0, p.w, p.h))
		draw.Draw(img, img.Bounds(), image.NewUniform(p.c), image.Point{}, draw.Src)
		out, err := os.Create(filepath.Join(dir, fmt.Sprintf("page-%02d.png", i+1)))
		if err != nil {
			return err
		}
		err = png.Encode(out, img)
		_ = out.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// fakePaginator writes a placeholder PDF instead of launching Chrome.
type fakePaginator struct {
	err    error
	kinds  []paginate.Kind
	closed bool
}

func (f *fakePaginator) Paginate(_ context.Context, kind paginate.Kind, src, dst string) error {
	f.kinds = append(f.kinds, kind)
	if f.err != nil {
		return f.err
	}
	if _, err := os.Stat(src); err != nil {
		return err
	}
	return os.WriteFile(dst, []byte("%PDF-1.7\n"), 0o600)
}

func (f *fakePaginator) Close() error {
	f.closed = true
	return nil
}

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

// scenarioPages are the 800/1000/900 wide pages of the three page document.
func scenarioPages() []pageFixture {
	return []pageFixture{
		{800, 1100, red},
		{1000, 1200, green},
		{900, 1050, blue},
	}
}

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("%PDF-1.4\n%fake\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func newTestConverter(t *testing.T, eng *fakeEngine, opts ...Option) (*Converter, string) {
	t.Helper()
	workDir := t.TempDir()
	all := append([]Option{
		WithRenderEngines(eng),
		WithWorkDir(workDir),
		WithPaginator(&fakePaginator{}),
	}, opts...)
	c, err := NewConverter(all...)
	if err != nil {
		t.Fatalf("NewConverter: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, workDir
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	if len(entries) != 0 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("%s not empty: %v", dir, names)
	}
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding %s: %v", path, err)
	}
	return img
}

func near(got color.Color, want color.RGBA) bool {
	r, g, b, _ := got.RGBA()
	wr, wg, wb, _ := want.RGBA()
	d := func(x, y uint32) bool { return int(x)-int(y) < 0x0800 && int(y)-int(x) < 0x0800 }
	return d(r, wr) && d(g, wg) && d(b, wb)
}
