package raster

// Notes:
// - Engines are faked: fakeEngine writes synthetic PNGs so no external
//   binary is needed. The command engines are covered in engine_test.go.
// - Each test uses its own t.TempDir(), so all tests run in parallel.

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeEngine struct {
	name      string
	available bool
	pages     int
	width     int
	height    int
	nameFmt   string // file name format, receives the page number
	err       error
	partial   bool // write one page before failing
	block     bool // wait for ctx cancellation
	calls     int
}

func (f *fakeEngine) Name() string    { return f.name }
func (f *fakeEngine) Available() bool { return f.available }

func (f *fakeEngine) Render(ctx context.Context, src, dir string, dpi int) error {
	f.calls++
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.partial {
		writePNG(dir, fmt.Sprintf("page-%d.png", 1), 10, 10)
	}
	if f.err != nil {
		return f.err
	}
	format := f.nameFmt
	if format == "" {
		format = "page-%d.png"
	}
	for i := 1; i <= f.pages; i++ {
		// Width varies per page so ordering can be checked through dimensions.
		if err := writePNG(dir, fmt.Sprintf(format, i), f.width+i, f.height); err != nil {
			return err
		}
	}
	return nil
}

func writePNG(dir, name string, w, h int) error {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.Black)
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func newSource(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(src, []byte("%PDF-1.4\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return src
}

// ---------------------------------------------------------------------------
// TestRasterize - Ordering
// ---------------------------------------------------------------------------

func TestRasterize_NumericOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		nameFmt string
	}{
		{"unpadded", "page-%d.png"},
		{"zero padded", "page-%02d.png"},
		{"no dash", "page%d.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			eng := &fakeEngine{name: "fake", available: true, pages: 12, width: 100, height: 50, nameFmt: tt.nameFmt}
			r := New([]Engine{eng})

			res, err := r.Rasterize(context.Background(), newSource(t), t.TempDir(), 72)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(res.Pages) != 12 {
				t.Fatalf("got %d pages, want 12", len(res.Pages))
			}
			for i, p := range res.Pages {
				if p.Ordinal != i+1 {
					t.Errorf("pages[%d].Ordinal = %d, want %d", i, p.Ordinal, i+1)
				}
				if p.Width != 100+i+1 || p.Height != 50 {
					t.Errorf("pages[%d] = %dx%d, want %dx50", i, p.Width, p.Height, 100+i+1)
				}
			}
			if res.Engine != "fake" {
				t.Errorf("Engine = %q, want %q", res.Engine, "fake")
			}
		})
	}
}

func TestListPages_IgnoresForeignFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"page-2.png", "page-1.png", "page-10.png", "notes.txt", "cover.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	pages, err := ListPages(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 2, 10}
	if len(pages) != len(want) {
		t.Fatalf("got %d pages, want %d", len(pages), len(want))
	}
	for i, p := range pages {
		if p.Ordinal != want[i] {
			t.Errorf("pages[%d].Ordinal = %d, want %d", i, p.Ordinal, want[i])
		}
	}
}

func TestParsePageNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		want   int
		wantOK bool
	}{
		{"page-1.png", 1, true},
		{"page-007.png", 7, true},
		{"page12.PNG", 12, true},
		{"page-3.jpg", 3, true},
		{"page-4.tif", 4, true},
		{"page-.png", 0, false},
		{"page-1.pdf", 0, false},
		{"other-1.png", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ParsePageNumber(tt.name)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParsePageNumber(%q) = %d, %v, want %d, %v", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRasterize - Engine chain
// ---------------------------------------------------------------------------

func TestRasterize_FallsBackAfterFailure(t *testing.T) {
	t.Parallel()

	first := &fakeEngine{name: "first", available: true, partial: true, err: errors.New("boom")}
	second := &fakeEngine{name: "second", available: true, pages: 2, width: 10, height: 10}
	r := New([]Engine{first, second})

	res, err := r.Rasterize(context.Background(), newSource(t), t.TempDir(), 72)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Engine != "second" {
		t.Errorf("Engine = %q, want %q", res.Engine, "second")
	}
	if len(res.Pages) != 2 {
		t.Errorf("got %d pages, want 2", len(res.Pages))
	}
}

func TestRasterize_SkipsUnavailable(t *testing.T) {
	t.Parallel()

	missing := &fakeEngine{name: "missing", available: false, pages: 1, width: 10, height: 10}
	present := &fakeEngine{name: "present", available: true, pages: 1, width: 10, height: 10}
	r := New([]Engine{missing, present})

	res, err := r.Rasterize(context.Background(), newSource(t), t.TempDir(), 72)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing.calls != 0 {
		t.Errorf("unavailable engine was invoked %d time(s)", missing.calls)
	}
	if res.Engine != "present" {
		t.Errorf("Engine = %q, want %q", res.Engine, "present")
	}
}

func TestRasterize_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		engines func() []Engine
		dpi     int
		wantErr []error
	}{
		{
			name:    "invalid dpi",
			engines: func() []Engine { return []Engine{&fakeEngine{name: "a", available: true, pages: 1}} },
			dpi:     0,
			wantErr: []error{ErrInvalidResolution},
		},
		{
			name:    "no engines",
			engines: func() []Engine { return nil },
			dpi:     72,
			wantErr: []error{ErrRasterizationFailed, ErrNoEngine},
		},
		{
			name:    "none installed",
			engines: func() []Engine { return []Engine{&fakeEngine{name: "a"}, &fakeEngine{name: "b"}} },
			dpi:     72,
			wantErr: []error{ErrRasterizationFailed, ErrNoEngine},
		},
		{
			name: "all fail",
			engines: func() []Engine {
				return []Engine{
					&fakeEngine{name: "a", available: true, err: errors.New("a broke")},
					&fakeEngine{name: "b", available: true, err: errors.New("b broke")},
				}
			},
			dpi:     72,
			wantErr: []error{ErrRasterizationFailed},
		},
		{
			name:    "zero pages",
			engines: func() []Engine { return []Engine{&fakeEngine{name: "a", available: true}} },
			dpi:     72,
			wantErr: []error{ErrEmptyDocument},
		},
		{
			name: "gap in numbering",
			engines: func() []Engine {
				return []Engine{&fakeEngine{name: "a", available: true, pages: 2, width: 5, height: 5, nameFmt: "page-%d0.png"}}
			},
			dpi:     72,
			wantErr: []error{ErrRasterizationFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := New(tt.engines())
			_, err := r.Rasterize(context.Background(), newSource(t), t.TempDir(), tt.dpi)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			for _, want := range tt.wantErr {
				if !errors.Is(err, want) {
					t.Errorf("error %v does not match %v", err, want)
				}
			}
		})
	}
}

func TestRasterize_AllFailuresReported(t *testing.T) {
	t.Parallel()

	errA := errors.New("a broke")
	errB := errors.New("b broke")
	r := New([]Engine{
		&fakeEngine{name: "a", available: true, err: errA},
		&fakeEngine{name: "b", available: true, err: errB},
	})

	_, err := r.Rasterize(context.Background(), newSource(t), t.TempDir(), 72)
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("error %v should carry both attempt errors", err)
	}
}

func TestRasterize_PerEngineTimeout(t *testing.T) {
	t.Parallel()

	slow := &fakeEngine{name: "slow", available: true, block: true}
	fast := &fakeEngine{name: "fast", available: true, pages: 1, width: 4, height: 4}
	r := New([]Engine{slow, fast}, WithTimeout(50*time.Millisecond))

	res, err := r.Rasterize(context.Background(), newSource(t), t.TempDir(), 72)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Engine != "fast" {
		t.Errorf("Engine = %q, want %q", res.Engine, "fast")
	}
}

func TestRasterize_ParentCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := &fakeEngine{name: "a", available: true, pages: 1, width: 4, height: 4}
	_, err := New([]Engine{eng}).Rasterize(ctx, newSource(t), t.TempDir(), 72)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if eng.calls != 0 {
		t.Errorf("engine invoked after cancellation")
	}
}

func TestRasterize_MissingSource(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{name: "a", available: true, pages: 1, width: 4, height: 4}
	_, err := New([]Engine{eng}).Rasterize(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), t.TempDir(), 72)
	if !errors.Is(err, ErrRasterizationFailed) {
		t.Errorf("error = %v, want ErrRasterizationFailed", err)
	}
}

// ---------------------------------------------------------------------------
// TestRasterize - Page probing
// ---------------------------------------------------------------------------

type corruptEngine struct{}

func (corruptEngine) Name() string    { return "corrupt" }
func (corruptEngine) Available() bool { return true }
func (corruptEngine) Render(_ context.Context, _, dir string, _ int) error {
	if err := writePNG(dir, "page-1.png", 4, 4); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "page-2.png"), []byte("not an image"), 0o600)
}

func TestRasterize_CorruptPage(t *testing.T) {
	t.Parallel()

	_, err := New([]Engine{corruptEngine{}}).Rasterize(context.Background(), newSource(t), t.TempDir(), 72)
	if !errors.Is(err, ErrCorruptPage) {
		t.Fatalf("error = %v, want ErrCorruptPage", err)
	}
}

func TestMeasureFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := writePNG(dir, "p.png", 321, 123); err != nil {
		t.Fatal(err)
	}
	w, h, err := MeasureFile(filepath.Join(dir, "p.png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != 321 || h != 123 {
		t.Errorf("MeasureFile = %dx%d, want 321x123", w, h)
	}
}
