package raster

// Notes:
// - Runs each built-in engine against a generated two-page PDF. Engines
//   whose binary is not on PATH are skipped, so the suite passes on hosts
//   without poppler, mupdf or ghostscript.

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// minimalPDF returns a valid PDF with one empty page per media box width,
// all 100pt tall. Offsets in the xref table are computed, not guessed.
func minimalPDF(widths ...int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := ""
	for i := range widths {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(widths)))
	for _, w := range widths {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d 100] >>", w))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestEngines_RealBinaries(t *testing.T) {
	t.Parallel()

	for _, e := range []Engine{Poppler(), MuPDF(), Ghostscript()} {
		t.Run(e.Name(), func(t *testing.T) {
			t.Parallel()
			if !e.Available() {
				t.Skipf("%s not installed", BinaryOf(e))
			}

			dir := t.TempDir()
			src := filepath.Join(dir, "doc.pdf")
			if err := os.WriteFile(src, minimalPDF(200, 300), 0o600); err != nil {
				t.Fatal(err)
			}

			res, err := New([]Engine{e}).Rasterize(context.Background(), src, filepath.Join(dir, "pages"), 72)
			if err != nil {
				t.Fatalf("Rasterize() error: %v", err)
			}
			if res.Engine != e.Name() {
				t.Errorf("Engine = %q, want %q", res.Engine, e.Name())
			}
			if len(res.Pages) != 2 {
				t.Fatalf("pages = %d, want 2", len(res.Pages))
			}
			// 72 dpi maps points to pixels; engines may round by one.
			for i, want := range []int{200, 300} {
				got := res.Pages[i].Width
				if got < want-1 || got > want+1 {
					t.Errorf("page %d width = %d, want about %d", i+1, got, want)
				}
			}
		})
	}
}
