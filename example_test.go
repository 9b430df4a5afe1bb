package pdfstitch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alnah/go-pdfstitch"
)

// Example stitches a PDF into one tall PNG. Requires pdftoppm, mutool or
// gs on PATH.
func Example() {
	conv, err := pdfstitch.NewConverter()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer conv.Close()

	res, err := conv.StitchDocument(context.Background(), pdfstitch.Input{
		Path:       "report.pdf",
		OutputPath: "report.png",
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("%d pages -> %dx%d %s\n", res.Pages, res.Width, res.Height, res.ImagePath)
}

// Example_jpeg writes a JPEG and stretches every page to the widest one.
func Example_jpeg() {
	conv, err := pdfstitch.NewConverter(pdfstitch.WithEngines("poppler", "ghostscript"))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer conv.Close()

	_, err = conv.StitchDocument(context.Background(), pdfstitch.Input{
		Path: "slides.pdf",
		Options: &pdfstitch.Options{
			Format:        pdfstitch.FormatJPEG,
			ResolutionDPI: 150,
			OutputQuality: 85,
			ResizeMode:    pdfstitch.ResizeStretch,
		},
	})
	if errors.Is(err, pdfstitch.ErrNoEngine) {
		fmt.Println("install poppler-utils or ghostscript")
	}
}

// Example_pool converts several documents in parallel.
func Example_pool() {
	pool := pdfstitch.NewConverterPool(pdfstitch.ResolvePoolSize(0))
	defer pool.Close()

	files := []string{"a.pdf", "b.pdf", "c.md"}
	var wg sync.WaitGroup
	for _, f := range files {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv, err := pool.Acquire()
			if err != nil {
				fmt.Println("error:", err)
				return
			}
			defer pool.Release(conv)

			if _, err := conv.StitchDocument(context.Background(), pdfstitch.Input{Path: f}); err != nil {
				fmt.Printf("%s failed at %s: %v\n", f, pdfstitch.StageOf(err), err)
			}
		}()
	}
	wg.Wait()
}

// ExampleDetectKind shows how sources are identified.
func ExampleDetectKind() {
	for _, in := range []struct{ name, head string }{
		{"upload.bin", "%PDF-1.7"},
		{"README.md", "# Title"},
		{"index.html", "<html></html>"},
	} {
		kind, err := pdfstitch.DetectKind(in.name, []byte(in.head))
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		fmt.Println(in.name, kind)
	}
	// Output:
	// upload.bin pdf
	// README.md markdown
	// index.html html
}
