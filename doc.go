// Package pdfstitch turns a paginated document into one tall image: every
// page is rasterized by an external render engine and the pages are
// stacked vertically in page order.
//
// # Quick Start
//
// Create a converter, stitch a document, and close when done:
//
//	conv, err := pdfstitch.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	result, err := conv.StitchDocument(ctx, pdfstitch.Input{
//	    Path:       "report.pdf",
//	    OutputPath: "report.png",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.ImagePath, result.Width, result.Height)
//
// # Pipeline
//
// Each call runs in its own workspace directory:
//
//  1. Source detection (PDF, Markdown or HTML)
//  2. Markdown and HTML are printed to PDF with headless Chrome (go-rod)
//  3. Rasterization by pdftoppm, mutool or gs, tried in order
//  4. Pages are scaled to the widest page and drawn onto one white canvas
//  5. The canvas is encoded (PNG or JPEG) and moved into place atomically
//
// The workspace and every page file are removed before StitchDocument
// returns, on success and on failure.
//
// # Options
//
// Converter-wide settings are functional options:
//
//	conv, err := pdfstitch.NewConverter(
//	    pdfstitch.WithTimeout(time.Minute),
//	    pdfstitch.WithEngines("mupdf", "poppler"),
//	    pdfstitch.WithWorkers(4),
//	)
//
// Per-document settings are passed in Input.Options:
//
//	result, err := conv.StitchDocument(ctx, pdfstitch.Input{
//	    Data: pdfBytes,
//	    Name: "invoice.pdf",
//	    Options: &pdfstitch.Options{
//	        Format:        pdfstitch.FormatJPEG,
//	        ResolutionDPI: 150,
//	        OutputQuality: 85,
//	        ResizeMode:    pdfstitch.ResizeStretch,
//	    },
//	})
//
// # Errors
//
// Failures are *StageError values naming the failed stage. Use errors.Is
// with the exported sentinels (ErrEmptyDocument, ErrRasterizationFailed,
// ErrCanvasTooLarge, ...) to tell them apart.
//
// # Parallel Processing
//
// A Converter is safe for concurrent use. For batch work, ConverterPool
// bounds how many documents run at once:
//
//	pool := pdfstitch.NewConverterPool(pdfstitch.ResolvePoolSize(0))
//	defer pool.Close()
//
//	conv, err := pool.Acquire()
//	if err != nil {
//	    return err
//	}
//	defer pool.Release(conv)
//	result, err := conv.StitchDocument(ctx, input)
//
// # Requirements
//
// At least one of poppler-utils, mupdf-tools or ghostscript must be on
// PATH. Markdown and HTML sources also need Chrome/Chromium; go-rod
// downloads one on first use. In containers set ROD_NO_SANDBOX=1, and
// ROD_BROWSER_BIN to use a preinstalled browser.
package pdfstitch
