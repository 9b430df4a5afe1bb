package paginate

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// Kind is the format of a source document.
type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindMarkdown
	KindHTML
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindMarkdown:
		return "markdown"
	case KindHTML:
		return "html"
	}
	return "unknown"
}

// NeedsPagination reports whether the kind must be printed to PDF before
// rasterization.
func (k Kind) NeedsPagination() bool {
	return k == KindMarkdown || k == KindHTML
}

var pdfMagic = []byte("%PDF-")

// DetectKind identifies a source by content first, then by file name.
// head is the start of the document; a few hundred bytes are enough.
func DetectKind(name string, head []byte) (Kind, error) {
	trimmed := bytes.TrimLeft(head, "\xef\xbb\xbf \t\r\n")
	if bytes.HasPrefix(trimmed, pdfMagic) {
		return KindPDF, nil
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return KindUnknown, fmt.Errorf("%w: %s has a .pdf extension but no PDF header", ErrUnsupportedSource, name)
	case ".md", ".markdown":
		return KindMarkdown, nil
	case ".html", ".htm":
		return KindHTML, nil
	}

	lower := bytes.ToLower(trimmed[:min(len(trimmed), 64)])
	if bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html")) {
		return KindHTML, nil
	}

	if name == "" {
		name = "input"
	}
	return KindUnknown, fmt.Errorf("%w: %s (expected PDF, Markdown or HTML)", ErrUnsupportedSource, name)
}
