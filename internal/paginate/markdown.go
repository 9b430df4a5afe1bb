package paginate

import (
	"bytes"
	"context"
	"fmt"
	"html"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// printStyle keeps pages readable once rasterized: wide code blocks wrap
// instead of being clipped at the page edge.
const printStyle = `body{font-family:-apple-system,"Segoe UI",Helvetica,Arial,sans-serif;font-size:12pt;line-height:1.5;color:#1f2328}
pre{white-space:pre-wrap;word-wrap:break-word;padding:8px;border-radius:4px}
table{border-collapse:collapse}th,td{border:1px solid #d0d7de;padding:4px 8px}
img{max-width:100%}`

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>%s</style>
</head>
<body>
%s
</body>
</html>`

// MarkdownRenderer converts Markdown to a standalone HTML document.
type MarkdownRenderer struct {
	md goldmark.Markdown
}

// NewMarkdownRenderer creates a renderer with GFM, footnotes and syntax
// highlighting. Highlighting uses inline styles so the document needs no
// external stylesheet.
func NewMarkdownRenderer() *MarkdownRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
				highlighting.WithFormatOptions(chromahtml.WithClasses(false)),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(gmhtml.WithXHTML()),
	)
	return &MarkdownRenderer{md: md}
}

// ToHTML converts content into a complete HTML5 document titled title.
// goldmark has no context support, so conversion runs in a goroutine and
// the call returns early on cancellation.
func (r *MarkdownRenderer) ToHTML(ctx context.Context, title string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := r.md.Convert(content, &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: markdown: %v", ErrPagination, err)}
			return
		}
		done <- result{html: fmt.Sprintf(htmlTemplate, html.EscapeString(title), printStyle, buf.String())}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.html, res.err
	}
}
