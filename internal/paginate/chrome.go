package paginate

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-pdfstitch/internal/logger"
	"github.com/alnah/go-pdfstitch/internal/process"
)

// pdfPrinter prints a local HTML file to PDF bytes. It exists so the
// paginator can be tested without a browser.
type pdfPrinter interface {
	PrintFile(ctx context.Context, path string, s Settings) ([]byte, error)
	Close() error
}

var _ pdfPrinter = (*rodPrinter)(nil)

// rodPrinter drives headless Chrome through go-rod. The browser is
// launched on first use and reused until Close.
type rodPrinter struct {
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	timeout  time.Duration
	// allowRemote lets the page fetch http(s) subresources.
	allowRemote bool
}

func newRodPrinter(timeout time.Duration, allowRemote bool) *rodPrinter {
	return &rodPrinter{timeout: timeout, allowRemote: allowRemote}
}

func (r *rodPrinter) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New()
	// Pre-installed browser for containers.
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		killLauncher(l)
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	logger.Debug("headless browser started (pid %d)", l.PID())

	r.launcher = l
	r.browser = b
	return b, nil
}

// Close shuts the browser down and kills its process group so no Chrome
// helper survives.
func (r *rodPrinter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		killLauncher(r.launcher)
		r.launcher = nil
	}
	return err
}

func killLauncher(l *launcher.Launcher) {
	if pid := l.PID(); pid > 0 {
		process.KillProcessGroup(pid)
	}
	l.Kill()
	l.Cleanup()
}

// PrintFile prints the HTML in path. The markup is injected into an
// about:blank tab rather than opened as a file:// URL, so the document has
// no access to the local filesystem. Every subresource request goes
// through allowRequest.
func (r *rodPrinter) PrintFile(ctx context.Context, path string, s Settings) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	html, err := os.ReadFile(path) // #nosec G304 -- file written into the workspace
	if err != nil {
		return nil, fmt.Errorf("%w: reading html: %v", ErrPagination, err)
	}
	browser, err := r.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: opening tab: %v", ErrPagination, err)
	}
	defer page.Close()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	page = page.Context(ctx).Timeout(timeout)

	router := page.HijackRequests()
	err = router.Add("*", "", func(h *rod.Hijack) {
		if !allowRequest(h.Request.URL(), r.allowRemote) {
			logger.Debug("blocked request to %s", h.Request.URL().Redacted())
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: intercepting requests: %v", ErrPagination, err)
	}
	go router.Run()
	defer func() { _ = router.Stop() }()

	if err := page.SetDocumentContent(string(html)); err != nil {
		return nil, fmt.Errorf("%w: loading page: %v", ErrPagination, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: loading page: %v", ErrPagination, err)
	}

	stream, err := page.PDF(printOptions(s))
	if err != nil {
		return nil, fmt.Errorf("%w: printing: %v", ErrPagination, err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPagination, err)
	}
	return data, nil
}

// allowRequest reports whether the page may load u. Inline schemes are
// always allowed, http(s) only when remote is set, anything else (file:,
// chrome:, ftp:) never.
func allowRequest(u *url.URL, remote bool) bool {
	if u == nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "data", "blob", "about":
		return true
	case "http", "https":
		return remote
	}
	return false
}

func printOptions(s Settings) *proto.PagePrintToPDF {
	paper := s.paper()
	return &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(paper.width),
		PaperHeight:     floatPtr(paper.height),
		MarginTop:       floatPtr(s.Margin),
		MarginBottom:    floatPtr(s.Margin),
		MarginLeft:      floatPtr(s.Margin),
		MarginRight:     floatPtr(s.Margin),
		PrintBackground: true,
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
