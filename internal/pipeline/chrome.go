package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/batchpdf/internal/fileutil"
	"github.com/alnah/batchpdf/internal/process"
)

// Sentinel errors for browser rendering.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
)

// defaultPageLoadTimeout bounds page loading when ctx has no deadline.
const defaultPageLoadTimeout = 60 * time.Second

// pagePrinter prints a local HTML file to PDF bytes.
type pagePrinter interface {
	PrintFile(ctx context.Context, path string, opts *proto.PagePrintToPDF) ([]byte, error)
	Close() error
}

// ChromeRenderer renders HTML to PDF through headless Chrome.
// The stylesheet is injected as a <style> block into a temporary copy of the
// HTML, so the input file is never modified.
type ChromeRenderer struct {
	Page    PageSettings
	printer pagePrinter
}

// NewChromeRenderer creates a ChromeRenderer. The browser starts lazily on
// the first Render; rod downloads Chromium when none is installed.
func NewChromeRenderer(page PageSettings) *ChromeRenderer {
	return &ChromeRenderer{Page: page, printer: &rodPrinter{timeout: defaultPageLoadTimeout}}
}

// Tools implements Renderer. Chrome is located or downloaded by rod.
func (r *ChromeRenderer) Tools() []string { return nil }

// Close releases browser resources.
func (r *ChromeRenderer) Close() error {
	if r.printer == nil {
		return nil
	}
	return r.printer.Close()
}

// Render prints req.HTMLPath to req.OutputPath.
func (r *ChromeRenderer) Render(ctx context.Context, req RenderRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src := req.HTMLPath
	if req.StylePath != "" {
		styled, cleanup, err := styledCopy(req.HTMLPath, req.StylePath)
		if err != nil {
			return err
		}
		defer cleanup()
		src = styled
	}

	opts, err := r.printOptions()
	if err != nil {
		return err
	}

	pdf, err := r.printer.PrintFile(ctx, src, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(req.OutputPath, pdf, 0o644); err != nil { // #nosec G306 -- output document is meant to be shared
		return fmt.Errorf("writing PDF: %w", err)
	}
	return nil
}

// styledCopy writes htmlPath with the stylesheet inlined to a temp file.
func styledCopy(htmlPath, stylePath string) (string, func(), error) {
	htmlContent, err := os.ReadFile(htmlPath) // #nosec G304 -- intermediate file written by this process
	if err != nil {
		return "", nil, fmt.Errorf("reading HTML: %w", err)
	}
	css, err := os.ReadFile(stylePath) // #nosec G304 -- stylesheet resolved at startup
	if err != nil {
		return "", nil, fmt.Errorf("reading stylesheet: %w", err)
	}
	return fileutil.WriteTempFile(injectCSS(string(htmlContent), string(css)), "html")
}

// printOptions converts PageSettings to Chrome's print parameters.
func (r *ChromeRenderer) printOptions() (*proto.PagePrintToPDF, error) {
	page := r.Page.withDefaults()
	if err := page.Validate(); err != nil {
		return nil, err
	}
	size := paperInches[strings.ToLower(page.Size)]
	margin, _ := marginInches(page.Margin)

	return &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(size[0]),
		PaperHeight:     floatPtr(size[1]),
		MarginTop:       floatPtr(margin),
		MarginBottom:    floatPtr(margin),
		MarginLeft:      floatPtr(margin),
		MarginRight:     floatPtr(margin),
		PrintBackground: true,
	}, nil
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}

// rodPrinter implements pagePrinter using go-rod.
type rodPrinter struct {
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	timeout  time.Duration
}

// ensureBrowser lazily launches and connects to the browser.
func (p *rodPrinter) ensureBrowser() error {
	if p.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	p.launcher = l
	p.browser = browser
	return nil
}

// PrintFile opens path in a new tab and prints it.
func (p *rodPrinter) PrintFile(ctx context.Context, path string, opts *proto.PagePrintToPDF) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := p.browser.Page(proto.TargetCreateTarget{URL: fileutil.ToFileURL(path)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	defer page.Close()
	page = page.Context(ctx)

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	reader, err := page.PDF(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdf, nil
}

// Close shuts the browser down and kills its process tree.
func (p *rodPrinter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser == nil {
		return nil
	}

	err := p.browser.Close()
	pid := p.launcher.PID()
	p.launcher.Kill()
	process.KillProcessGroup(pid)

	p.browser = nil
	p.launcher = nil
	return err
}
