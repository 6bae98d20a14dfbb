package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alnah/batchpdf/internal/toolchain"
)

// Renderer engine names accepted by NewRenderer.
const (
	EngineWkhtmltopdf = "wkhtmltopdf"
	EngineChrome      = "chrome"
)

// ErrInvalidPage indicates unusable page settings.
var ErrInvalidPage = errors.New("invalid page settings")

// RenderRequest names the HTML input, the PDF output and the optional stylesheet.
type RenderRequest struct {
	HTMLPath   string
	OutputPath string
	StylePath  string // empty renders without a stylesheet
}

// Renderer turns an HTML file into a PDF file.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) error
	// Tools lists the executables the renderer needs on the search path.
	Tools() []string
	Close() error
}

// Compile-time interface checks.
var (
	_ Renderer = (*WkhtmltopdfRenderer)(nil)
	_ Renderer = (*ChromeRenderer)(nil)
)

// PageSettings controls the paper layout.
type PageSettings struct {
	Size   string // A3, A4, A5, Letter, Legal
	Margin string // uniform margin with unit: "15mm", "1.5cm", "0.5in"
	DPI    int
}

// DefaultPage is the layout used when nothing is configured.
var DefaultPage = PageSettings{Size: "A4", Margin: "15mm", DPI: 96}

// paperInches maps page sizes to width and height in inches.
var paperInches = map[string][2]float64{
	"a3":     {11.69, 16.54},
	"a4":     {8.27, 11.69},
	"a5":     {5.83, 8.27},
	"letter": {8.5, 11},
	"legal":  {8.5, 14},
}

// Validate checks size, margin and resolution.
func (p PageSettings) Validate() error {
	if _, ok := paperInches[strings.ToLower(p.Size)]; !ok {
		return fmt.Errorf("%w: page size %q (use A3, A4, A5, Letter or Legal)", ErrInvalidPage, p.Size)
	}
	if _, err := marginInches(p.Margin); err != nil {
		return err
	}
	if p.DPI < 0 || p.DPI > 1200 {
		return fmt.Errorf("%w: dpi %d out of range 0-1200", ErrInvalidPage, p.DPI)
	}
	return nil
}

// withDefaults fills empty fields from DefaultPage.
func (p PageSettings) withDefaults() PageSettings {
	if p.Size == "" {
		p.Size = DefaultPage.Size
	}
	if p.Margin == "" {
		p.Margin = DefaultPage.Margin
	}
	if p.DPI == 0 {
		p.DPI = DefaultPage.DPI
	}
	return p
}

// marginInches parses a length with mm, cm or in unit.
func marginInches(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	units := []struct {
		suffix string
		factor float64
	}{
		{"mm", 1 / 25.4},
		{"cm", 1 / 2.54},
		{"in", 1},
	}
	for _, u := range units {
		if num, ok := strings.CutSuffix(s, u.suffix); ok {
			v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
			if err != nil || v < 0 {
				break
			}
			return v * u.factor, nil
		}
	}
	return 0, fmt.Errorf("%w: margin %q (use mm, cm or in)", ErrInvalidPage, s)
}

// NewRenderer returns the renderer registered under engine.
func NewRenderer(engine string, page PageSettings, runner toolchain.Runner, classifier toolchain.Classifier) (Renderer, error) {
	switch strings.ToLower(engine) {
	case "", EngineWkhtmltopdf:
		return &WkhtmltopdfRenderer{Runner: runner, Classifier: classifier, Page: page}, nil
	case EngineChrome:
		return NewChromeRenderer(page), nil
	default:
		return nil, fmt.Errorf("%w: renderer %q", ErrUnknownEngine, engine)
	}
}

// WkhtmltopdfRenderer renders HTML to PDF by invoking wkhtmltopdf.
type WkhtmltopdfRenderer struct {
	Runner     toolchain.Runner
	Classifier toolchain.Classifier
	Page       PageSettings
	Binary     string // defaults to "wkhtmltopdf"
}

func (r *WkhtmltopdfRenderer) binary() string {
	if r.Binary != "" {
		return r.Binary
	}
	return EngineWkhtmltopdf
}

// Tools implements Renderer.
func (r *WkhtmltopdfRenderer) Tools() []string { return []string{r.binary()} }

// Close implements Renderer. Each render is its own process.
func (r *WkhtmltopdfRenderer) Close() error { return nil }

// Args returns the wkhtmltopdf arguments for req.
// Load errors are ignored so a missing font or image referenced by the
// stylesheet does not abort the whole document.
func (r *WkhtmltopdfRenderer) Args(req RenderRequest) []string {
	page := r.Page.withDefaults()
	args := []string{
		"--enable-local-file-access",
		"--load-error-handling", "ignore",
		"--load-media-error-handling", "ignore",
		"--encoding", "utf-8",
		"--page-size", page.Size,
		"--margin-top", page.Margin,
		"--margin-right", page.Margin,
		"--margin-bottom", page.Margin,
		"--margin-left", page.Margin,
		"--print-media-type",
		"--disable-smart-shrinking",
		"--dpi", strconv.Itoa(page.DPI),
		"--zoom", "1.0",
	}
	if req.StylePath != "" {
		args = append(args, "--user-style-sheet", req.StylePath)
	}
	return append(args, req.HTMLPath, req.OutputPath)
}

// Render runs wkhtmltopdf for req.
func (r *WkhtmltopdfRenderer) Render(ctx context.Context, req RenderRequest) error {
	res := r.Runner.Run(ctx, toolchain.Invocation{Name: r.binary(), Args: r.Args(req)})
	return r.Classifier.Classify(r.binary(), res)
}
