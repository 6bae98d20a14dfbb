package batchpdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/alnah/batchpdf/internal/charset"
	"github.com/alnah/batchpdf/internal/fileutil"
	"github.com/alnah/batchpdf/internal/imaging"
	"github.com/alnah/batchpdf/internal/pdfcheck"
	"github.com/alnah/batchpdf/internal/pipeline"
	"github.com/alnah/batchpdf/internal/rewrite"
	"github.com/alnah/batchpdf/internal/toolchain"
)

// TempSourceSuffix ends the UTF-8 copy written for non-UTF-8 sources.
// The copy sits beside the source so relative references still resolve.
const TempSourceSuffix = ".__pandoc_tmp__.md"

// File permissions for intermediate and output files.
const filePermissions = 0o644

// Pipeline converts one source file at a time. It holds no per-file state,
// so Process may be called for any number of files in sequence.
type Pipeline struct {
	cfg        Config
	logger     *slog.Logger
	normalizer *charset.Normalizer
	runner     toolchain.Runner
	converter  pipeline.Converter
	renderer   pipeline.Renderer
	rewriter   *rewrite.Rewriter
	verifier   pdfcheck.Verifier

	transcoder    imaging.Transcoder
	transcoderSet bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for stage transitions and warnings.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRunner sets how external tools are started.
func WithRunner(r toolchain.Runner) Option {
	return func(p *Pipeline) { p.runner = r }
}

// WithConverter replaces the configured Markdown to HTML backend.
func WithConverter(c pipeline.Converter) Option {
	return func(p *Pipeline) { p.converter = c }
}

// WithRenderer replaces the configured HTML to PDF backend.
func WithRenderer(r pipeline.Renderer) Option {
	return func(p *Pipeline) { p.renderer = r }
}

// WithTranscoder sets the image transcoder. A nil transcoder disables
// transcoding regardless of Config.Transcode.
func WithTranscoder(t imaging.Transcoder) Option {
	return func(p *Pipeline) {
		p.transcoder = t
		p.transcoderSet = true
	}
}

// WithVerifier sets how produced PDFs are checked.
func WithVerifier(v pdfcheck.Verifier) Option {
	return func(p *Pipeline) { p.verifier = v }
}

// NewPipeline builds a pipeline for cfg. Backends not injected through
// options are created from the engines named in cfg.
func NewPipeline(cfg Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:      cfg.clone(),
		logger:   discardLogger(),
		runner:   toolchain.ExecRunner{},
		verifier: pdfcheck.PageCounter{},
	}
	for _, opt := range opts {
		opt(p)
	}

	if len(p.cfg.Extensions) == 0 {
		p.cfg.Extensions = []string{".md"}
	}

	normalizer, err := charset.NewNormalizer(p.cfg.Encodings...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	p.normalizer = normalizer
	classifier := toolchain.Classifier{Decode: normalizer.DecodeLossy}

	if p.converter == nil {
		conv, err := pipeline.NewConverter(p.cfg.ConverterEngine, p.runner, classifier)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		if pc, ok := conv.(*pipeline.PandocConverter); ok {
			pc.Binary = p.cfg.ConverterBinary
		}
		p.converter = conv
	}

	if p.renderer == nil {
		page := pipeline.PageSettings{Size: p.cfg.PageSize, Margin: p.cfg.Margin, DPI: p.cfg.DPI}
		rend, err := pipeline.NewRenderer(p.cfg.RendererEngine, page, p.runner, classifier)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		if wr, ok := rend.(*pipeline.WkhtmltopdfRenderer); ok {
			wr.Binary = p.cfg.RendererBinary
		}
		p.renderer = rend
	}

	if !p.transcoderSet {
		p.transcoder = imaging.Resolve(p.cfg.Transcode)
	}
	p.rewriter = rewrite.New(p.transcoder)

	return p, nil
}

// Config returns a copy of the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.cfg.clone()
}

// Tools lists the executables the configured backends need.
func (p *Pipeline) Tools() []string {
	var tools []string
	for _, t := range slices.Concat(p.converter.Tools(), p.renderer.Tools()) {
		if !slices.Contains(tools, t) {
			tools = append(tools, t)
		}
	}
	return tools
}

// CheckTools verifies that every required executable is on the search path.
// The error wraps ErrToolNotFound once per missing tool.
func (p *Pipeline) CheckTools() error {
	return toolchain.LookupAll(p.Tools()...)
}

// Close releases renderer resources such as a browser process.
func (p *Pipeline) Close() error {
	return p.renderer.Close()
}

// Process runs one source file through the state machine and reports its
// outcome. It never panics on tool failures and never returns a partial PDF.
func (p *Pipeline) Process(ctx context.Context, path string) (res Result) {
	start := time.Now()
	res = Result{
		Source: path,
		Output: fileutil.WithExt(path, ".pdf"),
		HTML:   fileutil.WithExt(path, ".html"),
		Stage:  StageDiscovered,
	}
	log := p.logger.With("file", path)
	defer func() { res.Duration = time.Since(start) }()

	fail := func(kind error, stage Stage, err error) Result {
		res.Stage = stage
		res.Err = &StageError{Kind: kind, Stage: stage, Err: err}
		if removed, rmErr := fileutil.RemoveIfExists(res.Output); rmErr != nil {
			log.Warn("could not remove stale PDF", "path", res.Output, "error", rmErr)
		} else if removed {
			log.Debug("removed stale PDF", "path", res.Output)
		}
		log.Debug("failed", "stage", stage, "error", err)
		return res
	}

	// Discovered -> Normalized
	raw, err := os.ReadFile(path) // #nosec G304 -- path comes from walking the target folder
	if err != nil {
		return fail(ErrEncoding, StageNormalized, fmt.Errorf("reading source: %w", err))
	}
	doc, err := p.normalizer.Normalize(raw)
	if err != nil {
		return fail(ErrEncoding, StageNormalized, err)
	}
	res.Encoding = doc.Encoding

	input := path
	tempSource := ""
	if doc.Converted {
		tempSource = TempSourcePath(path)
		if err := os.WriteFile(tempSource, doc.Text, filePermissions); err != nil {
			return fail(ErrEncoding, StageNormalized, fmt.Errorf("writing UTF-8 copy: %w", err))
		}
		input = tempSource
		log.Debug("normalized", "encoding", doc.Encoding, "copy", tempSource)
	}
	res.Stage = StageNormalized

	// Normalized -> Converted
	htmlContent, err := p.converter.ToHTML(ctx, pipeline.ConvertRequest{
		InputPath: input,
		Title:     fileutil.Stem(path),
	})
	if err != nil {
		return fail(ErrConversion, StageConverted, err)
	}
	res.Stage = StageConverted
	log.Debug("converted", "bytes", len(htmlContent))

	// Converted -> Rewritten
	out, err := p.rewriter.Rewrite(htmlContent, filepath.Dir(path))
	if err != nil {
		return fail(ErrConversion, StageRewritten, fmt.Errorf("rewriting references: %w", err))
	}
	if err := os.WriteFile(res.HTML, []byte(out.HTML), filePermissions); err != nil {
		return fail(ErrConversion, StageRewritten, fmt.Errorf("writing HTML: %w", err))
	}
	res.Missing = out.Missing
	for _, m := range out.Missing {
		log.Warn("image not found", "src", m)
	}
	res.Stage = StageRewritten
	log.Debug("rewritten", "references", out.Rewritten, "artifacts", len(out.Artifacts))

	// Rewritten -> Rendered
	pages, fallback, err := p.render(ctx, log, res.HTML, res.Output)
	if err != nil {
		return fail(ErrRender, StageRendered, err)
	}
	res.Pages = pages
	res.Fallback = fallback
	res.Stage = StageRendered

	// Rendered -> Cleaned
	p.clean(log, res.HTML, tempSource, out.Artifacts)
	res.Stage = StageCleaned

	return res
}

// render produces outputPath, retrying once without the stylesheet.
func (p *Pipeline) render(ctx context.Context, log *slog.Logger, htmlPath, outputPath string) (pages int, fallback bool, err error) {
	pages, err = p.renderAttempt(ctx, log, htmlPath, outputPath, p.cfg.StylePath)
	if err == nil {
		return pages, false, nil
	}
	if p.cfg.StylePath == "" || ctx.Err() != nil {
		return 0, false, err
	}

	var toolErr *toolchain.ToolError
	styleRelated := errors.As(err, &toolErr) && toolErr.StyleRelated
	log.Warn("render failed with stylesheet, retrying without",
		"style_related", styleRelated, "error", err)

	first := err
	pages, err = p.renderAttempt(ctx, log, htmlPath, outputPath, "")
	if err != nil {
		return 0, false, fmt.Errorf("without stylesheet: %w (with stylesheet: %v)", err, first)
	}
	return pages, true, nil
}

// renderAttempt renders once and verifies the result.
// A failed attempt leaves no PDF behind.
func (p *Pipeline) renderAttempt(ctx context.Context, log *slog.Logger, htmlPath, outputPath, stylePath string) (int, error) {
	err := p.renderer.Render(ctx, pipeline.RenderRequest{
		HTMLPath:   htmlPath,
		OutputPath: outputPath,
		StylePath:  stylePath,
	})
	if err == nil {
		var pages int
		pages, err = p.verifier.Verify(outputPath)
		if err == nil {
			return pages, nil
		}
	}
	if _, rmErr := fileutil.RemoveIfExists(outputPath); rmErr != nil {
		log.Warn("could not remove partial PDF", "path", outputPath, "error", rmErr)
	}
	return 0, err
}

// clean removes intermediate files after a success. Failures are logged
// and do not change the outcome.
func (p *Pipeline) clean(log *slog.Logger, htmlPath, tempSource string, artifacts []string) {
	var remove []string
	if tempSource != "" {
		remove = append(remove, tempSource)
	}
	if !p.cfg.KeepHTML {
		// The kept HTML still points at transcoded images.
		remove = append(remove, htmlPath)
		remove = append(remove, artifacts...)
	}

	for _, path := range remove {
		if entries, err := os.ReadDir(path); err == nil && len(entries) > 0 {
			continue // artifact directory still used by other documents
		}
		if _, err := fileutil.RemoveIfExists(path); err != nil {
			log.Warn("could not remove intermediate file", "path", path, "error", err)
		}
	}
	log.Debug("cleaned", "removed", len(remove), "kept_html", p.cfg.KeepHTML)
}

// TempSourcePath returns the UTF-8 copy path for a source file.
func TempSourcePath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + TempSourceSuffix
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
