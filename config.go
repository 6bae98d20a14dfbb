package batchpdf

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/alnah/batchpdf/internal/assets"
	"github.com/alnah/batchpdf/internal/config"
	"github.com/alnah/batchpdf/internal/fileutil"
)

// Config is the run configuration. Build it with Resolve; the pipeline keeps
// its own copy, so changing a Config after NewPipeline has no effect.
type Config struct {
	TargetFolder string
	Extensions   []string // matched case-insensitively, default [".md"]

	// StylePath is the run stylesheet file passed to every render.
	// Empty renders without a stylesheet and disables the fallback retry.
	StylePath string

	KeepHTML  bool     // keep name.html after a success
	Encodings []string // fallback encodings for non-UTF-8 sources, in order
	Transcode bool     // convert webp, tiff and bmp images for the renderer

	ConverterEngine string // "pandoc" or "goldmark"
	ConverterBinary string
	RendererEngine  string // "wkhtmltopdf" or "chrome"
	RendererBinary  string
	PageSize        string
	Margin          string
	DPI             int
}

// clone returns a copy that shares no slices with c.
func (c Config) clone() Config {
	c.Extensions = slices.Clone(c.Extensions)
	c.Encodings = slices.Clone(c.Encodings)
	return c
}

// Resolve validates the file configuration, checks the target folder and
// writes the run stylesheet. The returned cleanup removes the stylesheet
// and must be called when the run ends.
//
// A missing theme file is logged as a warning and the run continues
// without it.
func Resolve(fc *config.Config, logger *slog.Logger) (Config, func(), error) {
	noop := func() {}
	if logger == nil {
		logger = discardLogger()
	}

	if err := fc.Validate(); err != nil {
		return Config{}, noop, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if fc.Input.TargetFolder == "" {
		return Config{}, noop, fmt.Errorf("%w: no folder given", ErrTargetFolder)
	}
	if !fileutil.DirExists(fc.Input.TargetFolder) {
		return Config{}, noop, fmt.Errorf("%w: %s", ErrTargetFolder, fc.Input.TargetFolder)
	}

	cfg := Config{
		TargetFolder:    fc.Input.TargetFolder,
		Extensions:      slices.Clone(fc.Input.Extensions),
		KeepHTML:        fc.Output.KeepHTML,
		Encodings:       slices.Clone(fc.Encoding.Fallbacks),
		Transcode:       fc.Images.Transcode,
		ConverterEngine: fc.Converter.Engine,
		ConverterBinary: fc.Converter.Binary,
		RendererEngine:  fc.Renderer.Engine,
		RendererBinary:  fc.Renderer.Binary,
		PageSize:        fc.Renderer.PageSize,
		Margin:          fc.Renderer.Margin,
		DPI:             fc.Renderer.DPI,
	}

	if fc.Style.Disabled {
		logger.Debug("stylesheet disabled")
		return cfg, noop, nil
	}

	resolver, err := assets.NewResolver(fc.Assets.BasePath)
	if err != nil {
		return Config{}, noop, fmt.Errorf("%w: %w", ErrStylesheet, err)
	}
	sheet, err := resolver.Stylesheet(fc.Style.CSS, fc.Style.Compat)
	if err != nil {
		return Config{}, noop, fmt.Errorf("%w: %w", ErrStylesheet, err)
	}
	for _, w := range sheet.Warnings {
		logger.Warn(w)
	}
	if sheet.CSS == "" {
		return cfg, noop, nil
	}

	path, cleanup, err := assets.WriteStylesheet(sheet.CSS)
	if err != nil {
		return Config{}, noop, fmt.Errorf("%w: %w", ErrStylesheet, err)
	}
	logger.Debug("stylesheet ready", "path", path, "sources", sheet.Sources, "custom_styles", resolver.HasCustomLoader())
	cfg.StylePath = path
	return cfg, cleanup, nil
}
