// Package config defines the YAML configuration file for batchpdf.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/batchpdf/internal/charset"
	"github.com/alnah/batchpdf/internal/pipeline"
	"github.com/alnah/batchpdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength      = 4096
	MaxExtensionLength = 16
	MaxLabelLength     = 40 // encoding labels such as "windows-1252"
)

// AppName names the per-user config directory.
const AppName = "batchpdf"

// Config holds all settings that can come from a config file.
type Config struct {
	Input     InputConfig     `yaml:"input"`
	Style     StyleConfig     `yaml:"style"`
	Output    OutputConfig    `yaml:"output"`
	Encoding  EncodingConfig  `yaml:"encoding"`
	Images    ImagesConfig    `yaml:"images"`
	Converter ConverterConfig `yaml:"converter"`
	Renderer  RendererConfig  `yaml:"renderer"`
	Assets    AssetsConfig    `yaml:"assets"`
}

// InputConfig defines where documents are discovered.
type InputConfig struct {
	TargetFolder string   `yaml:"targetFolder"`
	Extensions   []string `yaml:"extensions"` // matched case-insensitively, default [".md"]
}

// StyleConfig defines the stylesheet applied by the renderer.
type StyleConfig struct {
	CSS      string `yaml:"css"`      // file path or style name (empty = bundled theme)
	Compat   bool   `yaml:"compat"`   // append the pandoc compatibility layer
	Disabled bool   `yaml:"disabled"` // render without any stylesheet
}

// OutputConfig defines artifact retention.
type OutputConfig struct {
	KeepHTML bool `yaml:"keepHTML"` // keep name.html after a successful conversion
}

// EncodingConfig lists encodings tried for non-UTF-8 sources, in order.
type EncodingConfig struct {
	Fallbacks []string `yaml:"fallbacks"`
}

// ImagesConfig controls the optional image transcoder.
type ImagesConfig struct {
	Transcode bool `yaml:"transcode"`
}

// ConverterConfig selects the Markdown to HTML backend.
type ConverterConfig struct {
	Engine string `yaml:"engine"` // "pandoc" or "goldmark"
	Binary string `yaml:"binary"` // executable override for pandoc
}

// RendererConfig selects the HTML to PDF backend and page layout.
type RendererConfig struct {
	Engine   string `yaml:"engine"` // "wkhtmltopdf" or "chrome"
	Binary   string `yaml:"binary"` // executable override for wkhtmltopdf
	PageSize string `yaml:"pageSize"`
	Margin   string `yaml:"margin"`
	DPI      int    `yaml:"dpi"`
}

// AssetsConfig defines where custom styles are looked up.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // directory holding styles/{name}.css; empty = bundled only
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Input:     InputConfig{Extensions: []string{".md"}},
		Style:     StyleConfig{Compat: true},
		Encoding:  EncodingConfig{Fallbacks: append([]string(nil), charset.DefaultFallbacks...)},
		Images:    ImagesConfig{Transcode: true},
		Converter: ConverterConfig{Engine: pipeline.EnginePandoc},
		Renderer: RendererConfig{
			Engine:   pipeline.EngineWkhtmltopdf,
			PageSize: pipeline.DefaultPage.Size,
			Margin:   pipeline.DefaultPage.Margin,
			DPI:      pipeline.DefaultPage.DPI,
		},
	}
}

// Page returns the renderer page settings.
func (c *Config) Page() pipeline.PageSettings {
	return pipeline.PageSettings{Size: c.Renderer.PageSize, Margin: c.Renderer.Margin, DPI: c.Renderer.DPI}
}

// Validate checks values and lengths. Called by LoadConfig, and again by
// the CLI after flags and environment overrides are applied.
func (c *Config) Validate() error {
	for _, f := range []struct {
		name, value string
	}{
		{"input.targetFolder", c.Input.TargetFolder},
		{"style.css", c.Style.CSS},
		{"converter.binary", c.Converter.Binary},
		{"renderer.binary", c.Renderer.Binary},
		{"assets.basePath", c.Assets.BasePath},
	} {
		if err := validateFieldLength(f.name, f.value, MaxPathLength); err != nil {
			return err
		}
	}

	if len(c.Input.Extensions) == 0 {
		return fmt.Errorf("%w: input.extensions: at least one extension is required", ErrInvalidValue)
	}
	for i, ext := range c.Input.Extensions {
		field := fmt.Sprintf("input.extensions[%d]", i)
		if err := validateFieldLength(field, ext, MaxExtensionLength); err != nil {
			return err
		}
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 || strings.ContainsAny(ext, `/\`) {
			return fmt.Errorf("%w: %s: %q must look like \".md\"", ErrInvalidValue, field, ext)
		}
	}

	for i, label := range c.Encoding.Fallbacks {
		field := fmt.Sprintf("encoding.fallbacks[%d]", i)
		if err := validateFieldLength(field, label, MaxLabelLength); err != nil {
			return err
		}
		if _, err := charset.Lookup(label); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, field, err)
		}
	}

	switch strings.ToLower(c.Converter.Engine) {
	case "", pipeline.EnginePandoc, pipeline.EngineGoldmark:
	default:
		return fmt.Errorf("%w: converter.engine: %q (must be pandoc or goldmark)", ErrInvalidValue, c.Converter.Engine)
	}

	switch strings.ToLower(c.Renderer.Engine) {
	case "", pipeline.EngineWkhtmltopdf, pipeline.EngineChrome:
	default:
		return fmt.Errorf("%w: renderer.engine: %q (must be wkhtmltopdf or chrome)", ErrInvalidValue, c.Renderer.Engine)
	}

	if err := c.Page().Validate(); err != nil {
		return fmt.Errorf("renderer: %w", err)
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Keys absent from the file keep their DefaultConfig values.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !isFilePath(nameOrPath) {
		var err error
		if configPath, err = resolveConfigPath(nameOrPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, user config dir/batchpdf/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, AppName, name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
