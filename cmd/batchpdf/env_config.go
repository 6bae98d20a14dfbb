package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alnah/batchpdf/internal/config"
)

// ErrInvalidEnv indicates a BATCHPDF_* variable with an unusable value.
var ErrInvalidEnv = errors.New("invalid environment variable")

const envPrefix = "BATCHPDF_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
// Boolean fields are pointers so that an unset variable is distinguishable
// from an explicit false.
type envConfig struct {
	// Tier 1 - Essential
	ConfigPath   string // BATCHPDF_CONFIG: config file name or path
	TargetFolder string // BATCHPDF_TARGET_FOLDER: folder to scan
	CSS          string // BATCHPDF_CSS: stylesheet file or style name
	KeepHTML     *bool  // BATCHPDF_KEEP_HTML: keep name.html on success

	// Tier 2 - Backends
	Converter string // BATCHPDF_CONVERTER: pandoc, goldmark
	Renderer  string // BATCHPDF_RENDERER: wkhtmltopdf, chrome
	Pandoc    string // BATCHPDF_PANDOC: pandoc executable
	Wkhtml    string // BATCHPDF_WKHTMLTOPDF: wkhtmltopdf executable

	// Tier 3 - Extended
	Encodings []string // BATCHPDF_ENCODINGS: comma-separated fallback labels
	PageSize  string   // BATCHPDF_PAGE_SIZE: A4, Letter, ...
	Transcode *bool    // BATCHPDF_TRANSCODE: convert webp/tiff/bmp images
	AssetPath string   // BATCHPDF_ASSET_PATH: directory with styles/<name>.css
}

// knownEnvVars lists valid BATCHPDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	// Tier 1 - Essential
	"BATCHPDF_CONFIG":        true,
	"BATCHPDF_TARGET_FOLDER": true,
	"BATCHPDF_CSS":           true,
	"BATCHPDF_KEEP_HTML":     true,
	// Tier 2 - Backends
	"BATCHPDF_CONVERTER":   true,
	"BATCHPDF_RENDERER":    true,
	"BATCHPDF_PANDOC":      true,
	"BATCHPDF_WKHTMLTOPDF": true,
	// Tier 3 - Extended
	"BATCHPDF_ENCODINGS":  true,
	"BATCHPDF_PAGE_SIZE":  true,
	"BATCHPDF_TRANSCODE":  true,
	"BATCHPDF_ASSET_PATH": true,
	// Read by doctor
	"BATCHPDF_CONTAINER": true,
}

// loadEnvConfig reads configuration from environment variables.
// Returns a struct with all recognized BATCHPDF_* values.
func loadEnvConfig(getenv func(string) string) (*envConfig, error) {
	cfg := &envConfig{
		// Tier 1
		ConfigPath:   getenv("BATCHPDF_CONFIG"),
		TargetFolder: getenv("BATCHPDF_TARGET_FOLDER"),
		CSS:          getenv("BATCHPDF_CSS"),
		// Tier 2
		Converter: getenv("BATCHPDF_CONVERTER"),
		Renderer:  getenv("BATCHPDF_RENDERER"),
		Pandoc:    getenv("BATCHPDF_PANDOC"),
		Wkhtml:    getenv("BATCHPDF_WKHTMLTOPDF"),
		// Tier 3
		PageSize:  getenv("BATCHPDF_PAGE_SIZE"),
		AssetPath: getenv("BATCHPDF_ASSET_PATH"),
	}

	for label := range strings.SplitSeq(getenv("BATCHPDF_ENCODINGS"), ",") {
		if label = strings.TrimSpace(label); label != "" {
			cfg.Encodings = append(cfg.Encodings, label)
		}
	}

	var err error
	if cfg.KeepHTML, err = envBool(getenv, "BATCHPDF_KEEP_HTML"); err != nil {
		return nil, err
	}
	if cfg.Transcode, err = envBool(getenv, "BATCHPDF_TRANSCODE"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envBool parses a boolean variable. Unset or empty returns nil.
func envBool(getenv func(string) string, name string) (*bool, error) {
	raw := strings.TrimSpace(getenv(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q (want true or false)", ErrInvalidEnv, name, raw)
	}
	return &v, nil
}

// warnUnknownEnvVars logs warnings for unrecognized BATCHPDF_* variables.
// Helps catch typos like BATCHPDF_KEEPHTML instead of BATCHPDF_KEEP_HTML.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, env := range environ {
		if strings.HasPrefix(env, envPrefix) {
			name, _, _ := strings.Cut(env, "=")
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig applies environment variable values to config.
// A set variable overrides the config file value.
// This ensures: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags)
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	// Tier 1
	if env.TargetFolder != "" {
		cfg.Input.TargetFolder = env.TargetFolder
	}
	if env.CSS != "" {
		cfg.Style.CSS = env.CSS
	}
	if env.KeepHTML != nil {
		cfg.Output.KeepHTML = *env.KeepHTML
	}

	// Tier 2
	if env.Converter != "" {
		cfg.Converter.Engine = env.Converter
	}
	if env.Renderer != "" {
		cfg.Renderer.Engine = env.Renderer
	}
	if env.Pandoc != "" {
		cfg.Converter.Binary = env.Pandoc
	}
	if env.Wkhtml != "" {
		cfg.Renderer.Binary = env.Wkhtml
	}

	// Tier 3
	if len(env.Encodings) > 0 {
		cfg.Encoding.Fallbacks = env.Encodings
	}
	if env.PageSize != "" {
		cfg.Renderer.PageSize = env.PageSize
	}
	if env.Transcode != nil {
		cfg.Images.Transcode = *env.Transcode
	}
	if env.AssetPath != "" {
		cfg.Assets.BasePath = env.AssetPath
	}
}
