package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/batchpdf"
	"github.com/alnah/batchpdf/internal/assets"
	"github.com/alnah/batchpdf/internal/config"
	"github.com/alnah/batchpdf/internal/hints"
	"github.com/alnah/batchpdf/internal/pipeline"
	"github.com/alnah/batchpdf/internal/toolchain"
)

// Sentinel errors for CLI operations.
var (
	ErrUsage       = errors.New("invalid usage")
	ErrFilesFailed = errors.New("some files failed to convert")
)

// runConvertCmd runs the convert command and returns an exit code.
func runConvertCmd(ctx context.Context, args []string, env *Environment) int {
	flags, positional, err := parseConvertFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return ExitUsage
	}

	err = runConvert(ctx, flags, positional, env)
	if err != nil && !errors.Is(err, ErrFilesFailed) {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
	}
	return exitCodeFor(err)
}

// runConvert orchestrates the conversion of one folder tree.
// Preconditions (config, target folder, stylesheet, tools) are checked once
// before any file is touched.
func runConvert(ctx context.Context, flags *convertFlags, positional []string, env *Environment) error {
	envCfg, err := loadEnvConfig(env.Getenv)
	if err != nil {
		return err
	}
	warnUnknownEnvVars(env.Stderr, env.Environ())

	cfg, err := loadConfig(flags.common.config, envCfg)
	if err != nil {
		return err
	}
	applyEnvConfig(envCfg, cfg)
	if err := mergeFlags(flags, positional, cfg); err != nil {
		return err
	}

	logger := newLogger(env, flags.common)

	runCfg, cleanup, err := batchpdf.Resolve(cfg, logger)
	defer cleanup()
	if err != nil {
		return withHint(err)
	}

	opts := append([]batchpdf.Option{batchpdf.WithLogger(logger)}, env.PipelineOptions...)
	p, err := batchpdf.NewPipeline(runCfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warn("closing renderer", "error", err)
		}
	}()

	if err := p.CheckTools(); err != nil {
		return fmt.Errorf("%w%s", err, toolHints(p.Config(), p.Tools(), env.LookPath))
	}

	ctx, stop := notifyContext(ctx)
	defer stop()
	go func() {
		// The first interrupt finishes the current file; a second one
		// gets the default behavior and terminates the process.
		<-ctx.Done()
		stop()
	}()

	root := runCfg.TargetFolder
	start := env.Now()
	sum, runErr := batchpdf.Run(ctx, root, p, func(r batchpdf.Result) {
		printResult(env, root, r, flags.common)
	})
	printSummary(env, root, sum, flags.common, env.Now().Sub(start))

	if runErr != nil {
		return fmt.Errorf("interrupted after %d file(s): %w", sum.Total(), runErr)
	}
	if !sum.OK() {
		return fmt.Errorf("%w: %d of %d", ErrFilesFailed, sum.Failed, sum.Total())
	}
	return nil
}

// loadConfig loads the config file named by the flag or BATCHPDF_CONFIG,
// or the defaults when neither is set.
func loadConfig(flagName string, env *envConfig) (*config.Config, error) {
	name := flagName
	if name == "" {
		name = env.ConfigPath
	}
	if name == "" {
		return config.DefaultConfig(), nil
	}

	cfg, err := config.LoadConfig(name)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(nil))
		}
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// mergeFlags merges CLI flags into config. CLI values override config values.
// A single positional argument is accepted in place of --target-folder.
func mergeFlags(flags *convertFlags, positional []string, cfg *config.Config) error {
	switch {
	case len(positional) > 1:
		return fmt.Errorf("%w: expected one folder, got %d arguments", ErrUsage, len(positional))
	case flags.targetFolder != "" && len(positional) == 1:
		return fmt.Errorf("%w: folder given both as argument and --target-folder", ErrUsage)
	case flags.targetFolder != "":
		cfg.Input.TargetFolder = flags.targetFolder
	case len(positional) == 1:
		cfg.Input.TargetFolder = positional[0]
	}

	// Input flags
	if flags.changed["ext"] {
		cfg.Input.Extensions = flags.extensions
	}
	if flags.changed["encoding"] {
		cfg.Encoding.Fallbacks = flags.encodings
	}
	if flags.changed["keep-html-on-success"] {
		cfg.Output.KeepHTML = flags.keepHTML
	}
	if flags.noTranscode {
		cfg.Images.Transcode = false
	}

	// Style flags
	if flags.style.css != "" {
		cfg.Style.CSS = flags.style.css
	}
	if flags.style.assetPath != "" {
		cfg.Assets.BasePath = flags.style.assetPath
	}
	if flags.style.noCompat {
		cfg.Style.Compat = false
	}
	if flags.style.noStyle {
		cfg.Style.Disabled = true
	}

	// Engine flags
	if flags.engine.converter != "" {
		cfg.Converter.Engine = flags.engine.converter
	}
	if flags.engine.renderer != "" {
		cfg.Renderer.Engine = flags.engine.renderer
	}
	if flags.engine.pageSize != "" {
		cfg.Renderer.PageSize = flags.engine.pageSize
	}
	if flags.engine.margin != "" {
		cfg.Renderer.Margin = flags.engine.margin
	}
	if flags.engine.dpi > 0 {
		cfg.Renderer.DPI = flags.engine.dpi
	}

	return nil
}

// newLogger builds the run logger: Info by default, Debug with -v,
// errors only with -q. Every record carries the run ID.
func newLogger(env *Environment, f commonFlags) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case f.quiet:
		level = slog.LevelError
	case f.verbose:
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(env.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("run", env.RunID())
}

// withHint appends an actionable hint to startup errors that have one.
func withHint(err error) error {
	switch {
	case errors.Is(err, batchpdf.ErrTargetFolder):
		return fmt.Errorf("%w%s", err, hints.ForTargetFolder())
	case errors.Is(err, assets.ErrStyleNotFound):
		return fmt.Errorf("%w%s", err, hints.ForStyleNotFound(assets.NewEmbeddedLoader().Names()))
	}
	return err
}

// toolHints returns install hints for every tool that does not resolve.
// An overridden executable gets the hints of the tool it replaces.
func toolHints(cfg batchpdf.Config, tools []string, lookPath func(string) (string, error)) string {
	roles := map[string]string{
		pipeline.EnginePandoc:      pipeline.EnginePandoc,
		pipeline.EngineWkhtmltopdf: pipeline.EngineWkhtmltopdf,
	}
	if cfg.ConverterBinary != "" {
		roles[cfg.ConverterBinary] = pipeline.EnginePandoc
	}
	if cfg.RendererBinary != "" {
		roles[cfg.RendererBinary] = pipeline.EngineWkhtmltopdf
	}

	var s string
	for _, tool := range tools {
		if _, err := lookPath(tool); err != nil {
			s += hints.ForToolNotFound(roles[tool])
		}
	}
	return s
}

// displayPath shows path relative to the target folder when possible.
func displayPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}

// printResult writes the outcome of one file as soon as it is known.
func printResult(env *Environment, root string, r batchpdf.Result, f commonFlags) {
	src := displayPath(root, r.Source)

	if !r.Succeeded() {
		fmt.Fprintf(env.Stderr, "FAILED %s: %s: %v%s\n", src, r.Reason(), r.Err, failureHint(r.Err))
		return
	}

	if f.quiet {
		return
	}

	out := displayPath(root, r.Output)
	if f.verbose {
		fmt.Fprintf(env.Stdout, "Converted %s -> %s (%v, %d pages, %s)\n",
			src, out, r.Duration.Round(time.Millisecond), r.Pages, r.Encoding)
	} else {
		fmt.Fprintf(env.Stdout, "Converted %s -> %s\n", src, out)
	}
	if r.Fallback {
		fmt.Fprintf(env.Stdout, "Retried without stylesheet: %s\n", src)
	}
	for _, ref := range r.Missing {
		fmt.Fprintf(env.Stdout, "  missing image in %s: %s\n", src, ref)
	}
}

// failureHint picks the hint for a per-file failure.
func failureHint(err error) string {
	var toolErr *toolchain.ToolError
	switch {
	case errors.Is(err, batchpdf.ErrEncoding):
		return hints.ForEncoding()
	case errors.Is(err, pipeline.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.As(err, &toolErr) && toolErr.StyleRelated:
		return hints.ForStyleRelated()
	}
	return ""
}

// printSummary writes the run totals, then the failures with their reasons.
func printSummary(env *Environment, root string, sum batchpdf.Summary, f commonFlags, elapsed time.Duration) {
	if !f.quiet {
		if sum.Total() == 0 && len(sum.WalkErrors) == 0 {
			fmt.Fprintf(env.Stdout, "No files found in %s\n", root)
			return
		}
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed", sum.Succeeded, sum.Failed)
		if sum.Fallbacks > 0 {
			fmt.Fprintf(env.Stdout, " (%d without stylesheet)", sum.Fallbacks)
		}
		if f.verbose {
			fmt.Fprintf(env.Stdout, " in %v", elapsed.Round(time.Millisecond))
		}
		fmt.Fprintln(env.Stdout)
	}

	if len(sum.Failures) > 0 {
		fmt.Fprintln(env.Stderr, "\nFailures:")
		for _, r := range sum.Failures {
			fmt.Fprintf(env.Stderr, "  %s: %s\n", displayPath(root, r.Source), r.Reason())
		}
	}
	if len(sum.WalkErrors) > 0 {
		fmt.Fprintln(env.Stderr, "\nUnreadable entries:")
		for _, err := range sum.WalkErrors {
			fmt.Fprintf(env.Stderr, "  %v\n", err)
		}
	}
}
