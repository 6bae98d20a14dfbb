package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alnah/batchpdf/internal/toolchain"
)

// Engine names accepted by NewConverter.
const (
	EnginePandoc   = "pandoc"
	EngineGoldmark = "goldmark"
)

// Sentinel errors for conversion failures.
var (
	ErrEmptyOutput   = errors.New("converter produced no output")
	ErrUnknownEngine = errors.New("unknown engine")
)

// ConvertRequest names the Markdown file to convert.
type ConvertRequest struct {
	InputPath string
	Title     string // document title; pandoc warns when none is set
}

// Converter turns a Markdown file into a standalone HTML document.
type Converter interface {
	ToHTML(ctx context.Context, req ConvertRequest) (string, error)
	// Tools lists the executables the converter needs on the search path.
	Tools() []string
}

// Compile-time interface checks.
var (
	_ Converter = (*PandocConverter)(nil)
	_ Converter = (*GoldmarkConverter)(nil)
)

// NewConverter returns the converter registered under engine.
func NewConverter(engine string, runner toolchain.Runner, classifier toolchain.Classifier) (Converter, error) {
	switch strings.ToLower(engine) {
	case "", EnginePandoc:
		return &PandocConverter{Runner: runner, Classifier: classifier}, nil
	case EngineGoldmark:
		return NewGoldmarkConverter(), nil
	default:
		return nil, fmt.Errorf("%w: converter %q", ErrUnknownEngine, engine)
	}
}

// PandocConverter converts Markdown to HTML by invoking the Pandoc CLI.
type PandocConverter struct {
	Runner     toolchain.Runner
	Classifier toolchain.Classifier
	Binary     string // defaults to "pandoc"
}

// NewPandocConverter creates a PandocConverter with a real command runner.
func NewPandocConverter() *PandocConverter {
	return &PandocConverter{Runner: toolchain.ExecRunner{}}
}

func (c *PandocConverter) binary() string {
	if c.Binary != "" {
		return c.Binary
	}
	return EnginePandoc
}

// Tools implements Converter.
func (c *PandocConverter) Tools() []string { return []string{c.binary()} }

// Args returns the pandoc arguments for req. The input is read with
// pandoc's default markdown dialect.
func (c *PandocConverter) Args(req ConvertRequest) []string {
	args := []string{req.InputPath, "-f", "markdown", "-t", "html5", "--standalone"}
	if req.Title != "" {
		args = append(args, "--metadata", "pagetitle="+req.Title)
	}
	return args
}

// ToHTML runs pandoc on req.InputPath and returns its standard output.
func (c *PandocConverter) ToHTML(ctx context.Context, req ConvertRequest) (string, error) {
	res := c.Runner.Run(ctx, toolchain.Invocation{Name: c.binary(), Args: c.Args(req)})
	if err := c.Classifier.Classify(c.binary(), res); err != nil {
		return "", err
	}
	if len(strings.TrimSpace(string(res.Stdout))) == 0 {
		return "", ErrEmptyOutput
	}
	return string(res.Stdout), nil
}
