package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"regexp"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// ErrHTMLConversion indicates goldmark failed to convert the document.
var ErrHTMLConversion = errors.New("HTML conversion failed")

// htmlTemplate wraps goldmark's fragment output in a complete HTML5 document.
const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s
</body>
</html>`

// Highlight placeholders use Private Use Area runes that pass through
// goldmark unchanged and become <mark> after rendering.
const (
	markStart = "\uE000"
	markEnd   = "\uE001"
)

var (
	crlfOrCR         = regexp.MustCompile(`\r\n?`)
	highlightPattern = regexp.MustCompile(`==(.*?)==`)
)

// GoldmarkConverter converts Markdown to HTML in-process, without pandoc.
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// NewGoldmarkConverter creates a GoldmarkConverter with GFM extensions and syntax highlighting.
func NewGoldmarkConverter() *GoldmarkConverter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,      // Tables, strikethrough, autolinks, task lists
			extension.Footnote, // [^1] footnotes
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithXHTML(),
			// WithUnsafe is not set: raw HTML in notes is dropped.
		),
	)
	return &GoldmarkConverter{md: md}
}

// Tools implements Converter. Goldmark needs no external executable.
func (c *GoldmarkConverter) Tools() []string { return nil }

// ToHTML reads req.InputPath and converts it to a standalone HTML5 document.
// Goldmark has no context support, so conversion runs in a goroutine and
// cancellation abandons it.
func (c *GoldmarkConverter) ToHTML(ctx context.Context, req ConvertRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := os.ReadFile(req.InputPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}
	content := preprocessMarkdown(string(raw))
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyOutput
	}

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := c.md.Convert([]byte(content), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		body := convertMarkPlaceholders(buf.String())
		done <- result{html: fmt.Sprintf(htmlTemplate, html.EscapeString(req.Title), body)}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

// preprocessMarkdown normalizes line endings and protects ==highlight== spans.
func preprocessMarkdown(content string) string {
	content = crlfOrCR.ReplaceAllString(content, "\n")
	return highlightPattern.ReplaceAllString(content, markStart+"$1"+markEnd)
}

func convertMarkPlaceholders(content string) string {
	return strings.NewReplacer(markStart, "<mark>", markEnd, "</mark>").Replace(content)
}
