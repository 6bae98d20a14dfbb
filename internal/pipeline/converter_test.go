package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/alnah/batchpdf/internal/toolchain"
)

func TestNewConverter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		engine  string
		want    string
		wantErr bool
	}{
		{"", "*pipeline.PandocConverter", false},
		{"pandoc", "*pipeline.PandocConverter", false},
		{"GOLDMARK", "*pipeline.GoldmarkConverter", false},
		{"markdown-it", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			t.Parallel()

			c, err := NewConverter(tt.engine, &toolchain.FakeRunner{}, toolchain.Classifier{})
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownEngine) {
					t.Fatalf("NewConverter() error = %v, want ErrUnknownEngine", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := typeName(c); got != tt.want {
				t.Errorf("NewConverter(%q) = %s, want %s", tt.engine, got, tt.want)
			}
		})
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *PandocConverter:
		return "*pipeline.PandocConverter"
	case *GoldmarkConverter:
		return "*pipeline.GoldmarkConverter"
	case *WkhtmltopdfRenderer:
		return "*pipeline.WkhtmltopdfRenderer"
	case *ChromeRenderer:
		return "*pipeline.ChromeRenderer"
	default:
		return "unknown"
	}
}

// ---------------------------------------------------------------------------
// TestPandocConverter - External converter invocation
// ---------------------------------------------------------------------------

func TestPandocConverter_ToHTML(t *testing.T) {
	t.Parallel()

	req := ConvertRequest{InputPath: "/notes/os.md", Title: "os"}
	wantArgs := []string{"/notes/os.md", "-f", "markdown", "-t", "html5", "--standalone", "--metadata", "pagetitle=os"}

	tests := []struct {
		name       string
		result     toolchain.Result
		wantOutput string
		wantIs     error
	}{
		{
			name:       "success returns stdout",
			result:     toolchain.Result{Stdout: []byte("<html><body><h1>OS</h1></body></html>")},
			wantOutput: "<html><body><h1>OS</h1></body></html>",
		},
		{
			name:   "non-zero exit",
			result: toolchain.Result{ExitCode: 1, Stderr: []byte("pandoc: Cannot decode byte '\\xff'")},
			wantIs: toolchain.ErrToolFailed,
		},
		{
			name:   "empty output",
			result: toolchain.Result{Stdout: []byte("  \n")},
			wantIs: ErrEmptyOutput,
		},
		{
			name:   "binary missing",
			result: toolchain.Result{ExitCode: -1, Err: os.ErrNotExist},
			wantIs: toolchain.ErrToolNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runner := &toolchain.FakeRunner{Script: func(toolchain.Invocation) toolchain.Result { return tt.result }}
			c := &PandocConverter{Runner: runner}

			got, err := c.ToHTML(context.Background(), req)
			if tt.wantIs != nil {
				if !errors.Is(err, tt.wantIs) {
					t.Fatalf("ToHTML() error = %v, want %v", err, tt.wantIs)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.wantOutput {
				t.Errorf("ToHTML() = %q, want %q", got, tt.wantOutput)
			}

			calls := runner.Calls()
			if len(calls) != 1 {
				t.Fatalf("runner called %d times, want 1", len(calls))
			}
			if calls[0].Name != "pandoc" || !slices.Equal(calls[0].Args, wantArgs) {
				t.Errorf("invocation = %v", calls[0])
			}
		})
	}
}

func TestPandocConverter_ArgsWithoutTitle(t *testing.T) {
	t.Parallel()

	c := &PandocConverter{Binary: "/opt/pandoc/bin/pandoc"}
	args := c.Args(ConvertRequest{InputPath: "a.md"})
	if slices.Contains(args, "--metadata") {
		t.Errorf("Args() = %v, want no metadata without a title", args)
	}
	if got := c.Tools(); !slices.Equal(got, []string{"/opt/pandoc/bin/pandoc"}) {
		t.Errorf("Tools() = %v", got)
	}
}

// ---------------------------------------------------------------------------
// TestGoldmarkConverter - In-process converter
// ---------------------------------------------------------------------------

func writeMarkdown(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGoldmarkConverter_ToHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		markdown     string
		title        string
		wantContains []string
		wantExcludes []string
	}{
		{
			name:         "standalone document with title",
			markdown:     "# Hello\n\nWorld",
			title:        "Notes & more",
			wantContains: []string{"<!DOCTYPE html>", "<title>Notes &amp; more</title>", `<h1 id="hello">Hello</h1>`},
		},
		{
			name:         "gfm table",
			markdown:     "| a | b |\n|---|---|\n| 1 | 2 |\n",
			wantContains: []string{"<table>", "<td>1</td>"},
		},
		{
			name:         "highlight marks",
			markdown:     "some ==important== text",
			wantContains: []string{"<mark>important</mark>"},
			wantExcludes: []string{"\uE000", "=="},
		},
		{
			name:         "crlf line endings",
			markdown:     "line one\r\nline two\r\n",
			wantContains: []string{"line one\nline two"},
			wantExcludes: []string{"\r"},
		},
		{
			name:         "code block highlighted with classes",
			markdown:     "```go\nfunc main() {}\n```\n",
			wantContains: []string{`class="chroma"`},
		},
		{
			name:         "raw html dropped",
			markdown:     "<script>alert(1)</script>\n\ntext",
			wantExcludes: []string{"<script>"},
		},
		{
			name:         "images keep relative paths",
			markdown:     "![pic](images/a.png)",
			wantContains: []string{`src="images/a.png"`},
		},
	}

	c := NewGoldmarkConverter()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := c.ToHTML(context.Background(), ConvertRequest{InputPath: writeMarkdown(t, tt.markdown), Title: tt.title})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q\ngot: %s", want, got)
				}
			}
			for _, exclude := range tt.wantExcludes {
				if strings.Contains(got, exclude) {
					t.Errorf("output should not contain %q\ngot: %s", exclude, got)
				}
			}
		})
	}
}

func TestGoldmarkConverter_Errors(t *testing.T) {
	t.Parallel()

	c := NewGoldmarkConverter()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := c.ToHTML(context.Background(), ConvertRequest{InputPath: filepath.Join(t.TempDir(), "nope.md")})
		if !errors.Is(err, ErrHTMLConversion) {
			t.Errorf("error = %v, want ErrHTMLConversion", err)
		}
	})

	t.Run("empty document", func(t *testing.T) {
		t.Parallel()

		_, err := c.ToHTML(context.Background(), ConvertRequest{InputPath: writeMarkdown(t, "\n\n  \n")})
		if !errors.Is(err, ErrEmptyOutput) {
			t.Errorf("error = %v, want ErrEmptyOutput", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.ToHTML(ctx, ConvertRequest{InputPath: writeMarkdown(t, "# x")})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})

	if got := c.Tools(); len(got) != 0 {
		t.Errorf("Tools() = %v, want none", got)
	}
}
