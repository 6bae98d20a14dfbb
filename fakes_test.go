package batchpdf

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alnah/batchpdf/internal/pdfcheck"
	"github.com/alnah/batchpdf/internal/pipeline"
	"github.com/alnah/batchpdf/internal/toolchain"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Fake backends
// ---------------------------------------------------------------------------

const fakeHTML = `<!DOCTYPE html><html><head><title>t</title></head>` +
	`<body><h1>Title</h1><img src="img/pic.png"><a href="https://example.com">x</a></body></html>`

// onePagePDF loads a valid single-page PDF fixture.
func onePagePDF(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("internal", "pdfcheck", "testdata", "one-page.pdf"))
	if err != nil {
		t.Fatalf("loading PDF fixture: %v", err)
	}
	return data
}

// fakeConverter returns fixed HTML and records what it was asked to read.
type fakeConverter struct {
	html string
	err  error

	mu       sync.Mutex
	requests []pipeline.ConvertRequest
	inputs   []string // content of InputPath at call time
}

func (f *fakeConverter) ToHTML(_ context.Context, req pipeline.ConvertRequest) (string, error) {
	content, _ := os.ReadFile(req.InputPath)

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.inputs = append(f.inputs, string(content))
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	return f.html, nil
}

func (f *fakeConverter) Tools() []string { return nil }

// fakeRenderer writes pdf to the output path. Failing attempts write a
// partial file first, the way a crashing renderer can.
type fakeRenderer struct {
	pdf           []byte
	failWithStyle bool // fail whenever a stylesheet is given
	failAlways    bool
	writeGarbage  bool // succeed but produce an unreadable file
	during        func(ctx context.Context) error // runs before the output is written

	mu       sync.Mutex
	requests []pipeline.RenderRequest
	htmlSeen []string
	closed   bool
}

func (f *fakeRenderer) Render(ctx context.Context, req pipeline.RenderRequest) error {
	content, _ := os.ReadFile(req.HTMLPath)

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.htmlSeen = append(f.htmlSeen, string(content))
	f.mu.Unlock()

	if f.during != nil {
		if err := f.during(ctx); err != nil {
			return err
		}
	}
	if f.failAlways || (f.failWithStyle && req.StylePath != "") {
		_ = os.WriteFile(req.OutputPath, []byte("%PDF-1.4 trunc"), 0o644)
		stderr := "Error: Failed to load page"
		if req.StylePath != "" {
			stderr = "Warning: Failed loading user-style-sheet"
		}
		return &toolchain.ToolError{
			Tool:         "wkhtmltopdf",
			ExitCode:     1,
			Stderr:       stderr,
			StyleRelated: toolchain.IsStyleRelated(stderr),
		}
	}
	if f.writeGarbage {
		return os.WriteFile(req.OutputPath, []byte("not a pdf"), 0o644)
	}
	return os.WriteFile(req.OutputPath, f.pdf, 0o644)
}

func (f *fakeRenderer) Tools() []string { return nil }

func (f *fakeRenderer) Close() error {
	f.closed = true
	return nil
}

// newTestPipeline builds a pipeline around the given fakes with real
// encoding, rewriting and PDF checks.
func newTestPipeline(t *testing.T, cfg Config, conv pipeline.Converter, rend pipeline.Renderer, opts ...Option) *Pipeline {
	t.Helper()
	if cfg.Encodings == nil {
		cfg.Encodings = []string{"gb18030"}
	}
	all := append([]Option{
		WithConverter(conv),
		WithRenderer(rend),
		WithTranscoder(nil),
		WithVerifier(pdfcheck.PageCounter{}),
	}, opts...)
	p, err := NewPipeline(cfg, all...)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

// writeTree creates files under a temp dir and returns its path.
func writeTree(t *testing.T, files map[string][]byte) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, content, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// writeStyle creates a stylesheet file for runs that need one.
func writeStyle(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.css")
	if err := os.WriteFile(path, []byte("body { font-family: serif; }"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
