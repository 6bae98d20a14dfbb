package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alnah/batchpdf"
	"github.com/alnah/batchpdf/internal/pdfcheck"
	"github.com/alnah/batchpdf/internal/pipeline"
	"github.com/alnah/batchpdf/internal/toolchain"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Fake backends and environment
// ---------------------------------------------------------------------------

const stubHTML = `<!DOCTYPE html><html><head><title>t</title></head><body><h1>Title</h1></body></html>`

// stubConverter returns fixed HTML for every file.
type stubConverter struct{}

func (stubConverter) ToHTML(context.Context, pipeline.ConvertRequest) (string, error) {
	return stubHTML, nil
}

func (stubConverter) Tools() []string { return nil }

// stubRenderer writes a small file at the output path and records the
// stylesheet of every attempt.
type stubRenderer struct {
	failWithStyle bool

	mu     sync.Mutex
	styles []string
}

func (r *stubRenderer) Render(_ context.Context, req pipeline.RenderRequest) error {
	r.mu.Lock()
	r.styles = append(r.styles, req.StylePath)
	r.mu.Unlock()

	if r.failWithStyle && req.StylePath != "" {
		return &toolchain.ToolError{Tool: "wkhtmltopdf", ExitCode: 1, Stderr: "Error: failed to load user-style-sheet", StyleRelated: true}
	}
	return os.WriteFile(req.OutputPath, []byte("%PDF-1.4 stub"), 0o600)
}

func (r *stubRenderer) Tools() []string { return nil }
func (r *stubRenderer) Close() error    { return nil }

func (r *stubRenderer) Styles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.styles...)
}

// testEnv returns an Environment wired to stub backends, an empty process
// environment and captured output.
func testEnv(vars map[string]string, r *stubRenderer) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	if r == nil {
		r = &stubRenderer{}
	}
	env := &Environment{
		Now:         time.Now,
		Stdout:      &stdout,
		Stderr:      &stderr,
		Getenv:      mapEnv(vars),
		Environ:     func() []string { return nil },
		RunID:       func() string { return "test-run" },
		Runner:      &toolchain.FakeRunner{},
		LookPath:    func(name string) (string, error) { return "/usr/bin/" + name, nil },
		FindBrowser: func() (string, bool) { return "", false },
		PipelineOptions: []batchpdf.Option{
			batchpdf.WithConverter(stubConverter{}),
			batchpdf.WithRenderer(r),
			batchpdf.WithVerifier(pdfcheck.Skip{}),
			batchpdf.WithTranscoder(nil),
		},
	}
	return env, &stdout, &stderr
}

// writeNotes creates files below a temp dir and returns the dir.
func writeNotes(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
