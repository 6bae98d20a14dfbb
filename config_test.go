package batchpdf

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/batchpdf/internal/config"
)

func fileConfig(t *testing.T) *config.Config {
	t.Helper()
	fc := config.DefaultConfig()
	fc.Input.TargetFolder = t.TempDir()
	return fc
}

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("defaults build a stylesheet from theme and compat layer", func(t *testing.T) {
		t.Parallel()

		fc := fileConfig(t)
		cfg, cleanup, err := Resolve(fc, nil)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}

		if cfg.TargetFolder != fc.Input.TargetFolder || cfg.ConverterEngine != "pandoc" || cfg.RendererEngine != "wkhtmltopdf" {
			t.Errorf("cfg = %+v", cfg)
		}
		css, err := os.ReadFile(cfg.StylePath)
		if err != nil {
			t.Fatalf("stylesheet not written: %v", err)
		}
		if len(strings.TrimSpace(string(css))) == 0 {
			t.Error("stylesheet is empty")
		}

		cleanup()
		if exists(cfg.StylePath) {
			t.Error("cleanup should remove the stylesheet")
		}
	})

	t.Run("user css file is used", func(t *testing.T) {
		t.Parallel()

		fc := fileConfig(t)
		fc.Style.CSS = filepath.Join(t.TempDir(), "mine.css")
		fc.Style.Compat = false
		if err := os.WriteFile(fc.Style.CSS, []byte("h1 { color: teal; }"), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, cleanup, err := Resolve(fc, nil)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		defer cleanup()

		css, _ := os.ReadFile(cfg.StylePath)
		if strings.TrimSpace(string(css)) != "h1 { color: teal; }" {
			t.Errorf("stylesheet = %q", css)
		}
	})

	t.Run("missing css file without compat renders unstyled", func(t *testing.T) {
		t.Parallel()

		fc := fileConfig(t)
		fc.Style.CSS = filepath.Join(t.TempDir(), "absent.css")
		fc.Style.Compat = false

		cfg, cleanup, err := Resolve(fc, nil)
		if err != nil {
			t.Fatalf("a missing theme should only warn: %v", err)
		}
		defer cleanup()
		if cfg.StylePath != "" {
			t.Errorf("StylePath = %q, want empty", cfg.StylePath)
		}
	})

	t.Run("disabled style", func(t *testing.T) {
		t.Parallel()

		fc := fileConfig(t)
		fc.Style.Disabled = true

		cfg, cleanup, err := Resolve(fc, nil)
		if err != nil {
			t.Fatal(err)
		}
		defer cleanup()
		if cfg.StylePath != "" {
			t.Errorf("StylePath = %q, want empty", cfg.StylePath)
		}
	})

	t.Run("unknown style name", func(t *testing.T) {
		t.Parallel()

		fc := fileConfig(t)
		fc.Style.CSS = "no-such-theme"

		if _, _, err := Resolve(fc, nil); !errors.Is(err, ErrStylesheet) {
			t.Errorf("error = %v, want ErrStylesheet", err)
		}
	})

	t.Run("missing target folder", func(t *testing.T) {
		t.Parallel()

		fc := fileConfig(t)
		fc.Input.TargetFolder = filepath.Join(fc.Input.TargetFolder, "absent")

		if _, _, err := Resolve(fc, nil); !errors.Is(err, ErrTargetFolder) {
			t.Errorf("error = %v, want ErrTargetFolder", err)
		}
	})

	t.Run("empty target folder", func(t *testing.T) {
		t.Parallel()

		fc := config.DefaultConfig()
		if _, _, err := Resolve(fc, nil); !errors.Is(err, ErrTargetFolder) {
			t.Errorf("error = %v, want ErrTargetFolder", err)
		}
	})

	t.Run("invalid file config", func(t *testing.T) {
		t.Parallel()

		fc := fileConfig(t)
		fc.Renderer.Engine = "prince"

		_, _, err := Resolve(fc, nil)
		if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, config.ErrInvalidValue) {
			t.Errorf("error = %v, want ErrInvalidConfig wrapping ErrInvalidValue", err)
		}
	})
}
