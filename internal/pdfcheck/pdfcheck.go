// Package pdfcheck validates rendered PDF files.
//
// A renderer may exit zero and still leave an empty or unparsable file
// behind. Verify catches that before the pipeline reports success.
package pdfcheck

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Sentinel errors for PDF validation.
var (
	ErrMissing = errors.New("PDF not produced")
	ErrEmpty   = errors.New("PDF is empty")
	ErrInvalid = errors.New("PDF is invalid")
	ErrNoPages = errors.New("PDF has no pages")
)

// Verifier checks a rendered document and returns its page count.
type Verifier interface {
	Verify(path string) (pages int, err error)
}

// relaxedConfig is pdfcpu's built-in configuration with relaxed validation.
// The config directory is disabled first, so verifying never creates files
// under the user config dir.
var relaxedConfig = sync.OnceValue(func() *model.Configuration {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
})

// PageCounter verifies documents by parsing them with pdfcpu.
type PageCounter struct{}

// Compile-time interface check.
var _ Verifier = PageCounter{}

// Verify opens path, parses it and counts its pages.
func (PageCounter) Verify(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return 0, err
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmpty, path)
	}

	f, err := os.Open(path) // #nosec G304 -- output path computed by the pipeline
	if err != nil {
		return 0, err
	}
	defer f.Close()

	conf := *relaxedConfig()
	pages, err := api.PageCount(f, &conf)
	if err != nil {
		// Renderers emit documents pdfcpu may not fully validate. A readable
		// page tree is enough to keep the output.
		var readErr error
		if pages, readErr = readPageCount(f, &conf); readErr != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if pages == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoPages, path)
	}
	return pages, nil
}

// readPageCount parses rs without validating it and returns the /Count of
// its page tree.
func readPageCount(rs io.ReadSeeker, conf *model.Configuration) (int, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return 0, err
	}
	if err := ctx.XRefTable.EnsurePageCount(); err != nil {
		return 0, err
	}
	return ctx.XRefTable.PageCount, nil
}

// Skip accepts any existing, non-empty file without parsing it.
type Skip struct{}

// Verify implements Verifier. The page count is always zero.
func (Skip) Verify(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrMissing, path)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	return 0, nil
}
