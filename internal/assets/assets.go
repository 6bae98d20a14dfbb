package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/batchpdf/internal/fileutil"
)

// Sheet is the stylesheet applied to every document of a run.
type Sheet struct {
	CSS      string   // combined content; empty means render without style
	Sources  []string // what went into CSS, for logging
	Warnings []string // non-fatal problems, such as a missing theme file
}

// Stylesheet builds the run stylesheet.
//
// theme is a path to a .css file, the name of a style known to r, or empty
// for the default theme. A theme file that does not exist is reported in
// Warnings and the sheet is built without it. compat appends the pandoc
// compatibility layer.
func (r *Resolver) Stylesheet(theme string, compat bool) (Sheet, error) {
	var sheet Sheet
	var parts []string

	themeCSS, source, err := r.loadTheme(theme)
	switch {
	case errors.Is(err, os.ErrNotExist):
		sheet.Warnings = append(sheet.Warnings, fmt.Sprintf("CSS file %q does not exist; converting without theme", theme))
	case err != nil:
		return Sheet{}, err
	default:
		parts = append(parts, themeCSS)
		sheet.Sources = append(sheet.Sources, source)
	}

	if compat {
		compatCSS, err := r.LoadStyle(CompatStyleName)
		if err != nil {
			return Sheet{}, err
		}
		parts = append(parts, compatCSS)
		sheet.Sources = append(sheet.Sources, CompatStyleName)
	}

	sheet.CSS = strings.Join(parts, "\n\n")
	return sheet, nil
}

func (r *Resolver) loadTheme(theme string) (css, source string, err error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		css, err = r.LoadStyle(DefaultThemeName)
		return css, DefaultThemeName, err
	}

	if isStylePath(theme) {
		content, err := os.ReadFile(theme) // #nosec G304 -- user-supplied stylesheet
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", "", err
			}
			return "", "", fmt.Errorf("%w: %v", ErrAssetRead, err)
		}
		return string(content), theme, nil
	}

	css, err = r.LoadStyle(theme)
	return css, theme, err
}

// isStylePath reports whether ref names a file rather than a style.
func isStylePath(ref string) bool {
	return strings.EqualFold(filepath.Ext(ref), ".css") || strings.ContainsAny(ref, `/\`)
}

// WriteStylesheet stores css in a temporary file for the renderer.
// The returned cleanup removes it.
func WriteStylesheet(css string) (path string, cleanup func(), err error) {
	return fileutil.WriteTempFile(css, "css")
}
