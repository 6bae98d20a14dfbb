// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"runtime"
	"strings"

	"github.com/alnah/batchpdf/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// goos is swapped by tests.
var goos = runtime.GOOS

// installHints maps an external tool to per-platform install advice.
var installHints = map[string]map[string]string{
	"pandoc": {
		"darwin":  "brew install pandoc",
		"linux":   "apt install pandoc (or see https://pandoc.org/installing.html)",
		"windows": "winget install JohnMacFarlane.Pandoc",
		"":        "see https://pandoc.org/installing.html",
	},
	"wkhtmltopdf": {
		"darwin":  "brew install --cask wkhtmltopdf",
		"linux":   "apt install wkhtmltopdf (or see https://wkhtmltopdf.org/downloads.html)",
		"windows": "winget install wkhtmltopdf.wkhtmltox",
		"":        "see https://wkhtmltopdf.org/downloads.html",
	},
}

// ForToolNotFound returns install advice for a missing external tool,
// and the pure-Go alternative when there is one.
func ForToolNotFound(tool string) string {
	var hints []string
	if byOS, ok := installHints[tool]; ok {
		if h, ok := byOS[goos]; ok {
			hints = append(hints, h)
		} else {
			hints = append(hints, byOS[""])
		}
	}
	switch tool {
	case "pandoc":
		hints = append(hints, "or use --converter goldmark")
	case "wkhtmltopdf":
		hints = append(hints, "or use --renderer chrome")
	}
	return formatHints(hints)
}

// ForBrowserConnect returns hints for browser connection errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}

	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use an installed Chrome")
	}

	return formatHints(hints)
}

// ForEncoding suggests adding a fallback encoding.
func ForEncoding() string {
	return format("save the file as UTF-8 or add its encoding with --encoding (e.g. shift_jis, big5, windows-1252)")
}

// ForStyleRelated is attached to render failures caused by the stylesheet.
func ForStyleRelated() string {
	return format("the stylesheet was rejected; check it or pass --no-style")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in the user config dir.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(filepathSlash(p), "/batchpdf/") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForTargetFolder returns hints for an unusable --target-folder.
func ForTargetFolder() string {
	return format("pass an existing directory, e.g. --target-folder ./notes")
}

// ForStyleNotFound returns hints for style not found errors.
func ForStyleNotFound(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

func filepathSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
