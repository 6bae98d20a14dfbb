package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/batchpdf/internal/fileutil"
	"github.com/alnah/batchpdf/internal/hints"
	"github.com/alnah/batchpdf/internal/pipeline"
	"github.com/alnah/batchpdf/internal/toolchain"
)

// versionTimeout bounds each "--version" probe.
const versionTimeout = 10 * time.Second

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string     `json:"status"` // "ready", "warnings", "errors"
	Tools    []toolInfo `json:"tools"`
	Chrome   chromeInfo `json:"chrome"`
	Env      envInfo    `json:"environment"`
	System   systemInfo `json:"system"`
	Warnings []string   `json:"warnings,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
}

// toolInfo holds detection results for an external tool of the default pipeline.
type toolInfo struct {
	Name    string `json:"name"`
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	// Alternative is the pure-Go backend that replaces the tool.
	Alternative string `json:"alternative"`
}

// chromeInfo holds Chrome/Chromium detection results.
// Chrome is only needed by --renderer chrome.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempDir      string `json:"temp_dir"`
	TempWritable bool   `json:"temp_writable"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	jsonOutput, err := parseDoctorFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return ExitUsage
	}

	result := runDoctor(ctx, env)

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, env *Environment) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  env.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: env.Getenv("ROD_BROWSER_BIN"),
		},
	}

	checkTool(ctx, env, result, pipeline.EnginePandoc, env.Getenv("BATCHPDF_PANDOC"), "--converter "+pipeline.EngineGoldmark)
	checkTool(ctx, env, result, pipeline.EngineWkhtmltopdf, env.Getenv("BATCHPDF_WKHTMLTOPDF"), "--renderer "+pipeline.EngineChrome)
	checkChrome(ctx, env, result)
	checkEnvironment(env, result)
	checkSystem(result)

	// Determine final status
	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkTool resolves an external tool and asks it for its version.
// A missing tool is an error: the default pipeline cannot run without it.
func checkTool(ctx context.Context, env *Environment, result *doctorResult, name, override, alternative string) {
	bin := name
	if override != "" {
		bin = override
	}
	info := toolInfo{Name: name, Alternative: alternative}
	defer func() { result.Tools = append(result.Tools, info) }()

	path, err := env.LookPath(bin)
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s not found%s", bin, hints.ForToolNotFound(name)))
		return
	}
	info.Found = true
	info.Path = path

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	version, err := toolchain.Version(ctx, env.Runner, path)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get %s version: %v", name, err))
		return
	}
	info.Version = version
}

// checkChrome detects Chrome/Chromium installation.
// Missing Chrome is a warning: rod downloads Chromium on first use.
func checkChrome(ctx context.Context, env *Environment, result *doctorResult) {
	chromePath := result.Env.BrowserBin

	if chromePath == "" {
		// Use rod's launcher to locate Chrome
		var found bool
		chromePath, found = env.FindBrowser()
		if !found {
			result.Warnings = append(result.Warnings,
				"Chrome/Chromium not found; --renderer chrome will download Chromium on first use")
			return
		}
	}

	// Verify it exists
	if !fileutil.FileExists(chromePath) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	if version, err := toolchain.Version(ctx, env.Runner, chromePath); err == nil {
		result.Chrome.Version = version
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Chrome version: %v", err))
	}

	// Sandbox status: disabled if ROD_NO_SANDBOX=1
	result.Chrome.Sandbox = result.Env.NoSandbox != "1"
}

// ciVars are set by common CI providers.
var ciVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// checkEnvironment detects container and CI environments.
func checkEnvironment(env *Environment, result *doctorResult) {
	// Detect container (multi-signal approach)
	result.Env.Container, result.Env.ContainerHint = isContainer(env.Getenv)

	for _, v := range ciVars {
		if env.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	// The sandbox only matters when chrome is usable
	if result.Chrome.Found && (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1 for --renderer chrome")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer(getenv func(string) string) (bool, string) {
	// Explicit override (highest priority)
	if getenv("BATCHPDF_CONTAINER") == "1" {
		return true, "BATCHPDF_CONTAINER=1"
	}
	// Docker
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	// Podman / systemd-nspawn / general container indicator
	if v := getenv("container"); v != "" {
		return true, "container=" + v
	}
	// Kubernetes
	if getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory used for the run stylesheet.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	result.System.TempDir = tmpDir
	testFile := filepath.Join(tmpDir, "batchpdf-doctor-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
	} else {
		_ = os.Remove(testFile)
		result.System.TempWritable = true
	}
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "batchpdf doctor")
	fmt.Fprintln(w)

	// Tools section
	fmt.Fprintln(w, "Tools")
	for _, t := range r.Tools {
		if !t.Found {
			fmt.Fprintf(w, "  [ERROR] %s: not found (alternative: %s)\n", t.Name, t.Alternative)
			continue
		}
		version := t.Version
		if version == "" {
			version = "unknown version"
		}
		fmt.Fprintf(w, "  [OK] %s: %s (%s)\n", t.Name, t.Path, version)
	}
	fmt.Fprintln(w)

	// Chrome section
	fmt.Fprintln(w, "Chrome/Chromium (--renderer chrome)")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (ROD_NO_SANDBOX=1)")
		}
	} else {
		fmt.Fprintln(w, "  [WARN] Not found")
	}
	fmt.Fprintln(w)

	// Environment section
	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	// System section
	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	// Warnings
	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	// Errors
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", strings.ReplaceAll(err, "\n", "\n    "))
		}
		fmt.Fprintln(w)
	}

	// Final status
	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to convert")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
