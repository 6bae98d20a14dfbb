package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
)

// Sentinel errors for tool failures.
var (
	ErrToolNotFound = errors.New("tool not found")
	ErrToolFailed   = errors.New("tool failed")
)

const (
	maxStderrLines = 6
	maxStderrBytes = 600
)

// stylePatterns mark renderer stderr that points at the stylesheet.
var stylePatterns = []string{
	"css",
	"stylesheet",
	"style sheet",
	"user-style-sheet",
	"font",
	"@import",
	"@page",
}

// ToolError describes an external tool that ran and failed, or could not be
// started for a reason other than being absent.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string // decoded tail of the error stream
	// StyleRelated is set when Stderr mentions stylesheet handling.
	StyleRelated bool
	Err          error // start failure, if any
}

func (e *ToolError) Error() string {
	var b strings.Builder
	if e.Err != nil {
		fmt.Fprintf(&b, "%s: %v", e.Tool, e.Err)
	} else {
		fmt.Fprintf(&b, "%s exited with status %d", e.Tool, e.ExitCode)
	}
	if e.Stderr != "" {
		b.WriteString(": ")
		b.WriteString(e.Stderr)
	}
	return b.String()
}

func (e *ToolError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrToolFailed
}

// Classifier maps Results to errors.
type Classifier struct {
	// Decode turns raw stderr into text. Nil replaces invalid UTF-8.
	Decode func([]byte) string
}

// Classify uses a Classifier with the default decoder.
func Classify(tool string, r Result) error {
	return Classifier{}.Classify(tool, r)
}

// Classify returns nil for a successful Result. Otherwise:
//   - a missing executable wraps ErrToolNotFound
//   - a cancelled context is returned as-is
//   - anything else is a *ToolError
func (c Classifier) Classify(tool string, r Result) error {
	if r.OK() {
		return nil
	}

	if r.Err != nil {
		if errors.Is(r.Err, exec.ErrNotFound) || errors.Is(r.Err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrToolNotFound, tool)
		}
		if errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded) {
			return r.Err
		}
	}

	stderr := tail(c.decode(r.Stderr))
	return &ToolError{
		Tool:         tool,
		ExitCode:     r.ExitCode,
		Stderr:       stderr,
		StyleRelated: IsStyleRelated(stderr),
		Err:          r.Err,
	}
}

func (c Classifier) decode(b []byte) string {
	if c.Decode != nil {
		return c.Decode(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}

// IsStyleRelated reports whether stderr text mentions stylesheet handling.
func IsStyleRelated(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, p := range stylePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// tail keeps the last non-empty lines of s, bounded in size.
func tail(s string) string {
	var lines []string
	for line := range strings.Lines(s) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > maxStderrLines {
		lines = lines[len(lines)-maxStderrLines:]
	}

	out := strings.Join(lines, "; ")
	if len(out) > maxStderrBytes {
		out = "..." + strings.ToValidUTF8(out[len(out)-maxStderrBytes:], "")
	}
	return out
}
