package main

import (
	"io"
	"os"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/google/uuid"

	"github.com/alnah/batchpdf"
	"github.com/alnah/batchpdf/internal/toolchain"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, process environment and external tool discovery.
type Environment struct {
	Now     func() time.Time
	Stdout  io.Writer
	Stderr  io.Writer
	Getenv  func(string) string
	Environ func() []string
	RunID   func() string

	// Runner executes external tools for doctor version checks.
	Runner toolchain.Runner
	// LookPath resolves an executable on the search path.
	LookPath func(name string) (string, error)
	// FindBrowser locates an installed Chrome or Chromium.
	FindBrowser func() (string, bool)

	// PipelineOptions are appended to the options of every convert run.
	PipelineOptions []batchpdf.Option
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:         time.Now,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Getenv:      os.Getenv,
		Environ:     os.Environ,
		RunID:       uuid.NewString,
		Runner:      toolchain.ExecRunner{},
		LookPath:    toolchain.Lookup,
		FindBrowser: launcher.LookPath,
	}
}
