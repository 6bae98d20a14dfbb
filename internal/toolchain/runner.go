package toolchain

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/alnah/batchpdf/internal/process"
)

// waitDelay bounds how long Wait blocks on inherited pipes after a cancelled
// process has been killed.
const waitDelay = 2 * time.Second

// Invocation describes one external command.
type Invocation struct {
	Name string
	Args []string
	Dir  string // working directory; empty means the current one
}

// String renders the invocation as a shell-like command line for logs.
func (i Invocation) String() string {
	parts := make([]string, 0, len(i.Args)+1)
	parts = append(parts, i.Name)
	for _, a := range i.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Result is the outcome of running an Invocation.
// Err is set only when the process could not be started or was cancelled;
// a process that ran and exited non-zero has Err == nil and ExitCode != 0.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Err      error
}

// OK reports whether the process started and exited with status zero.
func (r Result) OK() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Runner executes invocations.
type Runner interface {
	Run(ctx context.Context, inv Invocation) Result
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct{}

// Compile-time interface check.
var _ Runner = ExecRunner{}

// Run starts the command in its own process group and waits for it.
// Cancelling ctx kills the whole group.
func (ExecRunner) Run(ctx context.Context, inv Invocation) Result {
	cmd := exec.CommandContext(ctx, inv.Name, inv.Args...)
	cmd.Dir = inv.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	process.Isolate(cmd)
	cmd.Cancel = func() error {
		process.KillProcessGroup(cmd.Process.Pid)
		return cmd.Process.Kill()
	}
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		res.Err = ctxErr
		return res
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
		res.Err = err
	}
	return res
}
