package toolchain

import (
	"context"
	"sync"
)

// FakeRunner is a scripted Runner for tests.
// Script decides the Result of each call; a nil Script succeeds with no output.
type FakeRunner struct {
	Script func(inv Invocation) Result

	mu    sync.Mutex
	calls []Invocation
}

// Compile-time interface check.
var _ Runner = (*FakeRunner)(nil)

// Run records inv and returns the scripted Result.
func (f *FakeRunner) Run(ctx context.Context, inv Invocation) Result {
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1, Err: err}
	}
	if f.Script == nil {
		return Result{}
	}
	return f.Script(inv)
}

// Calls returns a copy of the recorded invocations.
func (f *FakeRunner) Calls() []Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Invocation(nil), f.calls...)
}
