// Package toolchain invokes external command-line tools and classifies
// their failures.
//
// Every invocation produces a typed Result carrying the exit code and both
// output streams. Classify turns a Result into nil, an ErrToolNotFound
// wrapper, or a *ToolError, so callers never parse error strings themselves.
// Tests substitute FakeRunner for ExecRunner.
package toolchain
