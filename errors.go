package batchpdf

import (
	"errors"
	"fmt"

	"github.com/alnah/batchpdf/internal/toolchain"
)

// Sentinel errors for library operations.
var (
	// ErrToolNotFound means a required executable is not on the search path.
	// It is fatal: no file is processed.
	ErrToolNotFound = toolchain.ErrToolNotFound

	// Per-file failure kinds.
	ErrEncoding   = errors.New("encoding error")
	ErrConversion = errors.New("conversion error")
	ErrRender     = errors.New("render error")

	// Startup errors.
	ErrTargetFolder  = errors.New("target folder is not a directory")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrStylesheet    = errors.New("stylesheet unavailable")
)

// kindNames maps failure kinds to the names shown in run summaries.
var kindNames = []struct {
	kind error
	name string
}{
	{ErrToolNotFound, "ToolNotFound"},
	{ErrEncoding, "EncodingError"},
	{ErrConversion, "ConversionError"},
	{ErrRender, "RenderError"},
}

// StageError is the failure of one file at one pipeline stage.
type StageError struct {
	Kind  error // ErrEncoding, ErrConversion or ErrRender
	Stage Stage // state the file could not reach
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Stage, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// KindName returns the summary name of err's failure kind
// ("EncodingError", "RenderError", ...), or "Error" when err has none.
func KindName(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		err = se.Kind
	}
	for _, k := range kindNames {
		if errors.Is(err, k.kind) {
			return k.name
		}
	}
	return "Error"
}
