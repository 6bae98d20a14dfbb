// Package yamlutil decodes and encodes the YAML config file.
// It is the only package that imports the YAML library.
package yamlutil

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
)

// MaxInputSize limits YAML input to prevent memory exhaustion (default 1MB).
var MaxInputSize = 1 << 20

var (
	ErrNilData        = errors.New("yamlutil: nil or empty data")
	ErrNilDestination = errors.New("yamlutil: nil destination pointer")
	ErrInputTooLarge  = errors.New("yamlutil: input exceeds maximum size")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// prepare validates input and strips a leading UTF-8 byte order mark,
// which editors on Windows like to add.
func prepare(data []byte, v any) ([]byte, error) {
	if len(data) > MaxInputSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNilData
	}
	if v == nil {
		return nil, ErrNilDestination
	}
	return data, nil
}

// Unmarshal decodes data into v, ignoring unknown fields.
func Unmarshal(data []byte, v any) error {
	data, err := prepare(data, v)
	if err != nil {
		return err
	}
	return wrap(yaml.Unmarshal(data, v))
}

// UnmarshalStrict decodes data into v and rejects unknown fields.
// Errors name the offending line and column.
func UnmarshalStrict(data []byte, v any) error {
	data, err := prepare(data, v)
	if err != nil {
		return err
	}
	return wrap(yaml.UnmarshalWithOptions(data, v, yaml.Strict()))
}

// Marshal encodes v with two-space indentation and indented sequences,
// the layout used for generated config files.
func Marshal(v any) ([]byte, error) {
	result, err := yaml.MarshalWithOptions(v, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return nil, fmt.Errorf("yamlutil: %w", err)
	}
	return result, nil
}

// DecodeError reports a syntax or field error on a single line.
type DecodeError struct {
	Msg string // "[3:5] unknown field \"keepHtml\"" style location and reason
	Err error
}

func (e *DecodeError) Error() string { return "yamlutil: " + e.Msg }
func (e *DecodeError) Unwrap() error { return e.Err }

// wrap flattens the library's multi-line error into one line.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	msg := yaml.FormatError(err, false, false)
	return &DecodeError{Msg: strings.Join(strings.Fields(msg), " "), Err: err}
}
