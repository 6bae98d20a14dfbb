// Package charset normalizes source text to UTF-8 before it reaches the converter.
//
// Detection is deliberately simple: valid UTF-8 passes through, a UTF-16 byte
// order mark selects UTF-16, and anything else is tried against an ordered list
// of fallback encodings. The first fallback that decodes without replacement
// characters wins.
package charset

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Sentinel errors for encoding normalization.
var (
	ErrUndecodable     = errors.New("no candidate encoding decodes the content cleanly")
	ErrUnknownEncoding = errors.New("unknown encoding")
)

// UTF8 is the canonical name reported for content that needed no conversion.
const UTF8 = "utf-8"

// DefaultFallbacks lists the encodings tried when content is not UTF-8.
var DefaultFallbacks = []string{"gb18030"}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Document is source text normalized to UTF-8.
type Document struct {
	Text      []byte // UTF-8 content
	Encoding  string // detected source encoding name
	Converted bool   // true when Text differs from the raw input
}

// candidate pairs an encoding with the label it was requested under.
type candidate struct {
	name string
	enc  encoding.Encoding
}

// Normalizer detects non-UTF-8 input and re-encodes it.
// The zero value only accepts UTF-8 and UTF-16 with a byte order mark.
type Normalizer struct {
	fallbacks []candidate
}

// NewNormalizer builds a Normalizer from WHATWG encoding labels
// ("gb18030", "shift_jis", "windows-1252", ...). Labels are tried in order.
func NewNormalizer(labels ...string) (*Normalizer, error) {
	n := &Normalizer{}
	for _, label := range labels {
		enc, err := Lookup(label)
		if err != nil {
			return nil, err
		}
		n.fallbacks = append(n.fallbacks, candidate{name: canonicalName(label, enc), enc: enc})
	}
	return n, nil
}

// Lookup resolves an encoding label to an encoding.
func Lookup(label string) (encoding.Encoding, error) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty label", ErrUnknownEncoding)
	}
	enc, err := htmlindex.Get(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, label)
	}
	return enc, nil
}

// Fallbacks returns the names of the fallback encodings in try order.
func (n *Normalizer) Fallbacks() []string {
	names := make([]string, len(n.fallbacks))
	for i, c := range n.fallbacks {
		names[i] = c.name
	}
	return names
}

// Normalize returns raw as UTF-8.
// Returns ErrUndecodable if raw is not UTF-8 and no fallback decodes it cleanly.
func (n *Normalizer) Normalize(raw []byte) (Document, error) {
	if bytes.HasPrefix(raw, bomUTF8) {
		return Document{Text: raw[len(bomUTF8):], Encoding: UTF8, Converted: true}, nil
	}

	if bytes.HasPrefix(raw, bomUTF16LE) || bytes.HasPrefix(raw, bomUTF16BE) {
		enc := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
		text, ok := decodeClean(enc, raw)
		if !ok {
			return Document{}, fmt.Errorf("%w: invalid utf-16", ErrUndecodable)
		}
		return Document{Text: text, Encoding: "utf-16", Converted: true}, nil
	}

	if utf8.Valid(raw) {
		return Document{Text: raw, Encoding: UTF8}, nil
	}

	for _, c := range n.fallbacks {
		if text, ok := decodeClean(c.enc, raw); ok {
			return Document{Text: text, Encoding: c.name, Converted: true}, nil
		}
	}

	if len(n.fallbacks) == 0 {
		return Document{}, fmt.Errorf("%w: not utf-8 and no fallback configured", ErrUndecodable)
	}
	return Document{}, fmt.Errorf("%w: tried utf-8, %s", ErrUndecodable, strings.Join(n.Fallbacks(), ", "))
}

// DecodeLossy converts tool output to a readable string.
// Unlike Normalize it never fails: invalid sequences become U+FFFD.
func (n *Normalizer) DecodeLossy(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	for _, c := range n.fallbacks {
		if text, ok := decodeClean(c.enc, b); ok {
			return string(text)
		}
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

// decodeClean decodes b and reports whether the result is free of
// replacement characters.
func decodeClean(enc encoding.Encoding, b []byte) ([]byte, bool) {
	out, _, err := transform.Bytes(enc.NewDecoder(), b)
	if err != nil {
		return nil, false
	}
	if !utf8.Valid(out) || bytes.ContainsRune(out, utf8.RuneError) {
		return nil, false
	}
	return out, true
}

// canonicalName returns the WHATWG name of enc, or the label as given.
func canonicalName(label string, enc encoding.Encoding) string {
	if name, err := htmlindex.Name(enc); err == nil {
		return name
	}
	return strings.ToLower(strings.TrimSpace(label))
}
