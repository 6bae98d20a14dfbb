// Package imaging converts raster images the renderer cannot display into PNG.
package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// ErrUnsupportedFormat indicates the source extension has no decoder.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Transcoder converts an image into a renderer-compatible copy.
// A nil Transcoder means the capability is unavailable.
type Transcoder interface {
	// Supports reports whether files with the given extension (".webp") need
	// and can get a compatible copy.
	Supports(ext string) bool
	// Transcode writes a compatible copy of src into dstDir and returns its path.
	Transcode(src, dstDir string) (string, error)
}

type decodeFunc func(f *os.File) (image.Image, error)

// PNGTranscoder re-encodes WebP, TIFF and BMP images as PNG.
type PNGTranscoder struct {
	decoders map[string]decodeFunc
}

// Compile-time interface check.
var _ Transcoder = (*PNGTranscoder)(nil)

// NewPNGTranscoder creates a PNGTranscoder with all built-in decoders.
func NewPNGTranscoder() *PNGTranscoder {
	return &PNGTranscoder{
		decoders: map[string]decodeFunc{
			".webp": func(f *os.File) (image.Image, error) { return webp.Decode(f) },
			".tif":  func(f *os.File) (image.Image, error) { return tiff.Decode(f) },
			".tiff": func(f *os.File) (image.Image, error) { return tiff.Decode(f) },
			".bmp":  func(f *os.File) (image.Image, error) { return bmp.Decode(f) },
		},
	}
}

// Resolve returns the transcoder to use for a run, or nil when disabled.
func Resolve(enabled bool) Transcoder {
	if !enabled {
		return nil
	}
	return NewPNGTranscoder()
}

// CopyName returns the file name of the PNG copy of src: its stem plus a
// short digest of its absolute path, so "a/pic.bmp" and "b/pic.bmp" (or
// "pic.webp" and "pic.bmp") get distinct copies in a shared directory.
func CopyName(src string) string {
	abs, err := filepath.Abs(src)
	if err != nil {
		abs = src
	}
	digest := uuid.NewSHA1(uuid.NameSpaceURL, []byte(filepath.ToSlash(abs))).String()[:8]
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return stem + "-" + digest + ".png"
}

// Supports reports whether ext is decoded by this transcoder.
func (t *PNGTranscoder) Supports(ext string) bool {
	_, ok := t.decoders[strings.ToLower(ext)]
	return ok
}

// Transcode decodes src and writes <dstDir>/CopyName(src).
// A copy newer than src is reused.
func (t *PNGTranscoder) Transcode(src, dstDir string) (string, error) {
	ext := strings.ToLower(filepath.Ext(src))
	decode, ok := t.decoders[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("reading source image: %w", err)
	}

	dst := filepath.Join(dstDir, CopyName(src))
	if dstInfo, err := os.Stat(dst); err == nil && !dstInfo.ModTime().Before(srcInfo.ModTime()) {
		return dst, nil
	}

	in, err := os.Open(src) // #nosec G304 -- referenced by the document being converted
	if err != nil {
		return "", fmt.Errorf("opening source image: %w", err)
	}
	defer in.Close()

	img, err := decode(in)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", filepath.Base(src), err)
	}

	if err := os.MkdirAll(dstDir, 0o750); err != nil {
		return "", fmt.Errorf("creating image directory: %w", err)
	}

	out, err := os.Create(dst) // #nosec G304 -- dst is inside the artifact directory
	if err != nil {
		return "", fmt.Errorf("creating png: %w", err)
	}

	if err := png.Encode(out, img); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("encoding png: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("closing png: %w", err)
	}

	return dst, nil
}
