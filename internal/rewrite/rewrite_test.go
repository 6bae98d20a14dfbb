package rewrite

// Notes:
// - Tests go through Rewrite and IsLocal only; parse/render error branches are
//   not reachable with the html package on string input.
// - Resolution tests use real files under t.TempDir because references are only
//   rewritten when the target exists.

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/alnah/batchpdf/internal/imaging"
)

// fakeTranscoder records calls and writes an empty copy.
type fakeTranscoder struct {
	fail  bool
	calls []string
}

func (f *fakeTranscoder) Supports(ext string) bool { return strings.EqualFold(ext, ".webp") }

func (f *fakeTranscoder) Transcode(src, dstDir string) (string, error) {
	f.calls = append(f.calls, src)
	if f.fail {
		return "", errors.New("decoder exploded")
	}
	if err := os.MkdirAll(dstDir, 0o750); err != nil {
		return "", err
	}
	dst := filepath.Join(dstDir, imaging.CopyName(src))
	return dst, os.WriteFile(dst, nil, 0o600)
}

// newTree creates files (relative slash paths) under a temp dir and returns it.
func newTree(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		p := filepath.Join(dir, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// fileURLPath extracts and decodes the path of the first file:// URL in s.
func fileURLPath(t *testing.T, s string) string {
	t.Helper()
	i := strings.Index(s, "file://")
	if i < 0 {
		t.Fatalf("no file:// URL in %q", s)
	}
	rest := s[i:]
	end := strings.IndexAny(rest, `"' `)
	if end > 0 {
		rest = rest[:end]
	}
	u, err := url.Parse(strings.ReplaceAll(rest, "&amp;", "&"))
	if err != nil {
		t.Fatalf("parsing %q: %v", rest, err)
	}
	p := u.Path
	if len(p) > 2 && p[0] == '/' && p[2] == ':' {
		p = p[1:] // "/C:/x" on windows
	}
	return filepath.FromSlash(p)
}

// writeBMP writes a 2x2 image of a single color.
func writeBMP(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := range 2 {
		for y := range 2 {
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := bmp.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// pixel decodes the PNG at path and returns its top-left color.
func pixel(t *testing.T, path string) color.RGBA {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding %s: %v", path, err)
	}
	return color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA)
}

// ---------------------------------------------------------------------------
// TestRewrite - Reference rewriting
// ---------------------------------------------------------------------------

func TestRewrite(t *testing.T) {
	t.Parallel()

	dir := newTree(t, "images/logo.png", "my img/a b.png", "other.md", "assets/root.png")

	tests := []struct {
		name         string
		html         string
		wantContains []string
		wantExcludes []string
		wantCount    int
	}{
		{
			name:         "relative image with dot slash",
			html:         `<img src="./images/logo.png">`,
			wantContains: []string{`src="file://`},
			wantCount:    1,
		},
		{
			name:         "relative image without dot slash",
			html:         `<img src="images/logo.png">`,
			wantContains: []string{`src="file://`, `/images/logo.png"`},
			wantCount:    1,
		},
		{
			name:         "percent encoded path",
			html:         `<img src="my%20img/a%20b.png">`,
			wantContains: []string{`src="file://`, `my%20img/a%20b.png`},
			wantCount:    1,
		},
		{
			name:         "backslash path",
			html:         `<img src="images\logo.png">`,
			wantContains: []string{`src="file://`},
			wantCount:    1,
		},
		{
			name:         "query and fragment dropped",
			html:         `<a href="other.md#intro">x</a>`,
			wantContains: []string{`href="file://`, `/other.md"`},
			wantCount:    1,
		},
		{
			name:         "root relative falls back to source dir",
			html:         `<img src="/assets/root.png">`,
			wantContains: []string{`src="file://`, `/assets/root.png"`},
			wantCount:    1,
		},
		{
			name:         "missing file left as-is",
			html:         `<img src="images/nope.png">`,
			wantContains: []string{`src="images/nope.png"`},
		},
		{
			name:         "http URL unchanged",
			html:         `<img src="https://example.com/logo.png">`,
			wantContains: []string{`src="https://example.com/logo.png"`},
		},
		{
			name:         "protocol relative unchanged",
			html:         `<img src="//cdn.example.com/a.png">`,
			wantContains: []string{`src="//cdn.example.com/a.png"`},
		},
		{
			name:         "data URI unchanged",
			html:         `<img src="data:image/png;base64,ABC">`,
			wantContains: []string{`src="data:image/png;base64,ABC"`},
		},
		{
			name:         "mailto unchanged",
			html:         `<a href="mailto:me@example.com">m</a>`,
			wantContains: []string{`href="mailto:me@example.com"`},
		},
		{
			name:         "anchor unchanged",
			html:         `<a href="#section">s</a>`,
			wantContains: []string{`href="#section"`},
		},
		{
			name:         "existing file URL unchanged",
			html:         `<img src="file:///already/abs.png">`,
			wantContains: []string{`src="file:///already/abs.png"`},
		},
		{
			name:         "empty href sanitized",
			html:         `<a href="">empty</a>`,
			wantContains: []string{`href="#"`},
		},
		{
			name:         "empty src sanitized",
			html:         `<img src="">`,
			wantContains: []string{`src="#"`},
		},
		{
			name:         "about blank sanitized",
			html:         `<iframe src="about:blank"></iframe>`,
			wantContains: []string{`src="#"`},
			wantExcludes: []string{"about:blank"},
		},
		{
			name:         "srcset candidates rewritten with descriptors",
			html:         `<img srcset="images/logo.png 1x, https://x.org/b.png 2x">`,
			wantContains: []string{`srcset="file://`, `logo.png 1x, https://x.org/b.png 2x"`},
			wantCount:    1,
		},
		{
			name:         "full document keeps doctype",
			html:         "<!DOCTYPE html><html><head></head><body><img src=\"images/logo.png\"></body></html>",
			wantContains: []string{"<!DOCTYPE html>", `src="file://`},
			wantCount:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := New(nil).Rewrite(tt.html, dir)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			for _, want := range tt.wantContains {
				if !strings.Contains(out.HTML, want) {
					t.Errorf("output missing %q\ngot: %s", want, out.HTML)
				}
			}
			for _, exclude := range tt.wantExcludes {
				if strings.Contains(out.HTML, exclude) {
					t.Errorf("output should not contain %q\ngot: %s", exclude, out.HTML)
				}
			}
			if out.Rewritten != tt.wantCount {
				t.Errorf("Rewritten = %d, want %d", out.Rewritten, tt.wantCount)
			}
		})
	}
}

func TestRewrite_ResolvesToSameFile(t *testing.T) {
	t.Parallel()

	root := newTree(t, "notes/images/diagram.png")
	sourceDir := filepath.Join(root, "notes")

	out, err := New(nil).Rewrite(`<p><img src="images/diagram.png"></p>`, sourceDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := fileURLPath(t, out.HTML)
	if !filepath.IsAbs(got) {
		t.Fatalf("rewritten path %q is not absolute", got)
	}

	wantInfo, err := os.Stat(filepath.Join(sourceDir, "images", "diagram.png"))
	if err != nil {
		t.Fatal(err)
	}
	gotInfo, err := os.Stat(got)
	if err != nil {
		t.Fatalf("rewritten locator does not resolve: %v", err)
	}
	if !os.SameFile(wantInfo, gotInfo) {
		t.Errorf("rewritten locator points at a different file")
	}
}

func TestRewrite_ParentDirectoryReference(t *testing.T) {
	t.Parallel()

	root := newTree(t, "shared/pic.png", "notes/a.md")

	out, err := New(nil).Rewrite(`<img src="../shared/pic.png">`, filepath.Join(root, "notes"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Rewritten != 1 || !strings.Contains(out.HTML, "/shared/pic.png") {
		t.Errorf("parent reference not rewritten: %s", out.HTML)
	}
}

func TestRewrite_MissingImagesReported(t *testing.T) {
	t.Parallel()

	dir := newTree(t)
	out, err := New(nil).Rewrite(`<img src="gone.png"><a href="gone.md">x</a>`, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Missing) != 1 || out.Missing[0] != "gone.png" {
		t.Errorf("Missing = %v, want [gone.png]", out.Missing)
	}
}

func TestRewrite_EmptySourceDirOnlySanitizes(t *testing.T) {
	t.Parallel()

	out, err := New(nil).Rewrite(`<img src="./logo.png"><a href="">x</a>`, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.HTML, `src="./logo.png"`) || !strings.Contains(out.HTML, `href="#"`) {
		t.Errorf("unexpected output: %s", out.HTML)
	}
}

// ---------------------------------------------------------------------------
// TestRewrite_Transcoding - Optional image capability
// ---------------------------------------------------------------------------

func TestRewrite_Transcoding(t *testing.T) {
	t.Parallel()

	t.Run("supported image replaced by copy", func(t *testing.T) {
		t.Parallel()

		dir := newTree(t, "img/photo.webp", "img/keep.png")
		tr := &fakeTranscoder{}

		out, err := New(tr).Rewrite(`<img src="img/photo.webp"><img src="img/photo.webp"><img src="img/keep.png">`, dir)
		if err != nil {
			t.Fatal(err)
		}

		copyName := imaging.CopyName(filepath.Join(dir, "img", "photo.webp"))
		if !strings.Contains(out.HTML, ArtifactDirName+"/"+copyName) {
			t.Errorf("webp reference not replaced: %s", out.HTML)
		}
		if !strings.Contains(out.HTML, "/img/keep.png") {
			t.Errorf("png reference should stay: %s", out.HTML)
		}
		wantArtifacts := []string{
			filepath.Join(dir, ArtifactDirName, copyName),
			filepath.Join(dir, ArtifactDirName),
		}
		if len(out.Artifacts) != len(wantArtifacts) {
			t.Fatalf("Artifacts = %v, want %v", out.Artifacts, wantArtifacts)
		}
		for i := range wantArtifacts {
			if out.Artifacts[i] != wantArtifacts[i] {
				t.Errorf("Artifacts[%d] = %q, want %q", i, out.Artifacts[i], wantArtifacts[i])
			}
		}
	})

	t.Run("same file name in two folders gets two copies", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeBMP(t, filepath.Join(dir, "a", "pic.bmp"), color.RGBA{R: 255, A: 255})
		writeBMP(t, filepath.Join(dir, "b", "pic.bmp"), color.RGBA{B: 255, A: 255})

		out, err := New(imaging.NewPNGTranscoder()).Rewrite(`<img src="a/pic.bmp"><img src="b/pic.bmp">`, dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(out.Artifacts) != 3 {
			t.Fatalf("Artifacts = %v, want two copies and their directory", out.Artifacts)
		}

		first, second := out.Artifacts[0], out.Artifacts[1]
		if first == second {
			t.Fatalf("both images map to %q", first)
		}
		if got := pixel(t, first); got.R != 255 || got.B != 0 {
			t.Errorf("copy of a/pic.bmp has color %v, want red", got)
		}
		if got := pixel(t, second); got.B != 255 || got.R != 0 {
			t.Errorf("copy of b/pic.bmp has color %v, want blue", got)
		}
	})

	t.Run("links are not transcoded", func(t *testing.T) {
		t.Parallel()

		dir := newTree(t, "photo.webp")
		tr := &fakeTranscoder{}
		if _, err := New(tr).Rewrite(`<a href="photo.webp">download</a>`, dir); err != nil {
			t.Fatal(err)
		}
		if len(tr.calls) != 0 {
			t.Errorf("transcoder called for a link: %v", tr.calls)
		}
	})

	t.Run("failure keeps original reference", func(t *testing.T) {
		t.Parallel()

		dir := newTree(t, "photo.webp")
		out, err := New(&fakeTranscoder{fail: true}).Rewrite(`<img src="photo.webp">`, dir)
		if err != nil {
			t.Fatalf("transcoder failure must not fail the rewrite: %v", err)
		}
		if !strings.Contains(out.HTML, "/photo.webp") || len(out.Artifacts) != 0 {
			t.Errorf("unexpected output %s, artifacts %v", out.HTML, out.Artifacts)
		}
	})

	t.Run("absent transcoder leaves webp", func(t *testing.T) {
		t.Parallel()

		dir := newTree(t, "photo.webp")
		out, err := New(nil).Rewrite(`<img src="photo.webp">`, dir)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out.HTML, "/photo.webp") {
			t.Errorf("unexpected output %s", out.HTML)
		}
	})
}

// ---------------------------------------------------------------------------
// TestIsLocal - Reference classification
// ---------------------------------------------------------------------------

func TestIsLocal(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"images/a.png":        true,
		"./a.png":             true,
		"../a.png":            true,
		"/abs/a.png":          true,
		`C:\docs\a.png`:       true,
		"C:/docs/a.png":       true,
		"":                    false,
		"#top":                false,
		"http://x.org/a.png":  false,
		"HTTPS://x.org/a.png": false,
		"//cdn/a.png":         false,
		"data:image/png,xx":   false,
		"mailto:a@b.c":        false,
		"file:///a.png":       false,
		"tel:+100":            false,
		"about:blank":         false,
	}

	for ref, want := range tests {
		if got := IsLocal(ref); got != want {
			t.Errorf("IsLocal(%q) = %v, want %v", ref, got, want)
		}
	}
}
