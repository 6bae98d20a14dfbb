// Package rewrite makes local resource references in converter output absolute.
//
// The renderer loads the intermediate HTML from its own working directory, so
// relative image and link paths are turned into file:// URLs anchored at the
// source document's directory. Remote references are left alone.
package rewrite

import (
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/batchpdf/internal/fileutil"
	"github.com/alnah/batchpdf/internal/imaging"
)

// ArtifactDirName is the directory, beside the source file, that receives
// transcoded image copies.
const ArtifactDirName = ".__img_tmp__"

// keptPrefixes are reference prefixes never treated as local paths.
var keptPrefixes = []string{"#", "http://", "https://", "//", "data:", "mailto:", "file://", "about:"}

// Output is the result of a rewrite pass.
type Output struct {
	HTML      string
	Rewritten int      // references turned into file:// URLs
	Missing   []string // img sources that do not resolve to a local file
	Artifacts []string // transcoded copies and their directory, deepest first
}

// Rewriter rewrites resource references in structured markup.
type Rewriter struct {
	// Transcoder is optional; when nil, unsupported images are left as-is.
	Transcoder imaging.Transcoder
}

// New creates a Rewriter. A nil transcoder disables image transcoding.
func New(t imaging.Transcoder) *Rewriter {
	return &Rewriter{Transcoder: t}
}

// Rewrite converts local src, href and srcset references in htmlContent to
// absolute file:// URLs resolved against sourceDir.
// Empty and about:blank references are replaced by "#".
// If sourceDir is empty, only the sanitizing step is applied.
func (r *Rewriter) Rewrite(htmlContent, sourceDir string) (Output, error) {
	var absSourceDir string
	if sourceDir != "" {
		var err error
		absSourceDir, err = filepath.Abs(sourceDir)
		if err != nil {
			return Output{}, err
		}
	}

	doc, isFragment, err := parseHTML(htmlContent)
	if err != nil {
		return Output{}, err
	}

	w := &walker{rewriter: r, sourceDir: absSourceDir}
	w.visit(doc)

	rendered, err := renderHTML(doc, isFragment)
	if err != nil {
		return Output{}, err
	}

	out := Output{HTML: rendered, Rewritten: w.rewritten, Missing: w.missing}
	if len(w.artifacts) > 0 {
		out.Artifacts = append(w.artifacts, filepath.Join(absSourceDir, ArtifactDirName))
	}
	return out, nil
}

// walker carries per-document state through the DOM traversal.
type walker struct {
	rewriter  *Rewriter
	sourceDir string
	rewritten int
	missing   []string
	artifacts []string
}

func (w *walker) visit(n *html.Node) {
	if n.Type == html.ElementNode {
		for i := range n.Attr {
			switch strings.ToLower(n.Attr[i].Key) {
			case "src", "href":
				n.Attr[i].Val = w.rewriteURL(n, n.Attr[i].Val)
			case "srcset":
				n.Attr[i].Val = w.rewriteSrcset(n, n.Attr[i].Val)
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.visit(c)
	}
}

// rewriteURL returns the replacement for a single reference.
func (w *walker) rewriteURL(n *html.Node, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "about:blank") {
		return "#"
	}
	if w.sourceDir == "" || !IsLocal(trimmed) {
		return raw
	}

	local := normalizeLocalPath(trimmed)
	if local == "" {
		return raw
	}

	abs, ok := w.resolve(local)
	if !ok {
		if n.DataAtom == atom.Img {
			w.missing = append(w.missing, raw)
		}
		return raw
	}

	if n.DataAtom == atom.Img || n.DataAtom == atom.Source {
		abs = w.transcode(abs)
	}

	w.rewritten++
	return fileutil.ToFileURL(abs)
}

// rewriteSrcset rewrites every candidate URL of a srcset value,
// keeping width and density descriptors.
func (w *walker) rewriteSrcset(n *html.Node, value string) string {
	var parts []string
	for item := range strings.SplitSeq(value, ",") {
		fields := strings.Fields(item)
		if len(fields) == 0 {
			continue
		}
		fields[0] = w.rewriteURL(n, fields[0])
		parts = append(parts, strings.Join(fields, " "))
	}
	return strings.Join(parts, ", ")
}

// resolve maps a local reference to an existing absolute file.
func (w *walker) resolve(local string) (string, bool) {
	if fileutil.IsWindowsDrivePath(local) {
		return filepath.Clean(filepath.FromSlash(local)), true
	}

	candidate := filepath.Join(w.sourceDir, filepath.FromSlash(local))
	if fileutil.FileExists(candidate) {
		return candidate, true
	}

	// "/assets/a.png" written as site-root-relative usually means relative to
	// the notes folder, unless it really is an absolute path on disk.
	if strings.HasPrefix(local, "/") {
		if fileutil.FileExists(filepath.FromSlash(local)) {
			return filepath.Clean(filepath.FromSlash(local)), true
		}
		candidate = filepath.Join(w.sourceDir, filepath.FromSlash(strings.TrimLeft(local, "/")))
		if fileutil.FileExists(candidate) {
			return candidate, true
		}
	}

	return "", false
}

// transcode swaps abs for a compatible copy when the transcoder handles it.
// Failures keep the original path.
func (w *walker) transcode(abs string) string {
	t := w.rewriter.Transcoder
	if t == nil || !t.Supports(filepath.Ext(abs)) {
		return abs
	}

	dst, err := t.Transcode(abs, filepath.Join(w.sourceDir, ArtifactDirName))
	if err != nil {
		return abs
	}
	if !slices.Contains(w.artifacts, dst) {
		w.artifacts = append(w.artifacts, dst)
	}
	return dst
}

// IsLocal reports whether ref points at the local filesystem rather than a
// network resource, an in-document anchor or an inline payload.
func IsLocal(ref string) bool {
	lower := strings.ToLower(strings.TrimSpace(ref))
	if lower == "" {
		return false
	}
	for _, p := range keptPrefixes {
		if strings.HasPrefix(lower, p) {
			return false
		}
	}
	if fileutil.IsWindowsDrivePath(lower) {
		return true
	}
	// Any other scheme (tel:, ftp:, javascript:) is not a file reference.
	if u, err := url.Parse(lower); err == nil && u.Scheme != "" {
		return false
	}
	return true
}

// normalizeLocalPath drops query and fragment, decodes %xx escapes and
// converts backslashes to forward slashes.
func normalizeLocalPath(ref string) string {
	p := strings.ReplaceAll(ref, `\`, "/")
	if !fileutil.IsWindowsDrivePath(p) {
		if i := strings.IndexAny(p, "?#"); i >= 0 {
			p = p[:i]
		}
	}
	if decoded, err := url.PathUnescape(p); err == nil {
		p = decoded
	}
	return p
}

// parseHTML parses HTML content, handling both full documents and fragments.
// Returns the parsed node, whether it was a fragment, and any error.
func parseHTML(content string) (*html.Node, bool, error) {
	trimmed := strings.ToLower(strings.TrimSpace(content))

	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		doc, err := html.Parse(strings.NewReader(content))
		return doc, false, err
	}

	context := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), context)
	if err != nil {
		return nil, true, err
	}

	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}

	return container, true, nil
}

// renderHTML renders the document back to string.
// For fragments, only renders the children (avoids adding <html><body> wrapper).
func renderHTML(doc *html.Node, isFragment bool) (string, error) {
	var buf strings.Builder

	if isFragment {
		for c := doc.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", err
			}
		}
		return buf.String(), nil
	}

	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}
