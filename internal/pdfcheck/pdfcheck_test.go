package pdfcheck

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// buildPDF assembles a one-page document around the given page dictionary
// body, computing the xref offsets.
func buildPDF(pageDict string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		pageDict,
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestPageCounter_Verify(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.pdf")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	garbage := filepath.Join(dir, "garbage.pdf")
	if err := os.WriteFile(garbage, []byte("this is not a pdf document at all"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		path      string
		wantPages int
		wantErr   error
	}{
		{"one page", filepath.Join("testdata", "one-page.pdf"), 1, nil},
		{"three pages", filepath.Join("testdata", "three-pages.pdf"), 3, nil},
		{"missing", filepath.Join(dir, "missing.pdf"), 0, ErrMissing},
		{"empty", empty, 0, ErrEmpty},
		{"garbage", garbage, 0, ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pages, err := PageCounter{}.Verify(tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Verify() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if pages != tt.wantPages {
				t.Errorf("pages = %d, want %d", pages, tt.wantPages)
			}
		})
	}
}

func TestPageCounter_HandWrittenDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pageDict string
	}{
		{"minimal page", "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] >>"},
		{"malformed media box", "<< /Type /Page /Parent 2 0 R /MediaBox (A4) >>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "doc.pdf")
			if err := os.WriteFile(path, buildPDF(tt.pageDict), 0o600); err != nil {
				t.Fatal(err)
			}

			pages, err := PageCounter{}.Verify(path)
			if err != nil {
				t.Fatalf("Verify() error = %v, want a kept document", err)
			}
			if pages != 1 {
				t.Errorf("pages = %d, want 1", pages)
			}
		})
	}
}

func TestReadPageCount(t *testing.T) {
	t.Parallel()

	conf := *relaxedConfig()
	doc := buildPDF("<< /Type /Page /Parent 2 0 R /MediaBox (A4) >>")
	pages, err := readPageCount(bytes.NewReader(doc), &conf)
	if err != nil {
		t.Fatalf("readPageCount() error = %v", err)
	}
	if pages != 1 {
		t.Errorf("pages = %d, want 1", pages)
	}

	if _, err := readPageCount(bytes.NewReader([]byte("not a pdf")), &conf); err == nil {
		t.Error("readPageCount(garbage) should fail")
	}
}

// Not parallel: redirects the user config dir through the environment.
func TestPageCounter_LeavesConfigDirAlone(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("AppData", filepath.Join(home, "AppData"))

	if _, err := (PageCounter{}).Verify(filepath.Join("testdata", "one-page.pdf")); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	entries, err := os.ReadDir(home)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("verification wrote %v under the home directory", entries)
	}
}

func TestSkip_Verify(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := filepath.Join(dir, "a.pdf")
	if err := os.WriteFile(doc, []byte("anything"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := (Skip{}).Verify(doc); err != nil {
		t.Errorf("Verify(existing) = %v", err)
	}
	if _, err := (Skip{}).Verify(filepath.Join(dir, "none.pdf")); !errors.Is(err, ErrMissing) {
		t.Errorf("Verify(missing) = %v, want ErrMissing", err)
	}
}
