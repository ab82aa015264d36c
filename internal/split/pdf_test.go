package split

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/docsplit/internal/outline"
)

// writeBlankPDF writes a PDF of n empty letter-size pages.
func writeBlankPDF(t *testing.T, n int) string {
	t.Helper()
	kids := make([]string, n)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
	}
	for i := 0; i < n; i++ {
		objs = append(objs, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)

	path := filepath.Join(t.TempDir(), "source.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

func TestPageCount(t *testing.T) {
	n, err := PageCount(writeBlankPDF(t, 4))
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 pages, got %d", n)
	}
	if _, err := PageCount(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestPDFWriter_Write(t *testing.T) {
	tree := build(t, 6,
		outline.Heading{Type: "title", Label: "TITLE 2", Page: 1},
		outline.Heading{Type: "article", Label: "ARTICLE 1", Page: 2},
		outline.Heading{Type: "article", Label: "ARTICLE 2", Page: 4},
	)
	plan, err := Planner{MaxPages: 2}.Plan(tree)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	tests := []struct {
		name    string
		pages   int
		wantErr bool
	}{
		{"matching page count", 6, false},
		{"source shorter than plan", 4, true},
		{"source longer than plan", 9, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &PDFWriter{Dir: filepath.Join(t.TempDir(), "out")}
			paths, err := w.Write(context.Background(), writeBlankPDF(t, tt.pages), plan)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected a page count error, wrote %v", paths)
				}
				if _, statErr := os.Stat(w.Dir); !os.IsNotExist(statErr) {
					t.Errorf("expected nothing written on mismatch")
				}
				return
			}
			if err != nil {
				t.Fatalf("write: %v", err)
			}
			entries := plan.NonEmpty()
			if len(paths) != len(entries) {
				t.Fatalf("expected %d fragments, got %v", len(entries), paths)
			}
			for i, e := range entries {
				n, err := PageCount(paths[i])
				if err != nil {
					t.Fatalf("count %s: %v", paths[i], err)
				}
				if want := e.End - e.Start + 1; n != want {
					t.Errorf("%s: expected %d pages, got %d", e.ID, want, n)
				}
			}
		})
	}
}
