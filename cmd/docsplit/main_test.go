package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var titleTwo = strings.Join([]string{
	"<<PAGE 0>>",
	"<<LINE (0, 0, 0)>>", "<<SPAN_L>>", "TITLE 2",
	"<<LINE (0, 0, 1)>>", "<<SPAN_M>>", "GENERAL ASSEMBLY",
	"<<LINE (0, 1, 0)>>", "<<SPAN_M>>", "Colorado Revised Statutes 2024",
	"<<LINE (0, 1, 1)>>", "<<INDENT>>", "<<SPAN_M>>", "Page 1 of 5",
	"<<LINE (0, 1, 2)>>", "<<SPAN_M>>", "Uncertified Printout",
	"<<PAGE 1>>",
	"<<LINE (1, 0, 0)>>", "<<SPAN_M_B>>", "ARTICLE 1",
	"<<LINE (1, 0, 1)>>", "<<SPAN_M>>", "General Assembly",
	"<<PAGE 2>>",
	"<<LINE (2, 0, 0)>>", "<<SPAN_M>>", "body text",
	"<<PAGE 3>>",
	"<<LINE (3, 0, 0)>>", "<<SPAN_M_B>>", "ARTICLE 2",
	"<<LINE (3, 0, 1)>>", "<<SPAN_M>>", "Legislative Services",
	"<<PAGE 4>>",
	"<<LINE (4, 0, 0)>>", "<<SPAN_M>>", "more body text",
}, "\n") + "\n"

// run executes the root command with fresh flag state.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, familiesDir, logLevel = "", "", "error"
	splitOpts.outlinePath, splitOpts.out, splitOpts.maxPages, splitOpts.workers = "", "", 0, 0
	splitOpts.extractor, outlineOpts.extractor = "grammar", "grammar"
	outlineOpts.format, outlineOpts.plan = "markdown", false
	tokensOpts.clean = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTokens(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crs-title-02.tokens")
	if err := os.WriteFile(path, []byte(titleTwo), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFamilies(t *testing.T) {
	out, err := run(t, "families")
	if err != nil {
		t.Fatalf("families: %v", err)
	}
	for _, name := range []string{"colorado", "wyoming", "title > article > part > section"} {
		if !strings.Contains(out, name) {
			t.Errorf("expected %q in output:\n%s", name, out)
		}
	}
}

func TestSplit_WritesArtifacts(t *testing.T) {
	src := writeTokens(t)
	outDir := t.TempDir()
	out, err := run(t, "split", "--family", "colorado", "-n", "2", "-o", outDir, src)
	if err != nil {
		t.Fatalf("split: %v\n%s", err, out)
	}
	for _, id := range []string{"TITLE_2-ARTICLE_1", "TITLE_2-ARTICLE_2", "Split Complete"} {
		if !strings.Contains(out, id) {
			t.Errorf("expected %q in output:\n%s", id, out)
		}
	}
	md, err := os.ReadFile(filepath.Join(outDir, "crs-title-02", "crs-title-02.md"))
	if err != nil {
		t.Fatalf("read outline artifact: %v", err)
	}
	if !strings.HasPrefix(string(md), "# TITLE 2 - GENERAL ASSEMBLY (page 1)") {
		t.Errorf("unexpected outline artifact:\n%s", md)
	}
}

func TestSplit_Errors(t *testing.T) {
	src := writeTokens(t)
	tests := []struct {
		name string
		args []string
	}{
		{"unknown family", []string{"split", "--family", "texas", src}},
		{"unsupported file", []string{"split", "--family", "colorado", "notes.csv"}},
		{"outline with two files", []string{"split", "--family", "colorado", "--outline", "x.md", src, src}},
		{"unknown extractor", []string{"split", "--family", "colorado", "--extractor", "ocr", src}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSplit_FailedDocumentFailsRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tokens")
	if err := os.WriteFile(path, []byte("<<PAGE 0>>\n<<LINE>>\n<<SPAN_M>>\nno headings here\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "split", "--family", "colorado", "-o", t.TempDir(), path)
	if err == nil {
		t.Fatal("expected error for a document without headings")
	}
	if !strings.Contains(out, "FAILED") {
		t.Errorf("expected failure in summary:\n%s", out)
	}
}

func TestOutline_Markdown(t *testing.T) {
	out, err := run(t, "outline", "--family", "colorado", writeTokens(t))
	if err != nil {
		t.Fatalf("outline: %v", err)
	}
	want := "# TITLE 2 - GENERAL ASSEMBLY (page 1)\n## ARTICLE 1 - General Assembly (page 2)\n## ARTICLE 2 - Legislative Services (page 4)\n"
	if out != want {
		t.Errorf("unexpected outline:\nwant:\n%s\ngot:\n%s", want, out)
	}
}

func TestTokens_Clean(t *testing.T) {
	out, err := run(t, "tokens", "--family", "colorado", "--clean", writeTokens(t))
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	if strings.Contains(out, "Uncertified Printout") {
		t.Errorf("expected footer to be removed:\n%s", out)
	}
	if !strings.Contains(out, "ARTICLE 2") {
		t.Errorf("expected body tokens to remain:\n%s", out)
	}
}
