package split

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFWriter writes each fragment of a plan as its own PDF.
type PDFWriter struct {
	Dir string
	Log *slog.Logger
}

// Write trims src once per non-empty entry into Dir/<ID>.pdf and returns
// the written paths in page order. src must have exactly plan.TotalPages
// pages.
func (w *PDFWriter) Write(ctx context.Context, src string, plan *Plan) ([]string, error) {
	n, err := PageCount(src)
	if err != nil {
		return nil, err
	}
	if n != plan.TotalPages {
		return nil, fmt.Errorf("plan covers %d pages but %s has %d", plan.TotalPages, filepath.Base(src), n)
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create split dir: %w", err)
	}
	log := w.Log
	if log == nil {
		log = slog.Default()
	}

	var paths []string
	for _, e := range plan.NonEmpty() {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		out := filepath.Join(w.Dir, fileName(e.ID)+".pdf")
		pages := []string{fmt.Sprintf("%d-%d", e.Start, e.End)}
		if err := api.TrimFile(src, out, pages, nil); err != nil {
			return paths, fmt.Errorf("write fragment %s (pages %d-%d): %w", e.ID, e.Start, e.End, err)
		}
		log.Debug("fragment written", "id", e.ID, "start", e.Start, "end", e.End, "path", out)
		paths = append(paths, out)
	}
	return paths, nil
}

// PageCount returns the number of pages in a PDF file.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("count pages of %s: %w", path, err)
	}
	return n, nil
}

func fileName(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, id)
}
