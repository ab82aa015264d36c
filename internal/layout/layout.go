// Package layout renders source documents into token streams.
package layout

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsplit/internal/tokenstream"
)

// Document is a rendered source document.
type Document struct {
	Title  string
	Pages  int
	Tokens []tokenstream.Token
}

// Producer converts raw document bytes into a token stream.
type Producer interface {
	Parse(r io.Reader, filename string) (*Document, error)
}

// Options tunes how positioned text is classified. Sizes are in points.
type Options struct {
	LeftMargin float64 `yaml:"left_margin" json:"left_margin"`
	IndentSize float64 `yaml:"indent_size" json:"indent_size"`
	// FontSizes are the reference sizes of the S, M, L and XL span classes;
	// a span gets the class with the nearest reference size. Use +Inf to
	// disable a class.
	FontSizes       [4]float64 `yaml:"font_sizes" json:"font_sizes"`
	InferCentered   bool       `yaml:"infer_centered" json:"infer_centered"`
	PageDelimiters  bool       `yaml:"page_delimiters" json:"page_delimiters"`
	BlockDelimiters bool       `yaml:"block_delimiters" json:"block_delimiters"`
}

// DefaultOptions suit US letter statute compilations set in 12pt type.
func DefaultOptions() Options {
	return Options{
		LeftMargin:     72,
		IndentSize:     36,
		FontSizes:      [4]float64{math.Inf(1), 12, 20, math.Inf(1)},
		PageDelimiters: true,
	}
}

// SupportedExtensions lists file extensions that can be rendered.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".docx":     true,
	".html":     true,
	".htm":      true,
	".md":       true,
	".markdown": true,
	".tokens":   true,
	".txt":      true,
}

// ForFile returns the producer for a filename.
func ForFile(filename string, opts Options) (Producer, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFProducer{Options: opts}, nil
	case ".docx":
		return &DOCXProducer{}, nil
	case ".html", ".htm":
		return &HTMLProducer{}, nil
	case ".md", ".markdown":
		return &MarkdownProducer{}, nil
	case ".tokens", ".txt":
		return &TokenFileProducer{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// SpanClass picks the size class whose reference size is nearest to size.
func (o Options) SpanClass(size float64) tokenstream.SpanSize {
	best := 0
	bestDist := math.Inf(1)
	for i, ref := range o.FontSizes {
		if d := math.Abs(size - ref); d < bestDist {
			best, bestDist = i, d
		}
	}
	return tokenstream.SpanSizes[best]
}

// IndentLevel converts a line's left edge into indent units.
func (o Options) IndentLevel(x float64) int {
	if o.IndentSize <= 0 {
		return 0
	}
	n := int(math.Round((x - o.LeftMargin) / o.IndentSize))
	if n < 0 {
		return 0
	}
	return n
}

// isCentered reports whether a line spanning [x0,x1] is centered on a page
// of the given width: narrower than 60% of the page and within 5% of the
// middle.
func isCentered(x0, x1, pageWidth float64) bool {
	if pageWidth <= 0 || x1-x0 >= 0.6*pageWidth {
		return false
	}
	return math.Abs((x0+x1)/2-pageWidth/2) < 0.05*pageWidth
}

func baseName(filename string) string {
	return strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
}

// stream accumulates tokens with the conventions shared by all producers.
type stream struct {
	tokens []tokenstream.Token
	pages  int
}

func (s *stream) page() {
	s.tokens = append(s.tokens, tokenstream.NewMarker(tokenstream.Page, fmt.Sprint(s.pages)))
	s.pages++
}

func (s *stream) marker(name, detail string) {
	s.tokens = append(s.tokens, tokenstream.NewMarker(name, detail))
}

// span appends a span marker and its text; blank text is skipped entirely.
func (s *stream) span(size tokenstream.SpanSize, bold bool, text string) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return
	}
	s.marker(tokenstream.SpanMarker(size, bold), "")
	s.tokens = append(s.tokens, tokenstream.NewText(text))
}

func (s *stream) document(title string) *Document {
	pages := s.pages
	if pages == 0 {
		pages = 1
	}
	return &Document{Title: title, Pages: pages, Tokens: s.tokens}
}
