package layout

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/docsplit/internal/tokenstream"
)

const defaultPageWidth = 612 // US letter, points

// PDFProducer renders PDF pages from their positioned glyphs.
type PDFProducer struct {
	Options Options
}

// glyph is one positioned text run as reported by the PDF content stream.
type glyph struct {
	font string
	size float64
	x, y float64
	w    float64
	s    string
}

func (p *PDFProducer) Parse(r io.Reader, filename string) (*Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docsplit-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	f, reader, err := pdflib.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var s stream
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if p.Options.PageDelimiters {
			s.page()
		} else {
			s.pages++
		}
		if page.V.IsNull() {
			continue
		}
		glyphs, err := pageGlyphs(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		p.Options.renderPage(&s, i-1, glyphs, pageWidth(page))
	}
	return s.document(baseName(filename)), nil
}

func pageGlyphs(page pdflib.Page) (glyphs []glyph, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read content stream: %v", r)
		}
	}()
	for _, t := range page.Content().Text {
		glyphs = append(glyphs, glyph{font: t.Font, size: t.FontSize, x: t.X, y: t.Y, w: t.W, s: t.S})
	}
	return glyphs, nil
}

func pageWidth(page pdflib.Page) float64 {
	for v := page.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			return box.Index(2).Float64() - box.Index(0).Float64()
		}
	}
	return defaultPageWidth
}

type pdfLine struct {
	glyphs []glyph
	x0, x1 float64
	y      float64
	size   float64
}

// groupLines splits content-stream glyphs into lines on baseline changes.
func groupLines(glyphs []glyph) []pdfLine {
	var lines []pdfLine
	for _, g := range glyphs {
		n := len(lines)
		if n == 0 || math.Abs(lines[n-1].y-g.y) > 1 {
			lines = append(lines, pdfLine{x0: g.x, x1: g.x + g.w, y: g.y, size: g.size})
			n++
		}
		l := &lines[n-1]
		l.glyphs = append(l.glyphs, g)
		l.x0 = math.Min(l.x0, g.x)
		l.x1 = math.Max(l.x1, g.x+g.w)
		l.size = math.Max(l.size, g.size)
	}
	return lines
}

// renderPage appends the tokens of one page: a LINE marker per line, then
// CENTER or indent units, then one span per run of glyphs sharing a font.
func (o Options) renderPage(s *stream, pageIdx int, glyphs []glyph, width float64) {
	lines := groupLines(glyphs)
	block := 0
	for li, l := range lines {
		if o.BlockDelimiters && (li == 0 || math.Abs(lines[li-1].y-l.y) > 2*l.size) {
			s.marker(tokenstream.Block, fmt.Sprintf("(%d, %d)", pageIdx, block))
			block++
		}
		s.marker(tokenstream.Line, fmt.Sprintf("(%d, %d, %d)", pageIdx, max(block-1, 0), li))
		if o.InferCentered && isCentered(l.x0, l.x1, width) {
			s.marker(tokenstream.Center, "")
		} else {
			for n := o.IndentLevel(l.x0); n > 0; n-- {
				s.marker(tokenstream.Indent, "")
			}
		}
		for _, sp := range spans(l.glyphs) {
			bold := strings.Contains(strings.ToLower(sp.font), "bold")
			s.span(o.SpanClass(sp.size), bold, norm.NFKC.String(sp.text))
		}
	}
}

type pdfSpan struct {
	font string
	size float64
	text string
}

// spans merges neighbouring glyphs with the same font and size, inserting
// a space where the horizontal gap is wider than a quarter em.
func spans(glyphs []glyph) []pdfSpan {
	var out []pdfSpan
	var sb strings.Builder
	var cur glyph
	var end float64
	flush := func() {
		if sb.Len() > 0 {
			out = append(out, pdfSpan{font: cur.font, size: cur.size, text: sb.String()})
		}
		sb.Reset()
	}
	for i, g := range glyphs {
		if i == 0 || g.font != cur.font || g.size != cur.size {
			flush()
			cur = g
		} else if g.x-end > 0.25*g.size && !strings.HasSuffix(sb.String(), " ") && !strings.HasPrefix(g.s, " ") {
			sb.WriteByte(' ')
		}
		sb.WriteString(g.s)
		end = g.x + g.w
	}
	flush()
	return out
}
