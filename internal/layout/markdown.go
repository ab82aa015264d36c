package layout

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/docsplit/internal/tokenstream"
)

// MarkdownProducer renders markdown blocks as lines. Headings map to span
// classes like DOCX heading styles, list and quote nesting indents, and a
// thematic break (---) starts a new page.
type MarkdownProducer struct{}

func (p *MarkdownProducer) Parse(r io.Reader, filename string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var s stream
	s.page()
	line := 0
	emit := func(size tokenstream.SpanSize, bold bool, depth int, t string) {
		if t == "" {
			return
		}
		s.marker(tokenstream.Line, fmt.Sprintf("(%d, 0, %d)", s.pages-1, line))
		line++
		for i := 0; i < depth; i++ {
			s.marker(tokenstream.Indent, "")
		}
		s.span(size, bold, t)
	}

	var walk func(n ast.Node, depth int)
	walk = func(n ast.Node, depth int) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.Heading:
				size, bold := headingClass(node.Level)
				emit(size, bold, depth, inlineText(node, src))
			case *ast.ThematicBreak:
				if line > 0 {
					s.page()
				}
			case *ast.List, *ast.Blockquote:
				walk(node, depth+1)
			case *ast.ListItem:
				walk(node, depth)
			case *ast.FencedCodeBlock, *ast.CodeBlock:
				for _, l := range strings.Split(blockLines(node, src), "\n") {
					emit(tokenstream.SizeM, false, depth, l)
				}
			default:
				emit(tokenstream.SizeM, false, depth, inlineText(node, src))
			}
		}
	}
	walk(doc, 0)

	title := baseName(filename)
	if h, ok := doc.FirstChild().(*ast.Heading); ok && h.Level == 1 {
		title = inlineText(h, src)
	}
	return s.document(title), nil
}

// inlineText flattens a block's inline children into one line.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					buf.WriteByte(' ')
				}
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}

func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return strings.TrimRight(buf.String(), "\n")
}
