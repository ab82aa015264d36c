package layout

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/docsplit/internal/tokenstream"
)

// HTMLProducer renders HTML block elements as lines. Headings and bold
// blocks get bold span classes, nested blockquotes and lists indent, and
// CSS page breaks start new pages.
type HTMLProducer struct{}

func (p *HTMLProducer) Parse(r io.Reader, filename string) (*Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	title := baseName(filename)
	if t := findTitle(doc); t != "" {
		title = t
	}

	var s stream
	s.page()
	line := 0
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "head":
				return
			}
			if pageBreak(n) && line > 0 {
				s.page()
			}
			if size, bold, ok := blockClass(n); ok {
				text := textContent(n)
				if text == "" {
					return
				}
				s.marker(tokenstream.Line, fmt.Sprintf("(%d, 0, %d)", s.pages-1, line))
				line++
				if centered(n) {
					s.marker(tokenstream.Center, "")
				} else {
					for i := 0; i < depth; i++ {
						s.marker(tokenstream.Indent, "")
					}
				}
				s.span(size, bold || onlyBold(n), text)
				return
			}
			switch n.Data {
			case "blockquote", "ul", "ol", "dd":
				depth++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, depth)
		}
	}
	if body := findBody(doc); body != nil {
		walk(body, 0)
	} else {
		walk(doc, 0)
	}
	return s.document(title), nil
}

// blockClass maps line-producing elements to a span class.
func blockClass(n *html.Node) (tokenstream.SpanSize, bool, bool) {
	switch n.Data {
	case "h1":
		return tokenstream.SizeXL, true, true
	case "h2":
		return tokenstream.SizeL, true, true
	case "h3", "h4", "h5", "h6":
		return tokenstream.SizeM, true, true
	case "p", "li", "td", "th", "dt", "dd", "pre", "caption":
		return tokenstream.SizeM, false, true
	}
	return "", false, false
}

func styleOf(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key == "style" {
			return strings.ToLower(strings.ReplaceAll(a.Val, " ", ""))
		}
	}
	return ""
}

func pageBreak(n *html.Node) bool {
	st := styleOf(n)
	return strings.Contains(st, "page-break-before:always") || strings.Contains(st, "break-before:page")
}

func centered(n *html.Node) bool {
	if strings.Contains(styleOf(n), "text-align:center") {
		return true
	}
	for _, a := range n.Attr {
		if a.Key == "align" && strings.EqualFold(a.Val, "center") {
			return true
		}
	}
	return false
}

// onlyBold reports whether all of the element's text sits inside b/strong.
func onlyBold(n *html.Node) bool {
	found := false
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) == "":
		case c.Type == html.ElementNode && (c.Data == "b" || c.Data == "strong"):
			found = true
		default:
			return false
		}
	}
	return found
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
