package tokenstream

import (
	"strings"
)

// Kind distinguishes structural markers from literal text.
type Kind uint8

const (
	Marker Kind = iota + 1
	Text
)

func (k Kind) String() string {
	switch k {
	case Marker:
		return "marker"
	case Text:
		return "text"
	default:
		return "invalid"
	}
}

// Marker names understood by the grammars.
const (
	Page   = "PAGE"
	Line   = "LINE"
	Indent = "INDENT"
	Block  = "BLOCK"
	Center = "CENTER"
)

// SpanSize is the coarse font-size class of a text span.
type SpanSize string

const (
	SizeS  SpanSize = "S"
	SizeM  SpanSize = "M"
	SizeL  SpanSize = "L"
	SizeXL SpanSize = "XL"
)

// SpanSizes lists the size classes from smallest to largest.
var SpanSizes = []SpanSize{SizeS, SizeM, SizeL, SizeXL}

// Token is one element of a rendered document stream. Markers carry a Name
// (and an optional diagnostic Detail); Text tokens carry literal content.
// Start and End are byte offsets of the token's line in the persisted form.
type Token struct {
	Kind   Kind
	Name   string
	Detail string
	Text   string
	Start  int
	End    int
}

// NewMarker returns a marker token.
func NewMarker(name, detail string) Token {
	return Token{Kind: Marker, Name: name, Detail: detail}
}

// NewText returns a text token.
func NewText(s string) Token {
	return Token{Kind: Text, Text: s}
}

// IsMarker reports whether t is a marker with the given name.
func (t Token) IsMarker(name string) bool {
	return t.Kind == Marker && t.Name == name
}

func (t Token) String() string {
	if t.Kind == Marker {
		if t.Detail != "" {
			return markerOpen + t.Name + " " + t.Detail + markerClose
		}
		return markerOpen + t.Name + markerClose
	}
	return t.Text
}

// SpanMarker returns the marker name for a span of the given size class.
func SpanMarker(size SpanSize, bold bool) string {
	name := "SPAN_" + string(size)
	if bold {
		name += "_B"
	}
	return name
}

// IsMarkerName reports whether name is part of the marker vocabulary.
func IsMarkerName(name string) bool {
	switch name {
	case Page, Line, Indent, Block, Center:
		return true
	}
	rest, ok := strings.CutPrefix(name, "SPAN_")
	if !ok {
		return false
	}
	rest = strings.TrimSuffix(rest, "_B")
	for _, s := range SpanSizes {
		if rest == string(s) {
			return true
		}
	}
	return false
}

// Equal compares two streams by kind, name, detail, text and order.
// Offsets are ignored.
func Equal(a, b []Token) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind || a[i].Name != b[i].Name ||
			a[i].Detail != b[i].Detail || a[i].Text != b[i].Text {
			return false
		}
	}
	return true
}

// CountPages returns the number of PAGE markers in the stream.
func CountPages(tokens []Token) int {
	n := 0
	for _, t := range tokens {
		if t.IsMarker(Page) {
			n++
		}
	}
	return n
}

// PageTexts joins the text of each page, one entry per PAGE marker. Text
// before the first PAGE marker is attributed to the first page. Lines are
// separated by newlines and spans on the same line by a space.
func PageTexts(tokens []Token) []string {
	var pages []string
	var cur strings.Builder
	started := false
	lineStart := true
	flush := func() {
		pages = append(pages, strings.TrimSpace(cur.String()))
		cur.Reset()
	}
	for _, t := range tokens {
		switch {
		case t.IsMarker(Page):
			if started || cur.Len() > 0 {
				flush()
			}
			started = true
			lineStart = true
		case t.IsMarker(Line):
			if cur.Len() > 0 {
				cur.WriteByte('\n')
			}
			lineStart = true
		case t.Kind == Text:
			if !lineStart {
				cur.WriteByte(' ')
			}
			cur.WriteString(t.Text)
			lineStart = false
		}
	}
	if started || cur.Len() > 0 {
		flush()
	}
	return pages
}
