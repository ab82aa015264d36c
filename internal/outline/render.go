package outline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RenderOutline writes one line per heading, indented by hierarchy level:
//
//	## PART 7 - ENACTMENT OF LAWS (page 3)
func RenderOutline(o Outline) string {
	var sb strings.Builder
	for _, h := range o.Headings {
		level, ok := o.Types.Level(h.Type)
		if !ok {
			level = len(o.Types)
		}
		fmt.Fprintf(&sb, "%s %s - %s (page %d)\n", strings.Repeat("#", level+1), h.Label, h.Subtitle, h.Page)
	}
	return sb.String()
}

// Markdown renders the tree with heading depth taken from tree position
// rather than heading type. Preamble nodes are not rendered.
func (t *Tree) Markdown() string {
	var sb strings.Builder
	t.Walk(func(id NodeID, depth int) bool {
		n := t.Node(id)
		if n.Preamble {
			return true
		}
		fmt.Fprintf(&sb, "%s %s (%s)\n\n", strings.Repeat("#", depth+1), n.Heading.Label, n.Heading.Subtitle)
		return true
	})
	return sb.String()
}

type jsonNode struct {
	Header    Heading    `json:"header"`
	PageRange [2]int     `json:"page_range"`
	Preamble  bool       `json:"preamble,omitempty"`
	Children  []jsonNode `json:"children"`
}

func (t *Tree) toJSON(id NodeID) jsonNode {
	n := t.Node(id)
	out := jsonNode{
		Header:    n.Heading,
		PageRange: [2]int{n.Start, n.End},
		Preamble:  n.Preamble,
		Children:  []jsonNode{},
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, t.toJSON(c))
	}
	return out
}

// MarshalJSON encodes the tree as nested nodes starting at the root.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.toJSON(0))
}
