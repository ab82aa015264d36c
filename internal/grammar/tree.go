package grammar

import (
	"strconv"
	"strings"
)

// Node is a completed rule in a parse tree.
type Node struct {
	Rule     string
	Children []Child
}

// Child is exactly one of: a sub-node, a literal text fragment, or the
// name of a kept marker.
type Child struct {
	Node   *Node
	Text   string
	Marker string
}

// Child returns the first direct sub-node named rule.
func (n *Node) Child(rule string) *Node {
	for _, c := range n.Children {
		if c.Node != nil && c.Node.Rule == rule {
			return c.Node
		}
	}
	return nil
}

// Nodes returns the direct sub-nodes in order.
func (n *Node) Nodes() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Node != nil {
			out = append(out, c.Node)
		}
	}
	return out
}

// Text flattens the subtree. Adjacent literal fragments are concatenated as
// they are; a kept marker separates segments. Segments are trimmed and joined
// with a single space, empty ones are dropped.
func (n *Node) Text() string {
	var segs []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			segs = append(segs, s)
		}
		cur.Reset()
	}
	var walk func(*Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			switch {
			case c.Node != nil:
				walk(c.Node)
			case c.Marker != "":
				flush()
			default:
				cur.WriteString(c.Text)
			}
		}
	}
	walk(n)
	flush()
	return strings.Join(segs, " ")
}

func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb, 0)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	sb.WriteString(indent + n.Rule + "\n")
	for _, c := range n.Children {
		switch {
		case c.Node != nil:
			c.Node.write(sb, depth+1)
		case c.Marker != "":
			sb.WriteString(indent + "  <<" + c.Marker + ">>\n")
		default:
			sb.WriteString(indent + "  " + strconv.Quote(c.Text) + "\n")
		}
	}
}
