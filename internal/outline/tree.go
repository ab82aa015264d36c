package outline

import (
	"fmt"
)

// NodeID indexes Tree.Nodes.
type NodeID int

// NoParent is the parent of the root.
const NoParent NodeID = -1

// Node is a heading with the inclusive page range it governs. A range with
// End == Start-1 is empty: the next heading started on the same page.
type Node struct {
	Heading  Heading
	Level    int
	Start    int
	End      int
	Parent   NodeID
	Children []NodeID
	// Preamble nodes cover the pages of a heading that precede its first
	// sub-heading. They repeat the parent's heading.
	Preamble bool
}

// Pages returns the number of pages in the node's range.
func (n *Node) Pages() int {
	return n.End - n.Start + 1
}

// Empty reports whether the range covers no page.
func (n *Node) Empty() bool { return n.End < n.Start }

// Tree is an arena of nodes; node 0 is the root. Children are owned through
// the Children lists, parents are plain indices.
type Tree struct {
	Types      TypeList
	TotalPages int
	Nodes      []Node
}

// BuildOptions controls optional input fix-ups.
type BuildOptions struct {
	// NormalizeZeroPage shifts all pages by one when the first heading is on
	// page 0.
	NormalizeZeroPage bool
	// OmitPreamble leaves a heading's pages before its first sub-heading
	// uncovered by its children.
	OmitPreamble bool
}

// Build nests the headings of o by hierarchy level. The first heading
// becomes the root and spans the whole document.
func Build(o Outline, totalPages int, opts BuildOptions) (*Tree, error) {
	if len(o.Headings) == 0 {
		return nil, ErrEmptyOutline
	}
	if err := o.Types.Validate(); err != nil {
		return nil, err
	}
	headings := append([]Heading(nil), o.Headings...)
	if opts.NormalizeZeroPage {
		norm := Outline{Types: o.Types, Headings: headings}
		norm.NormalizePages()
	}
	if err := (Outline{Types: o.Types, Headings: headings}).CheckTypes(); err != nil {
		return nil, err
	}
	if headings[0].Page != 1 {
		return nil, &FirstPageError{Page: headings[0].Page}
	}
	if totalPages < 1 {
		return nil, fmt.Errorf("total pages must be positive, got %d", totalPages)
	}
	prev := 1
	for i, h := range headings {
		if h.Page < prev || h.Page > totalPages {
			return nil, &PageOrderError{Heading: h, Index: i, Prev: prev, Total: totalPages}
		}
		prev = h.Page
	}

	t := &Tree{Types: o.Types, TotalPages: totalPages}
	t.Nodes = make([]Node, 0, len(headings))
	rootLevel, _ := o.Types.Level(headings[0].Type)
	t.Nodes = append(t.Nodes, Node{
		Heading: headings[0],
		Level:   rootLevel,
		Start:   1,
		End:     totalPages,
		Parent:  NoParent,
	})

	stack := []NodeID{0}
	for i, h := range headings[1:] {
		level, _ := o.Types.Level(h.Type)
		for t.Nodes[stack[len(stack)-1]].Level >= level {
			top := stack[len(stack)-1]
			t.Nodes[top].End = h.Page - 1
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return nil, &HierarchyError{Heading: h, Index: i + 1}
			}
		}
		parent := stack[len(stack)-1]
		id := NodeID(len(t.Nodes))
		t.Nodes = append(t.Nodes, Node{
			Heading: h,
			Level:   level,
			Start:   h.Page,
			End:     totalPages,
			Parent:  parent,
		})
		t.Nodes[parent].Children = append(t.Nodes[parent].Children, id)
		stack = append(stack, id)
	}

	if !opts.OmitPreamble {
		t.addPreambles()
	}
	return t, nil
}

// addPreambles gives every heading whose first sub-heading starts on a
// later page a leading child for the pages in between.
func (t *Tree) addPreambles() {
	n := len(t.Nodes)
	for i := 0; i < n; i++ {
		node := &t.Nodes[i]
		if len(node.Children) == 0 {
			continue
		}
		first := t.Nodes[node.Children[0]]
		if first.Start <= node.Start {
			continue
		}
		id := NodeID(len(t.Nodes))
		pre := Node{
			Heading:  node.Heading,
			Level:    node.Level,
			Start:    node.Start,
			End:      first.Start - 1,
			Parent:   NodeID(i),
			Preamble: true,
		}
		t.Nodes = append(t.Nodes, pre)
		node = &t.Nodes[i]
		node.Children = append([]NodeID{id}, node.Children...)
	}
}

// Root returns the root node.
func (t *Tree) Root() *Node { return &t.Nodes[0] }

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) *Node { return &t.Nodes[id] }

// Path returns the ids from the root down to id.
func (t *Tree) Path(id NodeID) []NodeID {
	var path []NodeID
	for cur := id; cur != NoParent; cur = t.Nodes[cur].Parent {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Walk visits nodes depth-first in document order. Returning false from fn
// skips the node's children.
func (t *Tree) Walk(fn func(id NodeID, depth int) bool) {
	var visit func(NodeID, int)
	visit = func(id NodeID, depth int) {
		if !fn(id, depth) {
			return
		}
		for _, c := range t.Nodes[id].Children {
			visit(c, depth+1)
		}
	}
	visit(0, 0)
}

// Verify checks that the root covers the document and every internal
// node's children partition its range in ascending order.
func (t *Tree) Verify() error {
	root := t.Root()
	if root.Start != 1 || root.End != t.TotalPages {
		return fmt.Errorf("root covers [%d,%d], want [1,%d]", root.Start, root.End, t.TotalPages)
	}
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if len(n.Children) == 0 {
			continue
		}
		next := n.Start
		for _, c := range n.Children {
			child := &t.Nodes[c]
			if child.Start != next {
				return fmt.Errorf("node %d %s: child %s starts on page %d, want %d",
					i, n.Heading, child.Heading, child.Start, next)
			}
			if child.End < child.Start-1 || child.End > n.End {
				return fmt.Errorf("node %d %s: child %s has range [%d,%d] outside [%d,%d]",
					i, n.Heading, child.Heading, child.Start, child.End, n.Start, n.End)
			}
			next = child.End + 1
		}
		if next != n.End+1 {
			return fmt.Errorf("node %d %s: children end on page %d, want %d", i, n.Heading, next-1, n.End)
		}
	}
	return nil
}
