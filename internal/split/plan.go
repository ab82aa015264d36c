// Package split chooses page-bounded fragments from an outline tree.
package split

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dgallion1/docsplit/internal/outline"
)

// DefaultMaxPages is the page bound callers fall back to when neither the
// request nor the family sets one.
const DefaultMaxPages = 16

// DefaultSeparator joins identifier labels when Planner.Separator is empty.
const DefaultSeparator = "-"

// Entry is one fragment of the plan.
type Entry struct {
	Node  outline.NodeID `json:"-"`
	Start int            `json:"start"`
	End   int            `json:"end"`
	ID    string         `json:"id"`
	Type  string         `json:"type"`
	Label string         `json:"label"`
}

// Pages returns the number of pages in the fragment; 0 for headings that
// share their page with the next one.
func (e Entry) Pages() int { return e.End - e.Start + 1 }

// Plan is the set of chosen fragments.
type Plan struct {
	MaxPages   int     `json:"max_pages"`
	TotalPages int     `json:"total_pages"`
	Entries    []Entry `json:"entries"`
}

// Planner selects split points. MaxPages is a hint: a heading without
// sub-headings is emitted whole even when it is longer. It must be positive.
type Planner struct {
	MaxPages  int
	Separator string
}

// Plan walks the tree from the root, emitting every node that fits in
// MaxPages or cannot be divided further and descending into the rest.
// Entries come back in page order with unique identifiers.
func (p Planner) Plan(t *outline.Tree) (*Plan, error) {
	if p.MaxPages <= 0 {
		return nil, fmt.Errorf("max pages must be positive, got %d", p.MaxPages)
	}
	sep := p.Separator
	if sep == "" {
		sep = DefaultSeparator
	}

	plan := &Plan{MaxPages: p.MaxPages, TotalPages: t.TotalPages}
	work := []outline.NodeID{0}
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]

		n := t.Node(id)
		if n.Pages() > p.MaxPages && len(n.Children) > 0 {
			work = append(work, n.Children...)
			continue
		}
		plan.Entries = append(plan.Entries, Entry{
			Node:  id,
			Start: n.Start,
			End:   n.End,
			ID:    Identifier(t, id, sep),
			Type:  n.Heading.Type,
			Label: n.Heading.Label,
		})
	}
	plan.Entries = plan.Sorted()
	assignUnique(plan.Entries)
	return plan, nil
}

// assignUnique makes entry IDs distinct as file names. The first entry in
// page order keeps a repeated name; later ones get the lowest _N suffix
// that no other entry uses, including entries whose own label ends in _N.
func assignUnique(entries []Entry) {
	claimed := make(map[string]bool, len(entries))
	dup := make([]bool, len(entries))
	for i, e := range entries {
		key := fileName(e.ID)
		if claimed[key] {
			dup[i] = true
			continue
		}
		claimed[key] = true
	}
	for i := range entries {
		if !dup[i] {
			continue
		}
		for n := 2; ; n++ {
			cand := fmt.Sprintf("%s_%d", entries[i].ID, n)
			if key := fileName(cand); !claimed[key] {
				claimed[key] = true
				entries[i].ID = cand
				break
			}
		}
	}
}

// Identifier joins the labels from the root down to id with sep. Spaces
// become underscores; preamble nodes add nothing to their parent's name.
func Identifier(t *outline.Tree, id outline.NodeID, sep string) string {
	var parts []string
	for _, pid := range t.Path(id) {
		n := t.Node(pid)
		if n.Preamble {
			continue
		}
		parts = append(parts, strings.ReplaceAll(n.Heading.Label, " ", "_"))
	}
	return strings.Join(parts, sep)
}

// Sorted returns the entries ordered by first page. Empty fragments sort
// before the fragment that starts on the same page.
func (p *Plan) Sorted() []Entry {
	out := append([]Entry(nil), p.Entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// Verify checks that the non-empty fragments cover pages 1..TotalPages
// exactly once.
func (p *Plan) Verify() error {
	next := 1
	for _, e := range p.Sorted() {
		if e.Pages() < 0 {
			return fmt.Errorf("fragment %s has invalid range [%d,%d]", e.ID, e.Start, e.End)
		}
		if e.Pages() == 0 {
			continue
		}
		if e.Start != next {
			if e.Start < next {
				return fmt.Errorf("fragment %s [%d,%d] overlaps page %d", e.ID, e.Start, e.End, next-1)
			}
			return fmt.Errorf("pages %d-%d are not covered", next, e.Start-1)
		}
		next = e.End + 1
	}
	if next != p.TotalPages+1 {
		return fmt.Errorf("pages %d-%d are not covered", next, p.TotalPages)
	}
	return nil
}

// NonEmpty returns the sorted entries that cover at least one page.
func (p *Plan) NonEmpty() []Entry {
	var out []Entry
	for _, e := range p.Sorted() {
		if e.Pages() > 0 {
			out = append(out, e)
		}
	}
	return out
}
