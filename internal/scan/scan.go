// Package scan drives compiled grammars across whole token streams.
package scan

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docsplit/internal/grammar"
	"github.com/dgallion1/docsplit/internal/outline"
	"github.com/dgallion1/docsplit/internal/tokenstream"
)

const (
	startSuffix    = "_start"
	numberSuffix   = "_number"
	subtitleSuffix = "_subtitle"
)

// headingKind is one heading variant of a grammar family, resolved when the
// scanner is built.
type headingKind struct {
	typ      string
	number   string
	subtitle string // empty when the grammar has no subtitle rule
}

// HeadingScanner finds headings in token streams. It is read-only after
// construction and may be shared between goroutines.
type HeadingScanner struct {
	g     *grammar.Grammar
	types outline.TypeList
	kinds map[string]headingKind // keyed by <type>_start rule
}

// NewHeadingScanner compiles a heading grammar. Every <type>_start rule
// must name a type from types and come with a <type>_number rule; anything
// else is a *grammar.ConfigError.
func NewHeadingScanner(src, start string, types outline.TypeList) (*HeadingScanner, error) {
	if err := types.Validate(); err != nil {
		return nil, &grammar.ConfigError{Msg: err.Error()}
	}
	g, err := grammar.Compile(src, start)
	if err != nil {
		return nil, err
	}
	return newHeadingScanner(g, types)
}

func newHeadingScanner(g *grammar.Grammar, types outline.TypeList) (*HeadingScanner, error) {
	s := &HeadingScanner{g: g, types: types, kinds: make(map[string]headingKind)}
	for _, rule := range g.RulesWithSuffix(startSuffix) {
		typ := strings.TrimSuffix(rule, startSuffix)
		if _, ok := types.Level(typ); !ok {
			return nil, &grammar.ConfigError{Msg: fmt.Sprintf(
				"rule %s: heading type %q is not one of %s", rule, typ, strings.Join(types, ", "))}
		}
		k := headingKind{typ: typ, number: typ + numberSuffix}
		if !g.HasRule(k.number) {
			return nil, &grammar.ConfigError{Msg: fmt.Sprintf("rule %s: missing rule %s", rule, k.number)}
		}
		if g.HasRule(typ + subtitleSuffix) {
			k.subtitle = typ + subtitleSuffix
		}
		s.kinds[rule] = k
	}
	if len(s.kinds) == 0 {
		return nil, &grammar.ConfigError{Msg: fmt.Sprintf("no rule ends in %q", startSuffix)}
	}
	return s, nil
}

// Types returns the heading hierarchy the scanner reports against.
func (s *HeadingScanner) Types() outline.TypeList { return s.types }

// Scan walks the stream once and returns the headings in document order.
// A match is tried at every token; after a heading the cursor jumps past
// the whole match. Pages count PAGE markers from the start of the stream.
func (s *HeadingScanner) Scan(tokens []tokenstream.Token) ([]outline.Heading, error) {
	var headings []outline.Heading
	page := 0
	for pos := 0; pos < len(tokens); {
		m, ok := s.g.Longest(tokens[pos:])
		if !ok || m.Length == 0 {
			if tokens[pos].IsMarker(tokenstream.Page) {
				page++
			}
			pos++
			continue
		}
		h, err := s.heading(m.Tree)
		if err != nil {
			return headings, fmt.Errorf("token %d: %w", pos, err)
		}
		// A match may open with the PAGE marker of the page it sits on.
		lead := 0
		for lead < m.Length && tokens[pos+lead].IsMarker(tokenstream.Page) {
			lead++
		}
		h.Page = page + lead
		headings = append(headings, h)
		for _, t := range tokens[pos : pos+m.Length] {
			if t.IsMarker(tokenstream.Page) {
				page++
			}
		}
		pos += m.Length
	}
	return headings, nil
}

// Outline scans tokens and pairs the result with the type list.
func (s *HeadingScanner) Outline(tokens []tokenstream.Token) (outline.Outline, error) {
	hs, err := s.Scan(tokens)
	if err != nil {
		return outline.Outline{}, err
	}
	return outline.Outline{Types: s.types, Headings: hs}, nil
}

func (s *HeadingScanner) heading(tree *grammar.Node) (outline.Heading, error) {
	nodes := tree.Nodes()
	if len(nodes) != 1 {
		return outline.Heading{}, fmt.Errorf("rule %s: expected one heading node, got %d", tree.Rule, len(nodes))
	}
	variant := nodes[0]
	k, ok := s.kinds[variant.Rule]
	if !ok {
		return outline.Heading{}, &grammar.ConfigError{Msg: fmt.Sprintf("rule %s does not name a heading type", variant.Rule)}
	}
	number := variant.Child(k.number)
	if number == nil {
		return outline.Heading{}, fmt.Errorf("rule %s: no %s in match", variant.Rule, k.number)
	}
	h := outline.Heading{Type: k.typ, Label: number.Text()}
	if k.subtitle != "" {
		if sub := variant.Child(k.subtitle); sub != nil {
			h.Subtitle = sub.Text()
		}
	}
	return h, nil
}
