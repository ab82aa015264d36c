package grammar

import (
	"github.com/dgallion1/docsplit/internal/tokenstream"
)

// frame is one entry of the parser stack. Frames are never modified after
// creation, so a State can be kept and resumed at will.
type frame struct {
	state int
	value []Child
	prev  *frame
}

// State is an immutable snapshot of the automaton.
type State struct {
	top *frame
}

// Match is a completed parse of the start rule over the first Length tokens.
type Match struct {
	Tree   *Node
	Length int
}

// Initial returns the state before any token is read.
func (g *Grammar) Initial() State {
	return State{top: &frame{state: 0}}
}

// Step feeds one stream token. It reports false when the token cannot be
// lexed or the automaton has no transition for it; s is left untouched
// either way.
func (g *Grammar) Step(s State, tok tokenstream.Token) (State, bool) {
	top := s.top
	switch tok.Kind {
	case tokenstream.Marker:
		id, ok := g.markers[tok.Name]
		if !ok {
			return s, false
		}
		top, ok = g.feed(top, id, Child{Marker: tok.Name})
		if !ok {
			return s, false
		}
	case tokenstream.Text:
		text := tok.Text
		if text == "" {
			return s, false
		}
		for pos := 0; pos < len(text); {
			id, n := g.lex(top.state, text, pos)
			if n == 0 {
				return s, false
			}
			var ok bool
			top, ok = g.feed(top, id, Child{Text: text[pos : pos+n]})
			if !ok {
				return s, false
			}
			pos += n
		}
	default:
		return s, false
	}
	return State{top: top}, true
}

// CanAccept reports whether end of input is acceptable in s.
func (g *Grammar) CanAccept(s State) bool {
	return g.action[s.top.state][endTerm].kind != actError
}

// ForceAccept completes the parse as if the input ended in s and returns
// the start rule's tree. s itself is not affected.
func (g *Grammar) ForceAccept(s State) (*Node, bool) {
	if !g.CanAccept(s) {
		return nil, false
	}
	top := s.top
	for {
		act := g.action[top.state][endTerm]
		switch act.kind {
		case actAccept:
			if len(top.value) != 1 || top.value[0].Node == nil {
				return nil, false
			}
			return top.value[0].Node, true
		case actReduce:
			top = g.reduce(top, act.arg)
		default:
			return nil, false
		}
	}
}

// Match returns every prefix of tokens the start rule completes on, in
// increasing length. Matching stops at the first token that cannot be
// lexed or has no transition; that is not an error.
func (g *Grammar) Match(tokens []tokenstream.Token) []Match {
	if len(tokens) == 0 {
		return nil
	}
	var out []Match
	s := g.Initial()
	for i := 0; ; i++ {
		if tree, ok := g.ForceAccept(s); ok {
			out = append(out, Match{Tree: tree, Length: i})
		}
		if i == len(tokens) {
			break
		}
		next, ok := g.Step(s, tokens[i])
		if !ok {
			break
		}
		s = next
	}
	return out
}

// Longest returns the longest match of the start rule at the head of tokens.
func (g *Grammar) Longest(tokens []tokenstream.Token) (Match, bool) {
	ms := g.Match(tokens)
	if len(ms) == 0 {
		return Match{}, false
	}
	return ms[len(ms)-1], true
}

// lex picks the longest acceptable text terminal at pos. Ties go to the
// terminal that sorts first in the state's priority list.
func (g *Grammar) lex(state int, text string, pos int) (id, n int) {
	for _, t := range g.text[state] {
		if m := g.terms[t].matchAt(text, pos); m > n {
			id, n = t, m
		}
	}
	return id, n
}

func (g *Grammar) feed(top *frame, term int, c Child) (*frame, bool) {
	for {
		act := g.action[top.state][term]
		switch act.kind {
		case actShift:
			return &frame{state: act.arg, value: []Child{c}, prev: top}, true
		case actReduce:
			top = g.reduce(top, act.arg)
		default:
			return top, false
		}
	}
}

func (g *Grammar) reduce(top *frame, prod int) *frame {
	p := g.prods[prod]
	n := len(p.rhs)
	popped := make([]*frame, n)
	f := top
	for i := n - 1; i >= 0; i-- {
		popped[i] = f
		f = f.prev
	}
	var children []Child
	for i, it := range p.rhs {
		if it.keep {
			children = append(children, popped[i].value...)
		}
	}

	var value []Child
	if g.nts[p.lhs].inline {
		value = children
	} else {
		value = []Child{{Node: &Node{Rule: g.nts[p.lhs].name, Children: children}}}
	}
	return &frame{state: int(g.gotos[f.state][p.lhs]), value: value, prev: f}
}
