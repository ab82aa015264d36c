package grammar

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/docsplit/internal/tokenstream"
)

const endTerm = 0

// terminal is a token class: a stream marker, a literal string or a
// regular expression applied inside a text token.
type terminal struct {
	name    string
	marker  string
	literal string
	re      *regexp.Regexp
}

func (t *terminal) isText() bool { return t.literal != "" || t.re != nil }

// matchAt returns the length of the terminal's match at s[pos:], or 0.
func (t *terminal) matchAt(s string, pos int) int {
	if t.literal != "" {
		if strings.HasPrefix(s[pos:], t.literal) {
			return len(t.literal)
		}
		return 0
	}
	loc := t.re.FindStringIndex(s[pos:])
	if loc == nil || loc[0] != 0 {
		return 0
	}
	return loc[1]
}

type nonterminal struct {
	name   string
	inline bool
}

type rhsItem struct {
	nt   bool
	id   int
	keep bool
}

type production struct {
	lhs int
	rhs []rhsItem
}

type builder struct {
	start    string
	terms    []terminal
	termIdx  map[string]int
	textDefs map[string]bool
	nts      []nonterminal
	ntIdx    map[string]int
	prods    []production
	auxN     int
}

func newBuilder(start string) *builder {
	return &builder{
		start:    start,
		terms:    []terminal{{name: "$END"}},
		termIdx:  make(map[string]int),
		textDefs: make(map[string]bool),
		ntIdx:    make(map[string]int),
	}
}

func (b *builder) build(defs *definitions) error {
	for _, td := range defs.terms {
		key := "name:" + td.name
		switch a := td.atom.(type) {
		case exLit:
			b.addTerm(key, terminal{name: td.name, literal: a.s})
		case exRe:
			re, err := compilePattern(a.pattern)
			if err != nil {
				return configErrorf(td.line, "terminal %s: %v", td.name, err)
			}
			b.addTerm(key, terminal{name: td.name, re: re})
		}
		b.textDefs[td.name] = true
	}

	// production 0 is the augmented start; its lhs is filled in below
	b.prods = append(b.prods, production{})
	for _, rd := range defs.rules {
		b.ntIdx[rd.name] = len(b.nts)
		b.nts = append(b.nts, nonterminal{
			name:   rd.name,
			inline: strings.HasPrefix(rd.name, "_") && rd.name != b.start,
		})
	}
	startID, ok := b.ntIdx[b.start]
	if !ok {
		return configErrorf(0, "start rule %q is not defined", b.start)
	}
	aug := len(b.nts)
	b.nts = append(b.nts, nonterminal{name: "$start"})
	b.prods[0] = production{lhs: aug, rhs: []rhsItem{{nt: true, id: startID, keep: true}}}

	for i := range defs.rules {
		rd := &defs.rules[i]
		lhs := b.ntIdx[rd.name]
		for _, alt := range rd.body.alts {
			rhs, err := b.sequence(alt, rd)
			if err != nil {
				return err
			}
			b.prods = append(b.prods, production{lhs: lhs, rhs: rhs})
		}
	}
	return nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, err
	}
	return regexp.Compile(`^(?:` + pattern + `)`)
}

func (b *builder) addTerm(key string, t terminal) int {
	if id, ok := b.termIdx[key]; ok {
		return id
	}
	id := len(b.terms)
	b.terms = append(b.terms, t)
	b.termIdx[key] = id
	return id
}

func (b *builder) sequence(items []expr, rd *ruleDef) ([]rhsItem, error) {
	var rhs []rhsItem
	for _, e := range items {
		its, err := b.item(e, rd)
		if err != nil {
			return nil, err
		}
		rhs = append(rhs, its...)
	}
	return rhs, nil
}

func (b *builder) item(e expr, rd *ruleDef) ([]rhsItem, error) {
	switch x := e.(type) {
	case exRef:
		it, err := b.reference(x)
		if err != nil {
			return nil, err
		}
		return []rhsItem{it}, nil
	case exLit:
		id := b.addTerm("lit:"+x.s, terminal{name: fmt.Sprintf("%q", x.s), literal: x.s})
		return []rhsItem{{id: id, keep: rd.keepAll}}, nil
	case exRe:
		re, err := compilePattern(x.pattern)
		if err != nil {
			return nil, configErrorf(rd.line, "rule %s: %v", rd.name, err)
		}
		id := b.addTerm("re:"+x.pattern, terminal{name: "/" + x.pattern + "/", re: re})
		return []rhsItem{{id: id, keep: rd.keepAll}}, nil
	case exGroup:
		if len(x.alts) == 1 {
			return b.sequence(x.alts[0], rd)
		}
		aux := b.newAux(rd)
		for _, alt := range x.alts {
			rhs, err := b.sequence(alt, rd)
			if err != nil {
				return nil, err
			}
			b.prods = append(b.prods, production{lhs: aux, rhs: rhs})
		}
		return []rhsItem{{nt: true, id: aux, keep: true}}, nil
	case exRepeat:
		body, err := b.item(x.body, rd)
		if err != nil {
			return nil, err
		}
		aux := b.newAux(rd)
		self := rhsItem{nt: true, id: aux, keep: true}
		switch x.op {
		case '?':
			b.prods = append(b.prods,
				production{lhs: aux},
				production{lhs: aux, rhs: body})
		case '*':
			b.prods = append(b.prods,
				production{lhs: aux},
				production{lhs: aux, rhs: append([]rhsItem{self}, body...)})
		case '+':
			b.prods = append(b.prods,
				production{lhs: aux, rhs: body},
				production{lhs: aux, rhs: append([]rhsItem{self}, body...)})
		}
		return []rhsItem{self}, nil
	}
	return nil, configErrorf(rd.line, "rule %s: unsupported expression", rd.name)
}

func (b *builder) reference(ref exRef) (rhsItem, error) {
	switch {
	case ruleNameRe.MatchString(ref.name):
		id, ok := b.ntIdx[ref.name]
		if !ok {
			return rhsItem{}, configErrorf(ref.line, "undefined rule %q", ref.name)
		}
		return rhsItem{nt: true, id: id, keep: true}, nil
	case termNameRe.MatchString(ref.name):
		if b.textDefs[ref.name] {
			return rhsItem{id: b.termIdx["name:"+ref.name], keep: !strings.HasPrefix(ref.name, "_")}, nil
		}
		marker := strings.TrimPrefix(ref.name, "_")
		if !tokenstream.IsMarkerName(marker) {
			return rhsItem{}, configErrorf(ref.line, "undefined terminal %q", ref.name)
		}
		id := b.addTerm("marker:"+marker, terminal{name: marker, marker: marker})
		return rhsItem{id: id, keep: ref.name == marker}, nil
	}
	return rhsItem{}, configErrorf(ref.line, "invalid symbol %q", ref.name)
}

func (b *builder) newAux(rd *ruleDef) int {
	b.auxN++
	id := len(b.nts)
	b.nts = append(b.nts, nonterminal{
		name:   fmt.Sprintf("__%s_%d", strings.TrimPrefix(rd.name, "_"), b.auxN),
		inline: true,
	})
	return id
}
