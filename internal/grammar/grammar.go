// Package grammar compiles structural grammars over token streams into
// deterministic LR(1) automata and matches them incrementally.
package grammar

import (
	"sort"
	"strings"
)

// Grammar is a compiled automaton. It is immutable and safe for concurrent use.
type Grammar struct {
	start   string
	terms   []terminal
	nts     []nonterminal
	prods   []production
	action  [][]action
	gotos   [][]int32
	text    [][]int // per state: acceptable text terminals, in lexing priority
	markers map[string]int
	rules   []string
}

// Compile parses src and builds the automaton for the start rule.
// All failures are *ConfigError.
func Compile(src, start string) (*Grammar, error) {
	defs, err := parseDefinitions(src)
	if err != nil {
		return nil, err
	}
	b := newBuilder(start)
	if err := b.build(defs); err != nil {
		return nil, err
	}
	t, err := buildTables(b)
	if err != nil {
		return nil, err
	}

	g := &Grammar{
		start:   start,
		terms:   b.terms,
		nts:     b.nts,
		prods:   b.prods,
		action:  t.action,
		gotos:   t.gotos,
		markers: make(map[string]int),
	}
	for id, term := range b.terms {
		if term.marker != "" {
			g.markers[term.marker] = id
		}
	}
	for _, rd := range defs.rules {
		g.rules = append(g.rules, rd.name)
	}
	g.text = make([][]int, len(t.action))
	for s, row := range t.action {
		var ids []int
		for id, act := range row {
			if act.kind != actError && b.terms[id].isText() {
				ids = append(ids, id)
			}
		}
		sort.SliceStable(ids, func(i, j int) bool {
			li, lj := b.terms[ids[i]].literal != "", b.terms[ids[j]].literal != ""
			if li != lj {
				return li
			}
			return ids[i] < ids[j]
		})
		g.text[s] = ids
	}
	return g, nil
}

// MustCompile is like Compile but panics on error. It is meant for
// grammars embedded in the binary.
func MustCompile(src, start string) *Grammar {
	g, err := Compile(src, start)
	if err != nil {
		panic(err)
	}
	return g
}

// StartRule returns the name of the rule matches are reported for.
func (g *Grammar) StartRule() string { return g.start }

// Rules returns the declared rule names in declaration order.
func (g *Grammar) Rules() []string {
	return append([]string(nil), g.rules...)
}

// HasRule reports whether a rule with the given name is declared.
func (g *Grammar) HasRule(name string) bool {
	for _, r := range g.rules {
		if r == name {
			return true
		}
	}
	return false
}

// RulesWithSuffix returns declared rules ending in suffix.
func (g *Grammar) RulesWithSuffix(suffix string) []string {
	var out []string
	for _, r := range g.rules {
		if strings.HasSuffix(r, suffix) {
			out = append(out, r)
		}
	}
	return out
}
