package grammar

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) set(i int) bool {
	w, m := i/64, uint64(1)<<(i%64)
	if b[w]&m != 0 {
		return false
	}
	b[w] |= m
	return true
}

func (b bitset) has(i int) bool { return b[i/64]&(uint64(1)<<(i%64)) != 0 }

func (b bitset) union(o bitset) bool {
	changed := false
	for i := range b {
		if n := b[i] | o[i]; n != b[i] {
			b[i] = n
			changed = true
		}
	}
	return changed
}

func (b bitset) clone() bitset { return append(bitset(nil), b...) }

func (b bitset) each(fn func(int)) {
	for w, word := range b {
		for word != 0 {
			i := bits.TrailingZeros64(word)
			fn(w*64 + i)
			word &^= uint64(1) << i
		}
	}
}

func (b bitset) key() string {
	var sb strings.Builder
	for _, w := range b {
		fmt.Fprintf(&sb, "%x.", w)
	}
	return sb.String()
}

type actKind uint8

const (
	actError actKind = iota
	actShift
	actReduce
	actAccept
)

type action struct {
	kind actKind
	arg  int // target state for shift, production for reduce
}

type lrItem struct {
	prod, dot int
	la        bitset
}

type symRef struct {
	nt bool
	id int
}

type lrState struct {
	items []lrItem
	trans map[symRef]int
}

type tables struct {
	action [][]action
	gotos  [][]int32
}

type automaton struct {
	b        *builder
	byLHS    [][]int
	nullable []bool
	first    []bitset
	states   []*lrState
	index    map[string]int
}

func buildTables(b *builder) (*tables, error) {
	a := &automaton{b: b, index: make(map[string]int)}
	a.byLHS = make([][]int, len(b.nts))
	for i, p := range b.prods {
		a.byLHS[p.lhs] = append(a.byLHS[p.lhs], i)
	}
	for id, nt := range b.nts {
		if len(a.byLHS[id]) == 0 {
			return nil, configErrorf(0, "rule %q has no expansions", nt.name)
		}
	}
	a.computeFirst()

	end := newBitset(len(b.terms))
	end.set(endTerm)
	a.addState([]lrItem{{prod: 0, dot: 0, la: end}})
	for i := 0; i < len(a.states); i++ {
		a.expand(i)
	}
	return a.fill()
}

func (a *automaton) computeFirst() {
	b := a.b
	a.nullable = make([]bool, len(b.nts))
	a.first = make([]bitset, len(b.nts))
	for i := range a.first {
		a.first[i] = newBitset(len(b.terms))
	}
	for changed := true; changed; {
		changed = false
		for _, p := range b.prods {
			allNullable := true
			for _, it := range p.rhs {
				if !it.nt {
					if a.first[p.lhs].set(it.id) {
						changed = true
					}
					allNullable = false
					break
				}
				if a.first[p.lhs].union(a.first[it.id]) {
					changed = true
				}
				if !a.nullable[it.id] {
					allNullable = false
					break
				}
			}
			if allNullable && !a.nullable[p.lhs] {
				a.nullable[p.lhs] = true
				changed = true
			}
		}
	}
}

// firstOf returns FIRST(seq la).
func (a *automaton) firstOf(seq []rhsItem, la bitset) bitset {
	out := newBitset(len(a.b.terms))
	for _, it := range seq {
		if !it.nt {
			out.set(it.id)
			return out
		}
		out.union(a.first[it.id])
		if !a.nullable[it.id] {
			return out
		}
	}
	out.union(la)
	return out
}

func (a *automaton) closure(kernel []lrItem) []lrItem {
	items := make([]lrItem, 0, len(kernel))
	pos := make(map[[2]int]int)
	var queue []int
	queued := make(map[int]bool)
	push := func(i int) {
		if !queued[i] {
			queued[i] = true
			queue = append(queue, i)
		}
	}
	for _, it := range kernel {
		pos[[2]int{it.prod, it.dot}] = len(items)
		items = append(items, lrItem{prod: it.prod, dot: it.dot, la: it.la.clone()})
		push(len(items) - 1)
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		queued[i] = false
		it := items[i]
		rhs := a.b.prods[it.prod].rhs
		if it.dot >= len(rhs) || !rhs[it.dot].nt {
			continue
		}
		la := a.firstOf(rhs[it.dot+1:], it.la)
		for _, p := range a.byLHS[rhs[it.dot].id] {
			k := [2]int{p, 0}
			if j, ok := pos[k]; ok {
				if items[j].la.union(la) {
					push(j)
				}
				continue
			}
			pos[k] = len(items)
			items = append(items, lrItem{prod: p, la: la.clone()})
			push(len(items) - 1)
		}
	}
	sortItems(items)
	return items
}

func sortItems(items []lrItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].prod != items[j].prod {
			return items[i].prod < items[j].prod
		}
		return items[i].dot < items[j].dot
	})
}

func kernelKey(kernel []lrItem) string {
	var sb strings.Builder
	for _, it := range kernel {
		fmt.Fprintf(&sb, "%d:%d:%s;", it.prod, it.dot, it.la.key())
	}
	return sb.String()
}

func (a *automaton) addState(kernel []lrItem) int {
	sortItems(kernel)
	key := kernelKey(kernel)
	if id, ok := a.index[key]; ok {
		return id
	}
	id := len(a.states)
	a.states = append(a.states, &lrState{items: a.closure(kernel), trans: make(map[symRef]int)})
	a.index[key] = id
	return id
}

func (a *automaton) expand(i int) {
	st := a.states[i]
	next := make(map[symRef][]lrItem)
	var order []symRef
	for _, it := range st.items {
		rhs := a.b.prods[it.prod].rhs
		if it.dot >= len(rhs) {
			continue
		}
		sym := symRef{nt: rhs[it.dot].nt, id: rhs[it.dot].id}
		if _, ok := next[sym]; !ok {
			order = append(order, sym)
		}
		next[sym] = append(next[sym], lrItem{prod: it.prod, dot: it.dot + 1, la: it.la.clone()})
	}
	sort.Slice(order, func(x, y int) bool {
		if order[x].nt != order[y].nt {
			return !order[x].nt
		}
		return order[x].id < order[y].id
	})
	for _, sym := range order {
		st.trans[sym] = a.addState(next[sym])
	}
}

func (a *automaton) fill() (*tables, error) {
	b := a.b
	t := &tables{
		action: make([][]action, len(a.states)),
		gotos:  make([][]int32, len(a.states)),
	}
	for i, st := range a.states {
		row := make([]action, len(b.terms))
		gotoRow := make([]int32, len(b.nts))
		for k := range gotoRow {
			gotoRow[k] = -1
		}
		for sym, target := range st.trans {
			if sym.nt {
				gotoRow[sym.id] = int32(target)
			}
		}

		var conflict error
		put := func(term int, act action, prod, dot int) {
			if conflict != nil {
				return
			}
			cur := row[term]
			if cur.kind == actError {
				row[term] = act
				return
			}
			if cur == act {
				return
			}
			kind := "shift/reduce"
			if cur.kind == actReduce && act.kind == actReduce {
				kind = "reduce/reduce"
			}
			conflict = configErrorf(0, "%s conflict on %s between %s and %s",
				kind, b.terms[term].name, a.describe(i, cur, term), b.describeItem(prod, dot))
		}

		for _, it := range st.items {
			rhs := b.prods[it.prod].rhs
			if it.dot < len(rhs) {
				if !rhs[it.dot].nt {
					term := rhs[it.dot].id
					put(term, action{kind: actShift, arg: st.trans[symRef{id: term}]}, it.prod, it.dot)
				}
				continue
			}
			it.la.each(func(term int) {
				if it.prod == 0 {
					if term == endTerm {
						put(term, action{kind: actAccept}, it.prod, it.dot)
					}
					return
				}
				put(term, action{kind: actReduce, arg: it.prod}, it.prod, it.dot)
			})
		}
		if conflict != nil {
			return nil, conflict
		}
		t.action[i] = row
		t.gotos[i] = gotoRow
	}
	return t, nil
}

func (a *automaton) describe(state int, act action, term int) string {
	if act.kind == actReduce {
		p := act.arg
		return a.b.describeItem(p, len(a.b.prods[p].rhs))
	}
	for _, it := range a.states[state].items {
		rhs := a.b.prods[it.prod].rhs
		if it.dot < len(rhs) && !rhs[it.dot].nt && rhs[it.dot].id == term {
			return a.b.describeItem(it.prod, it.dot)
		}
	}
	return "?"
}

// describeItem renders "lhs: a b . c" for error messages.
func (b *builder) describeItem(prod, dot int) string {
	p := b.prods[prod]
	parts := []string{b.nts[p.lhs].name + ":"}
	for i, it := range p.rhs {
		if i == dot {
			parts = append(parts, ".")
		}
		if it.nt {
			parts = append(parts, b.nts[it.id].name)
		} else {
			parts = append(parts, b.terms[it.id].name)
		}
	}
	if dot >= len(p.rhs) {
		parts = append(parts, ".")
	}
	return strings.Join(parts, " ")
}
