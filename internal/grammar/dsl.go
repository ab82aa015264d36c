package grammar

import (
	"regexp"
	"strconv"
	"strings"
)

// Grammar source syntax:
//
//	// comment (also #)
//	heading: part_start | section_start
//	       | title_start
//	!part_number: "PART " NAT
//	NAT: /[1-9][0-9]*/
//
// Lowercase names are rules, uppercase names are terminals. A leading "_"
// hides the symbol from parse trees (rules are inlined into their parent),
// a leading "!" on a rule keeps anonymous literals. Uppercase references
// that are not defined terminals name stream markers (LINE, SPAN_M_B, ...).

var (
	ruleNameRe = regexp.MustCompile(`^_?[a-z][a-z0-9_]*$`)
	termNameRe = regexp.MustCompile(`^_?[A-Z][A-Z0-9_]*$`)
)

type statement struct {
	name string
	line int
	body string
}

type ruleDef struct {
	name    string
	line    int
	keepAll bool
	body    exGroup
}

type termDef struct {
	name string
	line int
	atom expr // exLit or exRe
}

type definitions struct {
	rules []ruleDef
	terms []termDef
}

type expr interface{}

// exGroup is a set of alternatives, each a sequence.
type exGroup struct {
	alts [][]expr
}

type exRef struct {
	name string
	line int
}

type exLit struct {
	s string
}

type exRe struct {
	pattern string
}

type exRepeat struct {
	body expr
	op   byte // '?', '*' or '+'
}

func splitStatements(src string) ([]statement, error) {
	var stmts []statement
	for i, raw := range strings.Split(src, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "|") {
			if len(stmts) == 0 {
				return nil, configErrorf(lineNo, "continuation line without a definition")
			}
			stmts[len(stmts)-1].body += " " + line
			continue
		}
		name, body, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, configErrorf(lineNo, "expected \"name: expansion\"")
		}
		stmts = append(stmts, statement{name: name, line: lineNo, body: body})
	}
	return stmts, nil
}

func parseDefinitions(src string) (*definitions, error) {
	stmts, err := splitStatements(src)
	if err != nil {
		return nil, err
	}
	defs := &definitions{}
	seen := make(map[string]int)
	for _, st := range stmts {
		keepAll := false
		name := st.name
		if strings.HasPrefix(name, "!") {
			keepAll = true
			name = name[1:]
		}
		if prev, dup := seen[name]; dup {
			return nil, configErrorf(st.line, "%q already defined on line %d", name, prev)
		}
		seen[name] = st.line

		toks, err := lexBody(st.body, st.line)
		if err != nil {
			return nil, err
		}
		p := &bodyParser{toks: toks, line: st.line}
		group, err := p.parseAlts()
		if err != nil {
			return nil, err
		}
		if !p.done() {
			return nil, configErrorf(st.line, "unexpected %q", p.peek().val)
		}

		switch {
		case ruleNameRe.MatchString(name):
			defs.rules = append(defs.rules, ruleDef{name: name, line: st.line, keepAll: keepAll, body: group})
		case termNameRe.MatchString(name):
			if keepAll {
				return nil, configErrorf(st.line, "\"!\" is only allowed on rules")
			}
			atom, ok := singleAtom(group)
			if !ok {
				return nil, configErrorf(st.line, "terminal %s must be a single string or /regexp/", name)
			}
			defs.terms = append(defs.terms, termDef{name: name, line: st.line, atom: atom})
		default:
			return nil, configErrorf(st.line, "invalid name %q", name)
		}
	}
	if len(defs.rules) == 0 {
		return nil, configErrorf(0, "no rules defined")
	}
	return defs, nil
}

func singleAtom(g exGroup) (expr, bool) {
	if len(g.alts) != 1 || len(g.alts[0]) != 1 {
		return nil, false
	}
	switch a := g.alts[0][0].(type) {
	case exLit:
		return a, a.s != ""
	case exRe:
		return a, true
	}
	return nil, false
}

type bodyTok struct {
	kind byte // 'n' name, 's' string, 'r' regexp, or the punctuation itself
	val  string
}

func lexBody(body string, line int) ([]bodyTok, error) {
	var toks []bodyTok
	i := 0
	for i < len(body) {
		c := body[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case strings.IndexByte("()[]|?*+", c) >= 0:
			toks = append(toks, bodyTok{kind: c, val: string(c)})
			i++
		case c == '"':
			j := i + 1
			for j < len(body) && body[j] != '"' {
				if body[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(body) {
				return nil, configErrorf(line, "unterminated string")
			}
			s, err := strconv.Unquote(body[i : j+1])
			if err != nil {
				return nil, configErrorf(line, "bad string %s: %v", body[i:j+1], err)
			}
			toks = append(toks, bodyTok{kind: 's', val: s})
			i = j + 1
		case c == '/':
			var sb strings.Builder
			j := i + 1
			for j < len(body) && body[j] != '/' {
				if body[j] == '\\' && j+1 < len(body) {
					if body[j+1] != '/' {
						sb.WriteByte('\\')
					}
					sb.WriteByte(body[j+1])
					j += 2
					continue
				}
				sb.WriteByte(body[j])
				j++
			}
			if j >= len(body) {
				return nil, configErrorf(line, "unterminated regexp")
			}
			pattern := sb.String()
			j++
			if j < len(body) && body[j] == 'i' {
				pattern = "(?i)" + pattern
				j++
			}
			toks = append(toks, bodyTok{kind: 'r', val: pattern})
			i = j
		case c == '_' || isLetter(c):
			j := i
			for j < len(body) && (body[j] == '_' || isLetter(body[j]) || (body[j] >= '0' && body[j] <= '9')) {
				j++
			}
			toks = append(toks, bodyTok{kind: 'n', val: body[i:j]})
			i = j
		default:
			return nil, configErrorf(line, "unexpected character %q", c)
		}
	}
	return toks, nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

type bodyParser struct {
	toks []bodyTok
	pos  int
	line int
}

func (p *bodyParser) done() bool { return p.pos >= len(p.toks) }

func (p *bodyParser) peek() bodyTok {
	if p.done() {
		return bodyTok{}
	}
	return p.toks[p.pos]
}

func (p *bodyParser) parseAlts() (exGroup, error) {
	var g exGroup
	for {
		seq, err := p.parseSeq()
		if err != nil {
			return g, err
		}
		g.alts = append(g.alts, seq)
		if p.peek().kind != '|' {
			return g, nil
		}
		p.pos++
	}
}

func (p *bodyParser) parseSeq() ([]expr, error) {
	var seq []expr
	for !p.done() {
		switch p.peek().kind {
		case '|', ')', ']':
			return seq, nil
		}
		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		seq = append(seq, item)
	}
	return seq, nil
}

func (p *bodyParser) parseItem() (expr, error) {
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for !p.done() {
		op := p.peek().kind
		if op != '?' && op != '*' && op != '+' {
			break
		}
		p.pos++
		atom = exRepeat{body: atom, op: op}
	}
	return atom, nil
}

func (p *bodyParser) parseAtom() (expr, error) {
	t := p.peek()
	p.pos++
	switch t.kind {
	case 'n':
		return exRef{name: t.val, line: p.line}, nil
	case 's':
		if t.val == "" {
			return nil, configErrorf(p.line, "empty string literal")
		}
		return exLit{s: t.val}, nil
	case 'r':
		return exRe{pattern: t.val}, nil
	case '(', '[':
		closing := byte(')')
		if t.kind == '[' {
			closing = ']'
		}
		g, err := p.parseAlts()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != closing {
			return nil, configErrorf(p.line, "expected %q", closing)
		}
		p.pos++
		if t.kind == '[' {
			return exRepeat{body: g, op: '?'}, nil
		}
		return g, nil
	case 0:
		return nil, configErrorf(p.line, "unexpected end of expansion")
	default:
		return nil, configErrorf(p.line, "unexpected %q", t.val)
	}
}
