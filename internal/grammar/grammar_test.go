package grammar

import (
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/docsplit/internal/tokenstream"
)

const headingSrc = `
// two heading shapes of a statute compilation
heading: part_start | section_start

part_start: _SPAN_M part_number _LINE+ part_subtitle
!part_number: "PART " (NAT | NAT1)
part_subtitle: _upper_line (LINE _upper_line)*
_upper_line: _INDENT* _SPAN_M UPPER

section_start: _INDENT _SPAN_M_B section_number "." [section_subtitle]
!section_number: NAT "-" NAT "-" (NAT | NAT1)
section_subtitle: TEXT (LINE _SPAN_M_B TEXT)*

NAT: /[1-9][0-9]*/
NAT1: /[1-9][0-9]*\.[0-9]+/
UPPER: /[^a-z]+/
TEXT: /.+/
`

func decode(t *testing.T, lines ...string) []tokenstream.Token {
	t.Helper()
	tokens, err := tokenstream.DecodeString(strings.Join(lines, "\n"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return tokens
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		start string
	}{
		{"no colon", "heading LINE", "heading"},
		{"undefined rule", "heading: missing", "heading"},
		{"undefined terminal", "heading: WORD", "heading"},
		{"bad regexp", "heading: /[a-/", "heading"},
		{"unterminated string", `heading: "PART`, "heading"},
		{"missing start", "heading: LINE", "section"},
		{"duplicate", "heading: LINE\nheading: INDENT", "heading"},
		{"bang on terminal", `!WORD: "x"`, "heading"},
		{"reduce/reduce", "s: a | b\na: LINE\nb: LINE", "s"},
		{"shift/reduce", "e: e LINE e | INDENT", "e"},
		{"unbalanced group", "s: (LINE | INDENT", "s"},
		{"no rules", `WORD: "x"`, "s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.src, tt.start)
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
}

func TestCompile_ConflictMessageNamesRules(t *testing.T) {
	_, err := Compile("s: a | b\na: LINE\nb: LINE", "s")
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "reduce/reduce") || !strings.Contains(msg, "a:") || !strings.Contains(msg, "b:") {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestMustCompile_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustCompile("s: missing", "s")
}

func TestMatch_EmptyStream(t *testing.T) {
	g := MustCompile("s: _LINE*", "s")
	if got := g.Match(nil); len(got) != 0 {
		t.Errorf("expected no matches, got %d", len(got))
	}
}

func TestMatch_EmptyAcceptingGrammar(t *testing.T) {
	g := MustCompile("s: _LINE*", "s")

	got := g.Match(decode(t, "body text"))
	if len(got) != 1 || got[0].Length != 0 {
		t.Fatalf("expected one zero-length match, got %+v", got)
	}

	got = g.Match(decode(t, "<<LINE>>", "<<LINE>>", "body"))
	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(got))
	}
	for i, m := range got {
		if m.Length != i {
			t.Errorf("match %d: expected length %d, got %d", i, i, m.Length)
		}
		if m.Tree.Rule != "s" {
			t.Errorf("match %d: expected rule s, got %s", i, m.Tree.Rule)
		}
	}
}

func TestMatch_LexErrorEndsAttempt(t *testing.T) {
	g := MustCompile("s: _LINE WORD\nWORD: /[a-z]+/", "s")

	if got := g.Match(decode(t, "<<LINE>>", "ABC")); len(got) != 0 {
		t.Errorf("expected no match on untokenizable text, got %+v", got)
	}
	// a partial lex leaves unconsumed text, which is also a lex failure
	if got := g.Match(decode(t, "<<LINE>>", "abc1")); len(got) != 0 {
		t.Errorf("expected no match on partial text, got %+v", got)
	}
	got := g.Match(decode(t, "<<LINE>>", "abc", "<<LINE>>", "def"))
	if len(got) != 1 || got[0].Length != 2 {
		t.Fatalf("expected one match of length 2, got %+v", got)
	}
	if text := got[0].Tree.Text(); text != "abc" {
		t.Errorf("expected text %q, got %q", "abc", text)
	}
}

func TestMatch_UnknownMarkerStops(t *testing.T) {
	g := MustCompile("s: LINE", "s")
	if got := g.Match(decode(t, "<<PAGE 3>>")); len(got) != 0 {
		t.Errorf("expected no match, got %+v", got)
	}
}

func TestMatch_IncreasingLengthsAndLongest(t *testing.T) {
	g := MustCompile(headingSrc, "heading")
	tokens := decode(t,
		"<<SPAN_M>>", "PART 7",
		"<<LINE>>", "<<SPAN_M>>", "ENACTMENT OF LAWS REGARDING",
		"<<LINE>>", "<<INDENT>>", "<<SPAN_M>>", "SENTENCING OF CRIMINAL OFFENDERS",
		"<<LINE>>", "<<INDENT>>", "<<SPAN_M_B>>", "2-2-701.  General assembly",
	)

	got := g.Match(tokens)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	if got[0].Length != 5 || got[1].Length != 9 {
		t.Errorf("expected lengths 5 and 9, got %d and %d", got[0].Length, got[1].Length)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Length <= got[i-1].Length {
			t.Errorf("lengths not strictly increasing: %d then %d", got[i-1].Length, got[i].Length)
		}
	}

	longest, ok := g.Longest(tokens)
	if !ok || longest.Length != 9 {
		t.Fatalf("expected longest match of 9, got %+v", longest)
	}
	part := longest.Tree.Child("part_start")
	if part == nil {
		t.Fatalf("expected part_start child, got\n%s", longest.Tree)
	}
	if label := part.Child("part_number").Text(); label != "PART 7" {
		t.Errorf("label: expected %q, got %q", "PART 7", label)
	}
	want := "ENACTMENT OF LAWS REGARDING SENTENCING OF CRIMINAL OFFENDERS"
	if sub := part.Child("part_subtitle").Text(); sub != want {
		t.Errorf("subtitle: expected %q, got %q", want, sub)
	}
}

func TestMatch_SectionKeepsLiterals(t *testing.T) {
	g := MustCompile(headingSrc, "heading")
	tokens := decode(t,
		"<<INDENT>>", "<<SPAN_M_B>>", "2-2-701.5.  General assembly - bills regarding the sentencing of",
		"<<LINE>>", "<<SPAN_M_B>>", "criminal offenders - legislative intent - definition.",
		"<<LINE>>", "<<INDENT>>", "<<SPAN_M>>", "(1) The general assembly finds",
	)
	m, ok := g.Longest(tokens)
	if !ok || m.Length != 6 {
		t.Fatalf("expected a 6-token match, got %+v", m)
	}
	sec := m.Tree.Child("section_start")
	num := sec.Child("section_number")
	if num.Text() != "2-2-701.5" {
		t.Errorf("expected number %q, got %q", "2-2-701.5", num.Text())
	}
	// "!" keeps the dashes as separate fragments
	if len(num.Children) != 5 {
		t.Errorf("expected 5 number fragments, got %d", len(num.Children))
	}
	want := "General assembly - bills regarding the sentencing of criminal offenders - legislative intent - definition."
	if got := sec.Child("section_subtitle").Text(); got != want {
		t.Errorf("expected subtitle %q, got %q", want, got)
	}
	// the anonymous "." and the dropped markers never reach the tree
	for _, c := range sec.Children {
		if c.Node == nil {
			t.Errorf("unexpected leaf in section_start: %+v", c)
		}
	}
}

func TestMatch_OptionalSubtitle(t *testing.T) {
	g := MustCompile(headingSrc, "heading")
	m, ok := g.Longest(decode(t, "<<INDENT>>", "<<SPAN_M_B>>", "2-2-702."))
	if !ok || m.Length != 3 {
		t.Fatalf("expected a 3-token match, got %+v", m)
	}
	if sub := m.Tree.Child("section_start").Child("section_subtitle"); sub != nil {
		t.Errorf("expected no subtitle, got %s", sub)
	}
}

func TestForceAccept_DoesNotDisturbState(t *testing.T) {
	g := MustCompile("s: _LINE WORD (LINE WORD)*\nWORD: /[a-z]+/", "s")
	tokens := decode(t, "<<LINE>>", "abc", "<<LINE>>", "def")

	s := g.Initial()
	for _, tok := range tokens[:2] {
		var ok bool
		s, ok = g.Step(s, tok)
		if !ok {
			t.Fatalf("step %v failed", tok)
		}
	}
	first, ok := g.ForceAccept(s)
	if !ok || first.Text() != "abc" {
		t.Fatalf("expected accept with %q, got %v %v", "abc", first, ok)
	}
	again, ok := g.ForceAccept(s)
	if !ok || again.Text() != "abc" {
		t.Fatalf("second ForceAccept differs: %v", again)
	}

	for _, tok := range tokens[2:] {
		s, ok = g.Step(s, tok)
		if !ok {
			t.Fatalf("step %v failed after ForceAccept", tok)
		}
	}
	final, ok := g.ForceAccept(s)
	if !ok || final.Text() != "abc def" {
		t.Errorf("expected %q, got %q", "abc def", final.Text())
	}
}

func TestStep_FailureKeepsState(t *testing.T) {
	g := MustCompile("s: LINE LINE", "s")
	s, ok := g.Step(g.Initial(), tokenstream.NewMarker(tokenstream.Line, ""))
	if !ok {
		t.Fatal("first step failed")
	}
	if _, ok := g.Step(s, tokenstream.NewText("x")); ok {
		t.Fatal("expected text to be rejected")
	}
	if _, ok := g.Step(s, tokenstream.NewMarker(tokenstream.Line, "")); !ok {
		t.Error("state was disturbed by the failed step")
	}
}

func TestInlineAndKeepRules(t *testing.T) {
	src := `
doc: _pair LINE label
_pair: WORD _SEP WORD
!label: "x" WORD
WORD: /[a-z]+/
_SEP: "-"
`
	g := MustCompile(src, "doc")
	m, ok := g.Longest(decode(t, "ab-cd", "<<LINE>>", "xyz"))
	if !ok || m.Length != 3 {
		t.Fatalf("expected 3-token match, got %+v", m)
	}
	tree := m.Tree
	// _pair is inlined, _SEP dropped, LINE kept as a marker
	if len(tree.Children) != 4 {
		t.Fatalf("expected 4 children, got %d:\n%s", len(tree.Children), tree)
	}
	if tree.Children[0].Text != "ab" || tree.Children[1].Text != "cd" {
		t.Errorf("unexpected inlined children: %+v", tree.Children[:2])
	}
	if tree.Children[2].Marker != tokenstream.Line {
		t.Errorf("expected kept LINE marker, got %+v", tree.Children[2])
	}
	label := tree.Child("label")
	if label == nil || len(label.Children) != 2 || label.Text() != "xyz" {
		t.Errorf("unexpected label node: %v", label)
	}
	if tree.Text() != "abcd xyz" {
		t.Errorf("expected %q, got %q", "abcd xyz", tree.Text())
	}
}

func TestLex_PrefersLiteralOnTie(t *testing.T) {
	src := `
s: kw | word
kw: KW
word: WORD
KW: "part"
WORD: /[a-z]+/
`
	g, err := Compile(src, "s")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	m, ok := g.Longest(decode(t, "part"))
	if !ok || m.Tree.Child("kw") == nil {
		t.Errorf("expected keyword match, got %v", m.Tree)
	}
	m, ok = g.Longest(decode(t, "parts"))
	if !ok || m.Tree.Child("word") == nil {
		t.Errorf("expected longer word match, got %v", m.Tree)
	}
}

func TestRules(t *testing.T) {
	g := MustCompile(headingSrc, "heading")
	if g.StartRule() != "heading" {
		t.Errorf("unexpected start rule %q", g.StartRule())
	}
	if !g.HasRule("part_number") || g.HasRule("chapter_number") {
		t.Error("HasRule disagrees with the source")
	}
	starts := g.RulesWithSuffix("_start")
	if len(starts) != 2 || starts[0] != "part_start" || starts[1] != "section_start" {
		t.Errorf("unexpected _start rules: %v", starts)
	}
}
