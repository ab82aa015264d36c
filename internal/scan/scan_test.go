package scan

import (
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/docsplit/internal/grammar"
	"github.com/dgallion1/docsplit/internal/outline"
	"github.com/dgallion1/docsplit/internal/tokenstream"
)

var statuteTypes = outline.TypeList{"title", "article", "part", "section"}

const statuteHeadings = `
heading: title_start | article_start | part_start | section_start

title_start: _SPAN_L title_number _LINE+ title_subtitle
article_start: _SPAN_M_B article_number _LINE+ article_subtitle
part_start: _SPAN_M part_number _LINE+ part_subtitle

title_subtitle: _upper_line (LINE _upper_line)*
article_subtitle: _text_line (LINE _text_line)*
part_subtitle: _upper_line (LINE _upper_line)*
_upper_line: _INDENT* _SPAN_M UPPER
_text_line: _INDENT* _SPAN_M TEXT

!title_number: "TITLE " NAT
!article_number: "ARTICLE " (NAT | NAT1)
!part_number: "PART " (NAT | NAT1)

!section_number: NAT "-" NAT "-" (NAT | NAT1)
section_start: _INDENT _SPAN_M_B section_number "." section_subtitle?
section_subtitle: TEXT (LINE _SPAN_M_B TEXT)*

NAT: /[1-9][0-9]*/
NAT1: /[1-9][0-9]*\.[0-9]+/
TEXT: /.+/
UPPER: /[^a-z]+/
`

const statuteFooter = `
footer: _LINE _SPAN_M CITATION _page _uncertified
_page: _LINE _INDENT* _SPAN_M /Page\s+[1-9][0-9]*\s+of\s+[1-9][0-9]*/
_uncertified: _LINE _INDENT* _SPAN_M "Uncertified Printout"
CITATION: "Colorado Revised Statutes 2024"
`

func decode(t *testing.T, lines ...string) []tokenstream.Token {
	t.Helper()
	tokens, err := tokenstream.DecodeString(strings.Join(lines, "\n") + "\n")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return tokens
}

func partSevenFragment(t *testing.T) []tokenstream.Token {
	return decode(t,
		"<<LINE (4, 2, 0)>>", "<<SPAN_M>>", "PART 7",
		"<<LINE (4, 3, 0)>>", "<<SPAN_M>>", "ENACTMENT OF LAWS REGARDING",
		"<<LINE (4, 3, 1)>>", "<<INDENT>>", "<<SPAN_M>>", "SENTENCING OF CRIMINAL OFFENDERS",
		"<<LINE (4, 4, 0)>>", "<<INDENT>>", "<<SPAN_M_B>>", "2-2-701.  General assembly - bills regarding the sentencing of",
		"<<LINE (4, 4, 1)>>", "<<SPAN_M_B>>", "criminal offenders - legislative intent - definition.",
		"<<LINE (4, 4, 2)>>", "<<INDENT>>", "<<SPAN_M>>", "(1) The general assembly finds and declares that",
		"<<LINE (4, 4, 3)>>", "<<SPAN_M>>", "the sentencing of offenders is a matter of statewide concern.",
	)
}

func TestScan_PartAndSection(t *testing.T) {
	s, err := NewHeadingScanner(statuteHeadings, "heading", statuteTypes)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	got, err := s.Scan(partSevenFragment(t))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []outline.Heading{
		{Type: "part", Label: "PART 7", Subtitle: "ENACTMENT OF LAWS REGARDING SENTENCING OF CRIMINAL OFFENDERS"},
		{Type: "section", Label: "2-2-701", Subtitle: "General assembly - bills regarding the sentencing of criminal offenders - legislative intent - definition."},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d headings, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("heading %d:\nwant %+v\ngot  %+v", i, want[i], got[i])
		}
	}
}

func TestScan_CountsPages(t *testing.T) {
	s, err := NewHeadingScanner(statuteHeadings, "heading", statuteTypes)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	tokens := decode(t,
		"<<PAGE 0>>",
		"<<LINE>>", "<<SPAN_L>>", "TITLE 2",
		"<<LINE>>", "<<SPAN_M>>", "GENERAL ASSEMBLY",
		"<<PAGE 1>>",
		"<<LINE>>", "<<SPAN_M>>", "body text on page two",
		"<<PAGE 2>>",
		"<<LINE>>", "<<SPAN_M_B>>", "ARTICLE 1",
		"<<LINE>>", "<<SPAN_M>>", "General Assembly",
	)
	got, err := s.Scan(tokens)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 headings, got %v", got)
	}
	if got[0].Type != "title" || got[0].Label != "TITLE 2" || got[0].Page != 1 {
		t.Errorf("unexpected title heading %+v", got[0])
	}
	if got[1].Type != "article" || got[1].Subtitle != "General Assembly" || got[1].Page != 3 {
		t.Errorf("unexpected article heading %+v", got[1])
	}
}

func TestScan_MatchStartingWithPageMarker(t *testing.T) {
	const chapters = `
heading: chapter_start
chapter_start: _PAGE _LINE _SPAN_M chapter_number
!chapter_number: "CHAPTER " NAT
NAT: /[1-9][0-9]*/
`
	s, err := NewHeadingScanner(chapters, "heading", outline.TypeList{"chapter"})
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	tokens := decode(t,
		"<<PAGE 0>>", "<<LINE>>", "<<SPAN_M>>", "CHAPTER 1",
		"<<PAGE 1>>", "<<LINE>>", "<<SPAN_M>>", "CHAPTER 2",
	)
	got, err := s.Scan(tokens)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 headings, got %+v", got)
	}
	for i, want := range []int{1, 2} {
		if got[i].Page != want {
			t.Errorf("heading %d (%s): expected page %d, got %d", i, got[i].Label, want, got[i].Page)
		}
	}
}

func TestScan_NoHeadings(t *testing.T) {
	s, err := NewHeadingScanner(statuteHeadings, "heading", statuteTypes)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	got, err := s.Scan(decode(t, "<<PAGE 0>>", "<<LINE>>", "<<SPAN_M>>", "nothing to see"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no headings, got %v", got)
	}
	if got, _ := s.Scan(nil); len(got) != 0 {
		t.Errorf("expected no headings for an empty stream")
	}
}

func TestNewHeadingScanner_ConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		types outline.TypeList
	}{
		{
			name:  "type missing from list",
			src:   statuteHeadings,
			types: outline.TypeList{"title", "article", "section"},
		},
		{
			name:  "missing number rule",
			src:   "heading: chapter_start\nchapter_start: _SPAN_L TEXT\nTEXT: /.+/",
			types: outline.TypeList{"chapter"},
		},
		{
			name:  "no start rules",
			src:   "heading: LINE",
			types: statuteTypes,
		},
		{
			name:  "conflicting grammar",
			src:   "heading: a_start | b_start\na_start: LINE\nb_start: LINE",
			types: outline.TypeList{"a", "b"},
		},
		{
			name:  "empty type list",
			src:   statuteHeadings,
			types: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHeadingScanner(tt.src, "heading", tt.types)
			var ce *grammar.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
}

func TestCleaner_RemovesFooter(t *testing.T) {
	c, err := NewCleaner(statuteFooter, "footer")
	if err != nil {
		t.Fatalf("new cleaner: %v", err)
	}
	before := []string{"<<LINE (0, 5, 0)>>", "<<INDENT>>", "<<SPAN_M>>", "(2) The first body line."}
	footer := []string{
		"<<LINE (0, 6, 0)>>", "<<SPAN_M>>", "Colorado Revised Statutes 2024",
		"<<LINE (0, 6, 1)>>", "<<INDENT>>", "<<INDENT>>", "<<SPAN_M>>", "Page 3 of 101",
		"<<LINE (0, 6, 2)>>", "<<INDENT>>", "<<SPAN_M>>", "Uncertified Printout",
	}
	after := []string{"<<PAGE 1>>", "<<LINE (1, 0, 0)>>", "<<SPAN_M>>", "(3) The second body line."}

	var all []string
	all = append(all, before...)
	all = append(all, footer...)
	all = append(all, after...)
	tokens := decode(t, all...)

	cleaned, removed := c.Clean(tokens)
	if removed != 1 {
		t.Errorf("expected 1 removal, got %d", removed)
	}
	want := decode(t, append(append([]string{}, before...), after...)...)
	if !tokenstream.Equal(want, cleaned) {
		t.Errorf("unexpected cleaned stream:\nwant %v\ngot  %v", want, cleaned)
	}
	if len(tokens) != len(before)+len(footer)+len(after) {
		t.Errorf("input was modified")
	}
}

func TestCleaner_KeepsNearMisses(t *testing.T) {
	c, err := NewCleaner(statuteFooter, "footer")
	if err != nil {
		t.Fatalf("new cleaner: %v", err)
	}
	tokens := decode(t,
		"<<LINE>>", "<<SPAN_M>>", "Colorado Revised Statutes 2024",
		"<<LINE>>", "<<SPAN_M>>", "Page 3 of 101",
		"<<LINE>>", "<<SPAN_M>>", "Certified Printout",
	)
	cleaned, removed := c.Clean(tokens)
	if removed != 0 || !tokenstream.Equal(tokens, cleaned) {
		t.Errorf("expected stream to pass through, removed %d", removed)
	}
}

func TestCleaner_ZeroLengthMatchesAreIgnored(t *testing.T) {
	c, err := NewCleaner("footer: _LINE*", "footer")
	if err != nil {
		t.Fatalf("new cleaner: %v", err)
	}
	tokens := decode(t, "body", "<<LINE>>", "<<LINE>>", "more")
	cleaned, removed := c.Clean(tokens)
	if removed != 1 {
		t.Errorf("expected the LINE run to be removed once, got %d", removed)
	}
	if len(cleaned) != 2 || cleaned[0].Text != "body" || cleaned[1].Text != "more" {
		t.Errorf("unexpected cleaned stream %v", cleaned)
	}
}
