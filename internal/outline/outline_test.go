package outline

import (
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"
)

var coTypes = TypeList{"title", "article", "part", "section"}

func fiftyPageOutline() Outline {
	return Outline{
		Types: coTypes,
		Headings: []Heading{
			{Type: "title", Label: "TITLE 2", Subtitle: "GENERAL ASSEMBLY", Page: 1},
			{Type: "article", Label: "ARTICLE 1", Subtitle: "Sessions", Page: 10},
			{Type: "article", Label: "ARTICLE 2", Subtitle: "Legislative Procedure", Page: 30},
		},
	}
}

func TestBuild_FiftyPages(t *testing.T) {
	tree, err := Build(fiftyPageOutline(), 50, BuildOptions{OmitPreamble: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	root := tree.Root()
	if root.Start != 1 || root.End != 50 {
		t.Errorf("root: expected [1,50], got [%d,%d]", root.Start, root.End)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(root.Children))
	}
	a1, a2 := tree.Node(root.Children[0]), tree.Node(root.Children[1])
	if a1.Start != 10 || a1.End != 29 {
		t.Errorf("first article: expected [10,29], got [%d,%d]", a1.Start, a1.End)
	}
	if a2.Start != 30 || a2.End != 50 {
		t.Errorf("second article: expected [30,50], got [%d,%d]", a2.Start, a2.End)
	}
	if a1.Parent != 0 || a2.Parent != 0 {
		t.Errorf("articles should point at the root")
	}
}

func TestBuild_PreambleCompletesPartition(t *testing.T) {
	tree, err := Build(fiftyPageOutline(), 50, BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	root := tree.Root()
	if len(root.Children) != 3 {
		t.Fatalf("expected preamble plus 2 articles, got %d children", len(root.Children))
	}
	pre := tree.Node(root.Children[0])
	if !pre.Preamble || pre.Start != 1 || pre.End != 9 {
		t.Errorf("expected preamble [1,9], got %+v", pre)
	}
	if pre.Heading != root.Heading {
		t.Errorf("preamble should repeat the root heading")
	}
	if err := tree.Verify(); err != nil {
		t.Errorf("verify: %v", err)
	}
}

func TestBuild_SamePageSiblings(t *testing.T) {
	o := Outline{Types: coTypes, Headings: []Heading{
		{Type: "title", Label: "TITLE 1", Page: 1},
		{Type: "section", Label: "1-1-101", Page: 1},
		{Type: "section", Label: "1-1-102", Page: 1},
		{Type: "section", Label: "1-1-103", Page: 2},
	}}
	tree, err := Build(o, 3, BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	kids := tree.Root().Children
	if len(kids) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(kids))
	}
	first := tree.Node(kids[0])
	if !first.Empty() || first.Pages() != 0 {
		t.Errorf("expected empty range for 1-1-101, got [%d,%d]", first.Start, first.End)
	}
	second := tree.Node(kids[1])
	if second.Start != 1 || second.End != 1 {
		t.Errorf("expected [1,1] for 1-1-102, got [%d,%d]", second.Start, second.End)
	}
	if err := tree.Verify(); err != nil {
		t.Errorf("verify: %v", err)
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		heads   []Heading
		total   int
		opts    BuildOptions
		checkFn func(error) bool
	}{
		{
			name:    "empty",
			checkFn: func(err error) bool { return errors.Is(err, ErrEmptyOutline) },
			total:   10,
		},
		{
			name:  "first page",
			heads: []Heading{{Type: "title", Page: 2}},
			total: 10,
			checkFn: func(err error) bool {
				var e *FirstPageError
				return errors.As(err, &e) && e.Page == 2
			},
		},
		{
			name:  "page zero without normalization",
			heads: []Heading{{Type: "title", Page: 0}},
			total: 10,
			checkFn: func(err error) bool {
				var e *FirstPageError
				return errors.As(err, &e)
			},
		},
		{
			name: "sibling of root",
			heads: []Heading{
				{Type: "article", Label: "ARTICLE 1", Page: 1},
				{Type: "part", Label: "PART 1", Page: 2},
				{Type: "title", Label: "TITLE 3", Page: 5},
			},
			total: 10,
			checkFn: func(err error) bool {
				var e *HierarchyError
				return errors.As(err, &e) && e.Heading.Label == "TITLE 3" && e.Index == 2
			},
		},
		{
			name: "unknown type",
			heads: []Heading{
				{Type: "title", Page: 1},
				{Type: "chapter", Page: 2},
			},
			total: 10,
			checkFn: func(err error) bool {
				var e *UnknownTypeError
				return errors.As(err, &e) && e.Type == "chapter" && e.Index == 1
			},
		},
		{
			name: "pages go backwards",
			heads: []Heading{
				{Type: "title", Page: 1},
				{Type: "article", Page: 5},
				{Type: "article", Page: 4},
			},
			total: 10,
			checkFn: func(err error) bool {
				var e *PageOrderError
				return errors.As(err, &e) && e.Index == 2 && e.Prev == 5
			},
		},
		{
			name: "past last page",
			heads: []Heading{
				{Type: "title", Page: 1},
				{Type: "article", Page: 11},
			},
			total: 10,
			checkFn: func(err error) bool {
				var e *PageOrderError
				return errors.As(err, &e) && strings.Contains(e.Error(), "past the last page")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(Outline{Types: coTypes, Headings: tt.heads}, tt.total, tt.opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.checkFn(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestBuild_NormalizeZeroPage(t *testing.T) {
	o := Outline{Types: coTypes, Headings: []Heading{
		{Type: "title", Page: 0},
		{Type: "article", Page: 4},
	}}
	tree, err := Build(o, 10, BuildOptions{NormalizeZeroPage: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	art := tree.Node(tree.Root().Children[len(tree.Root().Children)-1])
	if art.Start != 5 {
		t.Errorf("expected article to move to page 5, got %d", art.Start)
	}
	if o.Headings[0].Page != 0 {
		t.Errorf("Build must not modify the caller's headings")
	}
}

func TestOutline_NormalizePages(t *testing.T) {
	o := Outline{Types: coTypes, Headings: []Heading{{Type: "title", Page: 1}}}
	if o.NormalizePages() {
		t.Error("expected no shift when the first heading is on page 1")
	}
	o.Headings[0].Page = 0
	if !o.NormalizePages() || o.Headings[0].Page != 1 {
		t.Error("expected a shift to page 1")
	}
}

func TestTree_Path(t *testing.T) {
	o := Outline{Types: coTypes, Headings: []Heading{
		{Type: "title", Label: "TITLE 2", Page: 1},
		{Type: "article", Label: "ARTICLE 2", Page: 1},
		{Type: "part", Label: "PART 7", Page: 3},
		{Type: "section", Label: "2-2-701", Page: 3},
	}}
	tree, err := Build(o, 5, BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var labels []string
	for _, id := range tree.Path(3) {
		labels = append(labels, tree.Node(id).Heading.Label)
	}
	if got := strings.Join(labels, "/"); got != "TITLE 2/ARTICLE 2/PART 7/2-2-701" {
		t.Errorf("unexpected path %s", got)
	}
}

// Random heading lists that Build accepts must always produce a partition.
func TestBuild_PartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 300; iter++ {
		total := 1 + rng.Intn(80)
		heads := []Heading{{Type: "title", Label: "TITLE", Page: 1}}
		page := 1
		for n := rng.Intn(25); n > 0; n-- {
			page += rng.Intn(4)
			if page > total {
				page = total
			}
			heads = append(heads, Heading{Type: coTypes[1+rng.Intn(3)], Label: "H", Page: page})
		}
		tree, err := Build(Outline{Types: coTypes, Headings: heads}, total, BuildOptions{})
		if err != nil {
			t.Fatalf("iteration %d: build: %v", iter, err)
		}
		if err := tree.Verify(); err != nil {
			t.Fatalf("iteration %d: %v", iter, err)
		}
	}
}

func TestRenderOutline_ParseMarkdown(t *testing.T) {
	o := Outline{Types: coTypes, Headings: []Heading{
		{Type: "title", Label: "TITLE 2", Subtitle: "GENERAL ASSEMBLY", Page: 1},
		{Type: "part", Label: "PART 7", Subtitle: "ENACTMENT OF LAWS", Page: 3},
		{Type: "section", Label: "2-2-701", Subtitle: "General assembly - bills - definition.", Page: 3},
		{Type: "section", Label: "2-2-702", Page: 4},
	}}
	rendered := RenderOutline(o)
	lines := strings.Split(strings.TrimSpace(rendered), "\n")
	if lines[1] != "### PART 7 - ENACTMENT OF LAWS (page 3)" {
		t.Errorf("unexpected line %q", lines[1])
	}

	back, err := ParseMarkdown([]byte(rendered), coTypes)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(back.Headings) != len(o.Headings) {
		t.Fatalf("expected %d headings, got %d", len(o.Headings), len(back.Headings))
	}
	for i := range o.Headings {
		if back.Headings[i] != o.Headings[i] {
			t.Errorf("heading %d: expected %+v, got %+v", i, o.Headings[i], back.Headings[i])
		}
	}
}

func TestParseMarkdown_Errors(t *testing.T) {
	if _, err := ParseMarkdown([]byte("some notes only\n"), coTypes); !errors.Is(err, ErrEmptyOutline) {
		t.Errorf("expected ErrEmptyOutline, got %v", err)
	}
	if _, err := ParseMarkdown([]byte("# TITLE 1 without a page\n"), coTypes); err == nil {
		t.Error("expected error for heading without page")
	}
	if _, err := ParseMarkdown([]byte("##### TOO DEEP - x (page 1)\n"), coTypes); err == nil {
		t.Error("expected error for level beyond the type list")
	}
}

func TestTree_MarkdownAndJSON(t *testing.T) {
	tree, err := Build(fiftyPageOutline(), 50, BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	md := tree.Markdown()
	want := "# TITLE 2 (GENERAL ASSEMBLY)\n\n## ARTICLE 1 (Sessions)\n\n## ARTICLE 2 (Legislative Procedure)\n\n"
	if md != want {
		t.Errorf("markdown:\nwant %q\ngot  %q", want, md)
	}

	data, err := json.Marshal(tree)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Header    Heading `json:"header"`
		PageRange [2]int  `json:"page_range"`
		Children  []struct {
			PageRange [2]int `json:"page_range"`
			Preamble  bool   `json:"preamble"`
		} `json:"children"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Header.Label != "TITLE 2" || decoded.PageRange != [2]int{1, 50} {
		t.Errorf("unexpected root: %+v", decoded)
	}
	if len(decoded.Children) != 3 || !decoded.Children[0].Preamble || decoded.Children[2].PageRange != [2]int{30, 50} {
		t.Errorf("unexpected children: %+v", decoded.Children)
	}
}
