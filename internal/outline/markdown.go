package outline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var outlineLineRe = regexp.MustCompile(`^(.*?)(?: - (.*?))?\s*\(page (\d+)\)$`)

// ParseMarkdown reads an outline in the RenderOutline format back into
// headings. The markdown heading level selects the type: "#" is types[0],
// "##" is types[1] and so on. Non-heading blocks are ignored, so a hand
// edited outline may carry notes between headings.
func ParseMarkdown(src []byte, types TypeList) (Outline, error) {
	if err := types.Validate(); err != nil {
		return Outline{}, err
	}
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	o := Outline{Types: types}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		heading, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		title := strings.TrimSpace(string(heading.Text(src)))
		if heading.Level > len(types) {
			return Outline{}, fmt.Errorf("outline heading %q: level %d has no type (%d types)", title, heading.Level, len(types))
		}
		m := outlineLineRe.FindStringSubmatch(title)
		if m == nil {
			return Outline{}, fmt.Errorf("outline heading %q: expected \"label - subtitle (page N)\"", title)
		}
		page, err := strconv.Atoi(m[3])
		if err != nil {
			return Outline{}, fmt.Errorf("outline heading %q: bad page: %w", title, err)
		}
		o.Headings = append(o.Headings, Heading{
			Type:     types[heading.Level-1],
			Label:    strings.TrimSpace(m[1]),
			Subtitle: strings.TrimSpace(m[2]),
			Page:     page,
		})
	}
	if len(o.Headings) == 0 {
		return Outline{}, ErrEmptyOutline
	}
	return o, nil
}
