package extract

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docsplit/internal/outline"
)

const SystemPrompt = `You read legal documents and report their table of contents as JSON. Respond with ONLY the JSON object, no other text.`

const OutlinePrompt = `This document is a body of law. Its text has a hierarchy of headings, for example:
Title
Article
Part
Section (labeled like 1-10-24)

Determine the names of the heading types that appear in the document and extract its table of contents.
Do not list sections; stop at the level above sections.

Return a JSON object structured as follows:
{
    "header_types": ["title", "article", "part"],
    "headers": [
        {"type": "title", "text": "TITLE 1", "sub_text": "GENERAL PROVISIONS", "page": 1},
        {"type": "article", "text": "ARTICLE 1", "sub_text": "Property Ceded to United States", "page": 2},
        {"type": "part", "text": "PART 1", "sub_text": "PROFESSIONS AND OCCUPATIONS", "page": 3}
    ]
}

Rules:
- "header_types" lists the heading type names, lowercase, outermost first
- "type" must be one of the names in "header_types"
- "text" is the heading label (e.g. "TITLE 3")
- "sub_text" is the descriptive text that follows the label, or "" if there is none
- "page" is the page the heading appears on; the first page is page 1
- Headers appear in document order`

// BuildOutlinePrompt creates the user message: instructions, the optional
// fixed type list, then every page's text under a page separator.
func BuildOutlinePrompt(title string, pages []string, types outline.TypeList) string {
	var sb strings.Builder
	sb.WriteString(OutlinePrompt)
	if len(types) > 0 {
		fmt.Fprintf(&sb, "\n- Use exactly these header types: %s", strings.Join(types, ", "))
	}
	sb.WriteString("\n\n---\n")
	fmt.Fprintf(&sb, "Document: %q\n", title)
	for i, text := range pages {
		fmt.Fprintf(&sb, "\n=== Page %d ===\n", i+1)
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String()
}
