package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dgallion1/docsplit/internal/outline"
)

// OutlineSchema is the JSON Schema a reply must satisfy before it is
// decoded.
const OutlineSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["header_types", "headers"],
  "properties": {
    "header_types": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    },
    "headers": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type", "text", "page"],
        "properties": {
          "type": {"type": "string", "minLength": 1},
          "text": {"type": "string"},
          "sub_text": {"type": "string"},
          "page": {"type": "integer", "minimum": 1}
        }
      }
    }
  }
}`

var outlineSchema = jsonschema.MustCompileString("outline.json", OutlineSchema)

// decodeOutline validates raw against OutlineSchema and decodes it. Label
// and subtitle whitespace, including embedded newlines, collapses to single
// spaces and type names are lowercased.
func decodeOutline(raw string) (outline.Outline, error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return outline.Outline{}, fmt.Errorf("parse outline json: %w (raw: %s)", err, truncate(raw, 200))
	}
	if err := outlineSchema.Validate(doc); err != nil {
		return outline.Outline{}, fmt.Errorf("outline does not match schema: %w", err)
	}

	var o outline.Outline
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return outline.Outline{}, fmt.Errorf("decode outline: %w", err)
	}
	for i, t := range o.Types {
		o.Types[i] = strings.ToLower(strings.TrimSpace(t))
	}
	for i := range o.Headings {
		h := &o.Headings[i]
		h.Type = strings.ToLower(strings.TrimSpace(h.Type))
		h.Label = collapse(h.Label)
		h.Subtitle = collapse(h.Subtitle)
	}
	return o, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// MissingLabels returns the headings whose label does not occur in the text
// of the page they point at. pages[0] is page 1. A missing label is only a
// hint: running footers or hyphenation can split a label across lines.
func MissingLabels(o outline.Outline, pages []string) []outline.Heading {
	var missing []outline.Heading
	for _, h := range o.Headings {
		if h.Page < 1 || h.Page > len(pages) {
			missing = append(missing, h)
			continue
		}
		if !strings.Contains(collapse(pages[h.Page-1]), h.Label) {
			missing = append(missing, h)
		}
	}
	return missing
}
