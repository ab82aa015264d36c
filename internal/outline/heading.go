// Package outline turns flat heading lists into page-ranged trees.
package outline

import (
	"fmt"
	"strings"
)

// Heading is one detected structural boundary.
type Heading struct {
	Type     string `json:"type"`
	Label    string `json:"text"`
	Subtitle string `json:"sub_text"`
	Page     int    `json:"page"` // 1-indexed
}

func (h Heading) String() string {
	if h.Subtitle == "" {
		return fmt.Sprintf("%s %q (page %d)", h.Type, h.Label, h.Page)
	}
	return fmt.Sprintf("%s %q %q (page %d)", h.Type, h.Label, h.Subtitle, h.Page)
}

// TypeList orders heading types from shallowest to deepest. A type's index
// is its hierarchy level.
type TypeList []string

// Level returns the hierarchy level of t.
func (l TypeList) Level(t string) (int, bool) {
	for i, name := range l {
		if name == t {
			return i, true
		}
	}
	return 0, false
}

// Validate rejects empty lists, blank names and duplicates.
func (l TypeList) Validate() error {
	if len(l) == 0 {
		return fmt.Errorf("heading type list is empty")
	}
	seen := make(map[string]bool, len(l))
	for _, name := range l {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("heading type list contains a blank name")
		}
		if seen[name] {
			return fmt.Errorf("heading type %q listed twice", name)
		}
		seen[name] = true
	}
	return nil
}

// Outline is a flat, document-ordered heading list together with the type
// hierarchy it was extracted against. Both the grammar scanner and the
// cloud extractor produce one.
type Outline struct {
	Types    TypeList  `json:"header_types"`
	Headings []Heading `json:"headers"`
}

// NormalizePages shifts every page by one when the first heading sits on
// page 0, for producers that count pages from zero. It reports whether a
// shift was applied.
func (o *Outline) NormalizePages() bool {
	if len(o.Headings) == 0 || o.Headings[0].Page != 0 {
		return false
	}
	for i := range o.Headings {
		o.Headings[i].Page++
	}
	return true
}

// CheckTypes returns an *UnknownTypeError for the first heading whose type
// is not in o.Types.
func (o Outline) CheckTypes() error {
	for i, h := range o.Headings {
		if _, ok := o.Types.Level(h.Type); !ok {
			return &UnknownTypeError{Type: h.Type, Index: i, Known: o.Types}
		}
	}
	return nil
}
