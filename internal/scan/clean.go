package scan

import (
	"github.com/dgallion1/docsplit/internal/grammar"
	"github.com/dgallion1/docsplit/internal/tokenstream"
)

// Cleaner removes recurring boilerplate, such as running page footers,
// described by a grammar.
type Cleaner struct {
	g *grammar.Grammar
}

// NewCleaner compiles the boilerplate grammar.
func NewCleaner(src, start string) (*Cleaner, error) {
	g, err := grammar.Compile(src, start)
	if err != nil {
		return nil, err
	}
	return &Cleaner{g: g}, nil
}

// Clean returns a copy of tokens with every non-overlapping occurrence of
// the pattern removed, and the number of occurrences removed. The input is
// not modified.
func (c *Cleaner) Clean(tokens []tokenstream.Token) ([]tokenstream.Token, int) {
	out := make([]tokenstream.Token, 0, len(tokens))
	removed := 0
	for pos := 0; pos < len(tokens); {
		if m, ok := c.g.Longest(tokens[pos:]); ok && m.Length > 0 {
			pos += m.Length
			removed++
			continue
		}
		out = append(out, tokens[pos])
		pos++
	}
	return out, removed
}
