package layout

import (
	"fmt"
	"io"

	"github.com/dgallion1/docsplit/internal/tokenstream"
)

// TokenFileProducer reads an already rendered token stream.
type TokenFileProducer struct{}

func (p *TokenFileProducer) Parse(r io.Reader, filename string) (*Document, error) {
	tokens, err := tokenstream.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	pages := tokenstream.CountPages(tokens)
	if pages == 0 {
		pages = 1
	}
	return &Document{Title: baseName(filename), Pages: pages, Tokens: tokens}, nil
}
