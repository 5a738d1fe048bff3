package extractor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptySelector is returned by Selectors.Validate when one of the
// selectors is blank.
var ErrEmptySelector = errors.New("empty selector")

// Selectors describes the page shape records are extracted from: a repeated
// container element and the nested elements holding each record field.
type Selectors struct {
	// Container matches one element per record.
	Container string

	// Title and Content are evaluated relative to a container. The first
	// match of each is used.
	Title   string
	Content string
}

// QuoteSelectors matches the markup of quotes.toscrape.com: the author
// becomes the record title and the quote text its content.
var QuoteSelectors = Selectors{
	Container: "div.quote",
	Title:     "small.author",
	Content:   "span.text",
}

// Validate ensures that every selector is set.
func (s Selectors) Validate() error {
	for _, field := range []struct{ name, sel string }{
		{"container", s.Container},
		{"title", s.Title},
		{"content", s.Content},
	} {
		if strings.TrimSpace(field.sel) == "" {
			return fmt.Errorf("%s selector: %w", field.name, ErrEmptySelector)
		}
	}
	return nil
}
