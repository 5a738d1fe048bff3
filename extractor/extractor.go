// Package extractor turns a fetched HTML document into records.
package extractor

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/microcosm-cc/bluemonday"
	"github.com/valkyraycho/page-etl/recordstore/record"
)

var repeatedSpaceRegex = regexp.MustCompile(`\s+`)

// Extractor pulls one record out of every container matched by its
// selectors. Containers missing a field are skipped.
type Extractor struct {
	sel       Selectors
	sourceURL string
	policy    *bluemonday.Policy
	logger    *log.Logger
}

// New returns an extractor that stamps every record with sourceURL.
func New(sel Selectors, sourceURL string, logger *log.Logger) (*Extractor, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Extractor{
		sel:       sel,
		sourceURL: sourceURL,
		policy:    bluemonday.StrictPolicy(),
		logger:    logger,
	}, nil
}

// Extract parses htmlText and returns the records found in it. It returns an
// empty slice when the input is empty, cannot be parsed or holds no
// containers.
func (e *Extractor) Extract(htmlText string) []*record.Record {
	if strings.TrimSpace(htmlText) == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		e.logger.Error("Could not parse HTML document", "err", err)
		return nil
	}

	containers := doc.Find(e.sel.Container)
	if containers.Length() == 0 {
		e.logger.Warnf("No fragments matching %q found on the page. Check website structure or URL.", e.sel.Container)
		return nil
	}

	records := make([]*record.Record, 0, containers.Length())
	containers.Each(func(i int, fragment *goquery.Selection) {
		title, ok := e.field(fragment, e.sel.Title)
		if !ok {
			e.logger.Warn("Skipping a fragment due to missing element", "index", i, "field", "title", "selector", e.sel.Title)
			return
		}

		content, ok := e.field(fragment, e.sel.Content)
		if !ok {
			e.logger.Warn("Skipping a fragment due to missing element", "index", i, "field", "content", "selector", e.sel.Content)
			return
		}

		records = append(records, &record.Record{
			Title:     title,
			SourceURL: e.sourceURL,
			Content:   content,
		})
	})

	e.logger.Debug("Extracted records", "matched", containers.Length(), "kept", len(records))
	return records
}

// field returns the normalised text of the first element matching selector
// within fragment. ok is false when nothing matches.
func (e *Extractor) field(fragment *goquery.Selection, selector string) (string, bool) {
	match := fragment.Find(selector).First()
	if match.Length() == 0 {
		return "", false
	}

	inner, err := match.Html()
	if err != nil {
		return strings.TrimSpace(match.Text()), true
	}

	return strings.TrimSpace(html.UnescapeString(repeatedSpaceRegex.ReplaceAllString(
		e.policy.Sanitize(inner), " ",
	))), true
}
