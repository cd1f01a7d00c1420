package page

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DocumentAccessor wraps a parsed goquery document. Text-level queries are
// answered from the serialized document so both accessors agree on them.
type DocumentAccessor struct {
	*StringAccessor
	doc *goquery.Document
}

// NewDocumentAccessor wraps an already parsed or rendered document.
func NewDocumentAccessor(pageURL string, doc *goquery.Document) *DocumentAccessor {
	markup, err := doc.Html()
	if err != nil {
		markup = ""
	}
	return &DocumentAccessor{
		StringAccessor: NewStringAccessor(pageURL, markup),
		doc:            doc,
	}
}

// ParseDocument parses markup with goquery and wraps the result.
func ParseDocument(pageURL, markup string) (*DocumentAccessor, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return NewDocumentAccessor(pageURL, doc), nil
}

func (a *DocumentAccessor) DOM() bool { return true }

// Document returns the wrapped goquery document.
func (a *DocumentAccessor) Document() *goquery.Document { return a.doc }

// Query snapshots every element matching selector in document order.
// Invalid selectors match nothing.
func (a *DocumentAccessor) Query(selector string) []Element {
	var out []Element
	a.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, snapshot(s))
	})
	return out
}

func snapshot(s *goquery.Selection) Element {
	el := Element{
		Tag:         goquery.NodeName(s),
		Class:       s.AttrOr("class", ""),
		ParentClass: s.Parent().AttrOr("class", ""),
		Text:        collapse(s.Text()),
		RawText:     strings.TrimSpace(s.Text()),
		Attrs:       make(map[string]string),
	}
	if len(s.Nodes) > 0 {
		for _, at := range s.Nodes[0].Attr {
			el.Attrs[strings.ToLower(at.Key)] = at.Val
		}
	}
	return el
}
