// Package page exposes the query primitives extraction strategies run against.
//
// StringAccessor serves fetched HTML where only tokenizer-level access exists.
// DocumentAccessor adds selector queries over a parsed DOM, which is what the
// rendered and browser-context paths hand in. Strategies that need selectors
// call Query and get nil under StringAccessor.
package page

import "strings"

// Accessor is the capability interface over a single page.
type Accessor interface {
	// URL returns the page URL.
	URL() string
	// Markup returns the raw HTML.
	Markup() string
	// Text returns the visible text with whitespace collapsed.
	Text() string
	// Meta returns the content of the first meta tag whose name or property
	// equals key, case-insensitively.
	Meta(key string) string
	// TitleTag returns the text of the <title> element.
	TitleTag() string
	// FirstHeading returns the text of the first <h1> element.
	FirstHeading() string
	// JSONLD returns the bodies of application/ld+json script blocks.
	JSONLD() []string
	// Query returns the elements matching a CSS selector, or nil when no DOM
	// is available.
	Query(selector string) []Element
	// DOM reports whether Query is supported.
	DOM() bool
}

// Element is a detached snapshot of a DOM node.
type Element struct {
	Tag         string
	Class       string
	ParentClass string
	Text        string
	// RawText is the trimmed text with its original line breaks.
	RawText     string
	Attrs       map[string]string
}

// Attr returns the attribute value or "".
func (e Element) Attr(name string) string {
	return e.Attrs[strings.ToLower(name)]
}

// ClassContains reports whether the element's or its parent's class
// contains any of the given lowercase fragments.
func (e Element) ClassContains(fragments ...string) bool {
	own := strings.ToLower(e.Class)
	parent := strings.ToLower(e.ParentClass)
	for _, f := range fragments {
		if strings.Contains(own, f) || strings.Contains(parent, f) {
			return true
		}
	}
	return false
}
