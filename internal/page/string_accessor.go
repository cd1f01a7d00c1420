package page

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// StringAccessor answers queries from a single tokenizer pass over raw HTML.
type StringAccessor struct {
	url    string
	markup string

	text     string
	metas    map[string]string
	title    string
	heading  string
	ldBlocks []string
}

// NewStringAccessor tokenizes markup once and keeps what strategies need.
func NewStringAccessor(pageURL, markup string) *StringAccessor {
	a := &StringAccessor{
		url:    pageURL,
		markup: markup,
		metas:  make(map[string]string),
	}
	a.scan()
	return a
}

func (a *StringAccessor) URL() string          { return a.url }
func (a *StringAccessor) Markup() string       { return a.markup }
func (a *StringAccessor) Text() string         { return a.text }
func (a *StringAccessor) TitleTag() string     { return a.title }
func (a *StringAccessor) FirstHeading() string { return a.heading }
func (a *StringAccessor) DOM() bool            { return false }

// Query is unsupported without a DOM.
func (a *StringAccessor) Query(string) []Element { return nil }

func (a *StringAccessor) Meta(key string) string {
	return a.metas[strings.ToLower(key)]
}

func (a *StringAccessor) JSONLD() []string {
	out := make([]string, len(a.ldBlocks))
	copy(out, a.ldBlocks)
	return out
}

func (a *StringAccessor) scan() {
	z := html.NewTokenizer(strings.NewReader(a.markup))

	var (
		visible   []string
		title     strings.Builder
		heading   strings.Builder
		hidden    int
		inTitle   bool
		inHeading bool
		headDone  bool
		inLD      bool
	)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			a.text = collapse(strings.Join(visible, " "))
			a.title = collapse(title.String())
			a.heading = collapse(heading.String())
			return

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Meta:
				a.addMeta(tok.Attr)
			case atom.Title:
				inTitle = tt == html.StartTagToken
			case atom.H1:
				if !headDone && tt == html.StartTagToken {
					inHeading = true
				}
			case atom.Script:
				if tt == html.StartTagToken {
					hidden++
					inLD = strings.EqualFold(strings.TrimSpace(attr(tok.Attr, "type")), "application/ld+json")
				}
			case atom.Style, atom.Noscript, atom.Template:
				if tt == html.StartTagToken {
					hidden++
				}
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Title:
				inTitle = false
			case atom.H1:
				if inHeading {
					inHeading = false
					headDone = true
				}
			case atom.Script:
				inLD = false
				if hidden > 0 {
					hidden--
				}
			case atom.Style, atom.Noscript, atom.Template:
				if hidden > 0 {
					hidden--
				}
			}

		case html.TextToken:
			raw := string(z.Text())
			switch {
			case inLD:
				if body := strings.TrimSpace(raw); body != "" {
					a.ldBlocks = append(a.ldBlocks, body)
				}
			case hidden > 0:
			case inTitle:
				title.WriteString(raw)
			default:
				if inHeading {
					heading.WriteString(raw)
					heading.WriteByte(' ')
				}
				if s := strings.TrimSpace(raw); s != "" {
					visible = append(visible, s)
				}
			}
		}
	}
}

func (a *StringAccessor) addMeta(attrs []html.Attribute) {
	content := strings.TrimSpace(attr(attrs, "content"))
	if content == "" {
		return
	}
	for _, keyAttr := range []string{"property", "name", "itemprop"} {
		key := strings.ToLower(strings.TrimSpace(attr(attrs, keyAttr)))
		if key == "" {
			continue
		}
		if _, seen := a.metas[key]; !seen {
			a.metas[key] = content
		}
	}
}

func attr(attrs []html.Attribute, name string) string {
	for _, at := range attrs {
		if strings.EqualFold(at.Key, name) {
			return at.Val
		}
	}
	return ""
}

// collapse trims s and folds every whitespace run into one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
