package extractor

import (
	"strings"
	"unicode/utf8"

	"sjsage522/salewatch/helpers"
	"sjsage522/salewatch/internal/page"
)

const minTitleLen = 3

var titleStrategies = []Strategy[string]{
	metaTitle("og:title"),
	metaTitle("twitter:title"),
	titleTag,
	firstHeading,
}

var imageStrategies = []Strategy[string]{
	metaImage("og:image"),
	metaImage("twitter:image"),
	productImage,
}

func acceptTitle(raw string) (string, bool) {
	s := strings.Join(strings.Fields(raw), " ")
	return s, utf8.RuneCountInString(s) >= minTitleLen
}

func metaTitle(key string) Strategy[string] {
	return func(a page.Accessor) (string, bool) {
		return acceptTitle(a.Meta(key))
	}
}

// titleTag cuts the <title> text at the first "|" or "-" separator.
func titleTag(a page.Accessor) (string, bool) {
	t := a.TitleTag()
	if i := strings.IndexAny(t, "|-"); i >= 0 {
		t = t[:i]
	}
	return acceptTitle(t)
}

func firstHeading(a page.Accessor) (string, bool) {
	return acceptTitle(a.FirstHeading())
}

func metaImage(key string) Strategy[string] {
	return func(a page.Accessor) (string, bool) {
		v := helpers.ResolveURL(a.URL(), a.Meta(key))
		return v, v != ""
	}
}

// productImage returns the first non-icon, non-logo image inside a
// product-like container.
func productImage(a page.Accessor) (string, bool) {
	for _, el := range a.Query(`[class*="product"] img, [id*="product"] img`) {
		src := el.Attr("src")
		if src == "" {
			src = el.Attr("data-src")
		}
		probe := strings.ToLower(src + " " + el.Class + " " + el.Attr("alt"))
		if src == "" || strings.HasPrefix(src, "data:") ||
			strings.Contains(probe, "icon") || strings.Contains(probe, "logo") {
			continue
		}
		return helpers.ResolveURL(a.URL(), src), true
	}
	return "", false
}
