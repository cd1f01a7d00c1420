package aggregator

import (
	"encoding/json"
	"html"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"sjsage522/salewatch/helpers"
	"sjsage522/salewatch/internal/listing"
	"sjsage522/salewatch/internal/page"
)

// stubStrategy extracts stubs from one page body. Strategies are pure and
// return fresh slices.
type stubStrategy func(pageURL, body string) []listing.SaleStub

var (
	anyTag      = regexp.MustCompile(`<[^>]*>`)
	titledChild = regexp.MustCompile(`(?is)<[a-z][a-z0-9]*\b[^>]*\bclass\s*=\s*["'][^"']*(?:title|name)[^"']*["'][^>]*>(.*?)</[a-z]`)
	imgSrc      = regexp.MustCompile(`(?is)<img\b[^>]*?\b(?:data-src|src)\s*=\s*["']([^"']+)["']`)

	dataURLFirst  = regexp.MustCompile(`(?is)data-product-url\s*=\s*["']([^"']+)["'][^>]*?data-product-name\s*=\s*["']([^"']+)["']`)
	dataNameFirst = regexp.MustCompile(`(?is)data-product-name\s*=\s*["']([^"']+)["'][^>]*?data-product-url\s*=\s*["']([^"']+)["']`)

	feedMarker = regexp.MustCompile(`(?i)^\s*(?:\x{feff})?(?:<\?xml[^>]*>\s*)?(?:<!--.*?-->\s*)*<(?:rss|feed|rdf:rdf)\b`)
)

func newStrategies(productPath string) []stubStrategy {
	href := `\bhref\s*=\s*["'](?P<href>[^"']*` + productPath + `[^"']*)["']`
	anchorText := regexp.MustCompile(`(?is)<a\b[^>]*` + href + `[^>]*>(?P<inner>[^<]+)</a>`)
	anchorCard := regexp.MustCompile(`(?is)<a\b[^>]*` + href + `[^>]*>(?P<inner>.*?)</a>`)

	return []stubStrategy{
		anchorTextStubs(anchorText),
		cardStubs(anchorCard),
		itemListStubs,
		feedStubs,
	}
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(anyTag.ReplaceAllString(s, " "))), " ")
}

func stub(pageURL, href, title, image string) (listing.SaleStub, bool) {
	u := helpers.ResolveURL(pageURL, html.UnescapeString(href))
	title = cleanText(title)
	if u == "" || title == "" {
		return listing.SaleStub{}, false
	}
	s := listing.SaleStub{Title: title, URL: u}
	if image != "" {
		s.ThumbnailURL = helpers.ResolveURL(pageURL, html.UnescapeString(image))
	}
	return s, true
}

// anchorTextStubs matches product anchors whose content is plain text.
func anchorTextStubs(re *regexp.Regexp) stubStrategy {
	hrefIdx, innerIdx := re.SubexpIndex("href"), re.SubexpIndex("inner")
	return func(pageURL, body string) []listing.SaleStub {
		var out []listing.SaleStub
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			if s, ok := stub(pageURL, m[hrefIdx], m[innerIdx], ""); ok {
				out = append(out, s)
			}
		}
		return out
	}
}

// cardStubs matches product anchors wrapping a card with a title or name
// classed child, plus data-product-url/data-product-name attribute pairs.
func cardStubs(re *regexp.Regexp) stubStrategy {
	hrefIdx, innerIdx := re.SubexpIndex("href"), re.SubexpIndex("inner")
	return func(pageURL, body string) []listing.SaleStub {
		var out []listing.SaleStub
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			inner := m[innerIdx]
			t := titledChild.FindStringSubmatch(inner)
			if t == nil {
				continue
			}
			image := ""
			if img := imgSrc.FindStringSubmatch(inner); img != nil {
				image = img[1]
			}
			if s, ok := stub(pageURL, m[hrefIdx], t[1], image); ok {
				out = append(out, s)
			}
		}

		for _, m := range dataURLFirst.FindAllStringSubmatch(body, -1) {
			if s, ok := stub(pageURL, m[1], m[2], ""); ok {
				out = append(out, s)
			}
		}
		for _, m := range dataNameFirst.FindAllStringSubmatch(body, -1) {
			if s, ok := stub(pageURL, m[2], m[1], ""); ok {
				out = append(out, s)
			}
		}
		return out
	}
}

// itemListStubs reads JSON-LD ItemList blocks. Malformed blocks are skipped.
func itemListStubs(pageURL, body string) []listing.SaleStub {
	var out []listing.SaleStub
	for _, block := range page.NewStringAccessor(pageURL, body).JSONLD() {
		var data interface{}
		if err := json.Unmarshal([]byte(block), &data); err != nil {
			continue
		}
		for _, list := range findItemLists(data) {
			elements, _ := list["itemListElement"].([]interface{})
			for _, el := range elements {
				if s, ok := listElementStub(pageURL, el); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func findItemLists(v interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	switch node := v.(type) {
	case []interface{}:
		for _, item := range node {
			out = append(out, findItemLists(item)...)
		}
	case map[string]interface{}:
		if hasType(node, "ItemList") {
			out = append(out, node)
		}
		if graph, ok := node["@graph"]; ok {
			out = append(out, findItemLists(graph)...)
		}
	}
	return out
}

func hasType(node map[string]interface{}, want string) bool {
	switch t := node["@type"].(type) {
	case string:
		return t == want
	case []interface{}:
		for _, v := range t {
			if s, ok := v.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

func listElementStub(pageURL string, v interface{}) (listing.SaleStub, bool) {
	el, ok := v.(map[string]interface{})
	if !ok {
		return listing.SaleStub{}, false
	}

	fields := el
	switch item := el["item"].(type) {
	case map[string]interface{}:
		fields = item
	case string:
		fields = map[string]interface{}{"url": item, "name": el["name"], "image": el["image"]}
	}

	href, _ := fields["url"].(string)
	if href == "" {
		href, _ = fields["@id"].(string)
	}
	name, _ := fields["name"].(string)
	if name == "" {
		name, _ = el["name"].(string)
	}
	return stub(pageURL, href, name, imageURL(fields["image"]))
}

// imageURL accepts the string, array and ImageObject forms of schema.org image.
func imageURL(v interface{}) string {
	switch img := v.(type) {
	case string:
		return img
	case []interface{}:
		for _, item := range img {
			if s := imageURL(item); s != "" {
				return s
			}
		}
	case map[string]interface{}:
		if s, ok := img["url"].(string); ok {
			return s
		}
		if s, ok := img["contentUrl"].(string); ok {
			return s
		}
	}
	return ""
}

// feedStubs parses RSS, Atom and RDF sale feeds.
func feedStubs(pageURL, body string) []listing.SaleStub {
	if !feedMarker.MatchString(body) {
		return nil
	}
	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil
	}

	var out []listing.SaleStub
	for _, item := range feed.Items {
		image := ""
		if item.Image != nil {
			image = item.Image.URL
		}
		if image == "" {
			for _, enc := range item.Enclosures {
				if strings.HasPrefix(enc.Type, "image/") {
					image = enc.URL
					break
				}
			}
		}
		if s, ok := stub(pageURL, item.Link, item.Title, image); ok {
			out = append(out, s)
		}
	}
	return out
}
