package extractor

import (
	"encoding/json"
	"regexp"
	"strconv"

	"sjsage522/salewatch/internal/page"
)

// priceMatch is an accepted price. Currency is "" when the strategy carried
// no currency signal and the page scan should decide.
type priceMatch struct {
	Amount   float64
	Currency string
}

// textPricePattern holds one entry of the ordered regex list. Every regex
// has exactly one capture group, the amount.
type textPricePattern struct {
	re       *regexp.Regexp
	currency string
	markup   bool
}

func amountAfter(prefix string) *regexp.Regexp {
	return regexp.MustCompile(prefix + `\s*(` + amountExpr + `)`)
}

func amountBefore(suffix string) *regexp.Regexp {
	return regexp.MustCompile(`(` + amountExpr + `)\s*` + suffix)
}

var textPricePatterns = []textPricePattern{
	{re: amountAfter(`\$`), currency: "$"},
	{re: amountAfter(`\bUSD`), currency: "$"},
	{re: amountBefore(`USD\b`), currency: "$"},
	{re: amountAfter(`€`), currency: "€"},
	{re: amountBefore(`€`), currency: "€"},
	{re: amountAfter(`\bEUR`), currency: "€"},
	{re: amountBefore(`EUR\b`), currency: "€"},
	{re: amountAfter(`£`), currency: "£"},
	{re: amountAfter(`\bGBP`), currency: "£"},
	{re: amountBefore(`GBP\b`), currency: "£"},
	{re: amountAfter(`¥`), currency: "¥"},
	{re: amountBefore(`[¥円]`), currency: "¥"},
	{re: amountAfter(`₩`), currency: "₩"},
	{re: amountBefore(`[₩원]`), currency: "₩"},
	{re: amountAfter(`\bKRW`), currency: "₩"},
	{re: amountBefore(`KRW\b`), currency: "₩"},
	{re: amountAfter(`"price"\s*:\s*"?`), markup: true},
	{re: amountAfter(`data-price\s*=\s*["']?`), markup: true},
}

var shortPriceText = regexp.MustCompile(`^([$€£¥₩])?\s*(` + amountExpr + `)\s*([$€£¥₩원])?$`)

// priceStrategies is the strict price cascade order.
var priceStrategies = []Strategy[priceMatch]{
	priceFromMeta,
	priceFromJSONLD,
	priceFromText,
	priceFromShortText,
}

func priceFromMeta(a page.Accessor) (priceMatch, bool) {
	for _, prefix := range []string{"product:price", "og:price"} {
		raw := a.Meta(prefix + ":amount")
		if raw == "" {
			continue
		}
		currency := normalizeCurrency(a.Meta(prefix + ":currency"))
		if v, ok := parseStructuredAmount(raw); ok && inRange(v) {
			return priceMatch{Amount: v, Currency: currency}, true
		}
	}
	return priceMatch{}, false
}

func priceFromJSONLD(a page.Accessor) (priceMatch, bool) {
	for _, block := range a.JSONLD() {
		var data interface{}
		if err := json.Unmarshal([]byte(block), &data); err != nil {
			continue
		}
		if m, ok := offerPrice(data); ok {
			return m, true
		}
	}
	return priceMatch{}, false
}

// offerPrice walks a decoded JSON-LD value looking for offers with a price.
func offerPrice(v interface{}) (priceMatch, bool) {
	switch node := v.(type) {
	case []interface{}:
		for _, item := range node {
			if m, ok := offerPrice(item); ok {
				return m, true
			}
		}
	case map[string]interface{}:
		if offers, ok := node["offers"]; ok {
			if m, ok := priceFromOffers(offers); ok {
				return m, true
			}
		}
		if graph, ok := node["@graph"]; ok {
			return offerPrice(graph)
		}
	}
	return priceMatch{}, false
}

func priceFromOffers(v interface{}) (priceMatch, bool) {
	switch offers := v.(type) {
	case []interface{}:
		for _, o := range offers {
			if m, ok := priceFromOffers(o); ok {
				return m, true
			}
		}
	case map[string]interface{}:
		currency := normalizeCurrency(jsonString(offers["priceCurrency"]))
		for _, key := range []string{"price", "lowPrice"} {
			raw := jsonString(offers[key])
			if raw == "" {
				continue
			}
			if v, ok := parseStructuredAmount(raw); ok && inRange(v) {
				return priceMatch{Amount: v, Currency: currency}, true
			}
		}
		if spec, ok := offers["priceSpecification"]; ok {
			return priceFromOffers(spec)
		}
	}
	return priceMatch{}, false
}

// jsonString renders JSON scalars the way a price field may hold them.
func jsonString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	}
	return ""
}

// priceFromText runs the ordered regex list against visible text, then the
// markup fragments against raw HTML. Figures inside strikethrough markup are
// original prices and are skipped here.
func priceFromText(a page.Accessor) (priceMatch, bool) {
	struck := make(map[float64]bool)
	for _, v := range strikethroughAmounts(a) {
		struck[v] = true
	}

	text := a.Text()
	markup := a.Markup()
	for _, p := range textPricePatterns {
		source := text
		if p.markup {
			source = markup
		}
		for _, m := range p.re.FindAllStringSubmatch(source, -1) {
			v, ok := parseAmount(m[1], p.currency)
			if !ok || !inRange(v) || struck[v] {
				continue
			}
			return priceMatch{Amount: v, Currency: p.currency}, true
		}
	}
	return priceMatch{}, false
}

// priceFromShortText looks for elements whose whole text is a bare price and
// whose own or parent class mentions price.
func priceFromShortText(a page.Accessor) (priceMatch, bool) {
	for _, el := range a.Query("body *") {
		if len(el.Text) > 24 || !el.ClassContains("price") {
			continue
		}
		m := shortPriceText.FindStringSubmatch(el.Text)
		if m == nil {
			continue
		}
		symbol := m[1]
		if symbol == "" {
			symbol = normalizeCurrency(m[3])
		}
		if v, ok := parseAmount(m[2], symbol); ok && inRange(v) {
			return priceMatch{Amount: v, Currency: symbol}, true
		}
	}
	return priceMatch{}, false
}
