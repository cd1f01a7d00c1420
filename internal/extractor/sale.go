package extractor

import (
	"html"
	"regexp"
	"strconv"

	"sjsage522/salewatch/internal/page"
	"sjsage522/salewatch/logger"
)

// SaleInfo is the sale detector's result. OriginalPrice, when set, is always
// greater than the current price it was derived from.
type SaleInfo struct {
	OriginalPrice *float64
	IsOnSale      bool
}

var (
	struckTag   = regexp.MustCompile(`(?is)<(?:del|s|strike)\b[^>]*>(.*?)</(?:del|s|strike)\s*>`)
	struckStyle = regexp.MustCompile(`(?is)<[a-z][a-z0-9]*\b[^>]*style\s*=\s*["'][^"']*line-through[^"']*["'][^>]*>(.*?)</`)
	anyTag      = regexp.MustCompile(`<[^>]*>`)

	anyAmount = regexp.MustCompile(`([$€£¥₩])?\s*(` + amountExpr + `)`)

	wasPrefix = regexp.MustCompile(`(?i)\b(?:was|before|originally)\b\s*:?\s*(?:[$€£¥₩]|usd|eur|gbp|krw)?\s*(` + amountExpr + `)`)
	wasSuffix = regexp.MustCompile(`(?i)(` + amountExpr + `)\s*(?:[$€£¥₩원])?\s*\b(?:was|before|originally)\b`)

	percentOff = regexp.MustCompile(`(?i)\b(\d{1,2})\s*%\s*(?:off|discount|sale)\b`)
)

// DetectSale decides whether the page shows a discount on currentPrice and
// derives the original price. It never fails: internal faults yield an
// empty result.
func DetectSale(currentPrice float64, a page.Accessor) (info SaleInfo) {
	defer func() {
		if r := recover(); r != nil {
			logger.ForComponent("extractor").Warn().
				Str("url", a.URL()).
				Interface("panic", r).
				Msg("Sale detection failed, returning empty result")
			info = SaleInfo{}
		}
	}()

	if !inRange(currentPrice) {
		return SaleInfo{}
	}

	var candidates []float64
	for _, v := range strikethroughAmounts(a) {
		if v > currentPrice {
			candidates = append(candidates, v)
		}
	}
	if v, ok := wasPhraseAmount(a.Text()); ok && v > currentPrice {
		candidates = append(candidates, v)
	}

	if len(candidates) > 0 {
		best := candidates[0]
		for _, c := range candidates[1:] {
			if c > best {
				best = c
			}
		}
		return SaleInfo{OriginalPrice: &best, IsOnSale: true}
	}

	if v, ok := percentBackCalc(currentPrice, a.Text()); ok {
		return SaleInfo{OriginalPrice: &v, IsOnSale: true}
	}

	if hasSaleClass(a) {
		return SaleInfo{IsOnSale: true}
	}
	return SaleInfo{}
}

// strikethroughAmounts returns in-range figures shown struck through, in
// document order.
func strikethroughAmounts(a page.Accessor) []float64 {
	var texts []string
	if a.DOM() {
		for _, el := range a.Query(`del, s, strike, [style*="line-through"]`) {
			texts = append(texts, el.Text)
		}
	} else {
		markup := a.Markup()
		for _, re := range []*regexp.Regexp{struckTag, struckStyle} {
			for _, m := range re.FindAllStringSubmatch(markup, -1) {
				texts = append(texts, html.UnescapeString(anyTag.ReplaceAllString(m[1], " ")))
			}
		}
	}

	var out []float64
	for _, t := range texts {
		m := anyAmount.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		if v, ok := parseAmount(m[2], m[1]); ok && inRange(v) {
			out = append(out, v)
		}
	}
	return out
}

// wasPhraseAmount returns the first "was X" or "X was" figure. The prefix
// form is tried first.
func wasPhraseAmount(text string) (float64, bool) {
	for _, re := range []*regexp.Regexp{wasPrefix, wasSuffix} {
		if m := re.FindStringSubmatch(text); m != nil {
			v, ok := parseAmount(m[1], "")
			return v, ok && inRange(v)
		}
	}
	return 0, false
}

func percentBackCalc(currentPrice float64, text string) (float64, bool) {
	m := percentOff.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.Atoi(m[1])
	if err != nil || pct <= 0 || pct >= 100 {
		return 0, false
	}
	original := round2(currentPrice / (1 - float64(pct)/100))
	if original <= currentPrice || !inRange(original) {
		return 0, false
	}
	return original, true
}

// hasSaleClass is the presentational fallback; it needs a DOM.
func hasSaleClass(a page.Accessor) bool {
	for _, el := range a.Query("[class]") {
		if el.ClassContains("sale", "discount") {
			return true
		}
	}
	return false
}
