package extractor

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"sjsage522/salewatch/internal/listing"
	"sjsage522/salewatch/internal/page"
)

// amountExpr matches a number with optional thousands groups and decimals.
// It has no capture group so callers can wrap it.
const amountExpr = `\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?`

var currencyCodes = map[string]string{
	"$":   listing.CurrencyDollar,
	"USD": listing.CurrencyDollar,
	"€":   listing.CurrencyEuro,
	"EUR": listing.CurrencyEuro,
	"£":   listing.CurrencyPound,
	"GBP": listing.CurrencyPound,
	"¥":   listing.CurrencyYen,
	"JPY": listing.CurrencyYen,
	"円":   listing.CurrencyYen,
	"₩":   listing.CurrencyWon,
	"KRW": listing.CurrencyWon,
	"원":   listing.CurrencyWon,
}

// normalizeCurrency maps a symbol or ISO code onto the listing symbol set.
// Unknown input yields "".
func normalizeCurrency(code string) string {
	return currencyCodes[strings.ToUpper(strings.TrimSpace(code))]
}

// currencyScan is checked in order; the first hit decides the page currency.
var currencyScan = []struct {
	re     *regexp.Regexp
	symbol string
}{
	{regexp.MustCompile(`€|\bEUR\b`), listing.CurrencyEuro},
	{regexp.MustCompile(`£|\bGBP\b`), listing.CurrencyPound},
	{regexp.MustCompile(`¥|円|\bJPY\b`), listing.CurrencyYen},
	{regexp.MustCompile(`₩|\bKRW\b|\d\s*원`), listing.CurrencyWon},
}

// detectCurrency scans visible text for currency literals, defaulting to $.
func detectCurrency(a page.Accessor) string {
	text := a.Text()
	for _, c := range currencyScan {
		if c.re.MatchString(text) {
			return c.symbol
		}
	}
	return listing.DefaultCurrency
}

func zeroDecimal(symbol string) bool {
	return symbol == listing.CurrencyYen || symbol == listing.CurrencyWon
}

// parseAmount turns a locale formatted number into a float. Separators are
// resolved by position: with both present the last one is the decimal mark;
// a lone comma is decimal only when followed by exactly two digits, and a
// lone dot before a three digit group is a thousands mark for euro amounts.
// Yen and won amounts never carry decimals.
func parseAmount(raw, symbol string) (float64, bool) {
	s := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '\'' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}

	if zeroDecimal(symbol) {
		s = strings.NewReplacer(",", "", ".", "").Replace(s)
	} else {
		lastComma := strings.LastIndex(s, ",")
		lastDot := strings.LastIndex(s, ".")
		switch {
		case lastComma >= 0 && lastDot >= 0:
			if lastComma > lastDot {
				s = strings.ReplaceAll(s, ".", "")
				s = strings.Replace(s, ",", ".", 1)
			} else {
				s = strings.ReplaceAll(s, ",", "")
			}
		case lastComma >= 0:
			if strings.Count(s, ",") == 1 && len(s)-lastComma-1 == 2 {
				s = strings.Replace(s, ",", ".", 1)
			} else {
				s = strings.ReplaceAll(s, ",", "")
			}
		case lastDot >= 0 && strings.Count(s, ".") > 1:
			s = strings.ReplaceAll(s, ".", "")
		case lastDot >= 0 && len(s)-lastDot-1 == 3 && normalizeCurrency(symbol) == listing.CurrencyEuro:
			s = strings.Replace(s, ".", "", 1)
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseStructuredAmount reads machine formatted values from meta tags and
// JSON-LD. Values that are not plain decimals go through the locale aware
// parser without the zero-decimal rule.
func parseStructuredAmount(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err == nil {
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	}
	return parseAmount(raw, "")
}

// inRange reports whether v is an acceptable price.
func inRange(v float64) bool {
	return v > 0 && v < listing.MaxPrice
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
