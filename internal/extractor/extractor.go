// Package extractor turns an arbitrary marketplace page into a best-effort
// listing. Each field is resolved by its own ordered cascade of strategies;
// the first strategy that produces an acceptable value wins.
package extractor

import (
	"github.com/PuerkitoBio/goquery"

	"sjsage522/salewatch/helpers"
	"sjsage522/salewatch/internal/listing"
	"sjsage522/salewatch/internal/page"
	"sjsage522/salewatch/logger"
)

// ExtractListing extracts from raw HTML using tokenizer-level access only.
func ExtractListing(pageURL, markup string) listing.Listing {
	return Extract(page.NewStringAccessor(pageURL, markup))
}

// ExtractListingFromDocument extracts from a parsed or rendered document,
// enabling the selector based strategies.
func ExtractListingFromDocument(pageURL string, doc *goquery.Document) listing.Listing {
	return Extract(page.NewDocumentAccessor(pageURL, doc))
}

// Extract runs every field cascade against a. It always returns at least the
// URL, a fallback title and a currency.
func Extract(a page.Accessor) (l listing.Listing) {
	l = minimal(a.URL())
	defer func() {
		if r := recover(); r != nil {
			logger.ForComponent("extractor").Error().
				Str("url", a.URL()).
				Interface("panic", r).
				Msg("Extraction failed, returning minimal listing")
			l = minimal(a.URL())
		}
	}()

	l.Platform = DetectPlatform(l.URL)

	if title, ok := firstOf(a, titleStrategies...); ok {
		l.Title = title
	}
	if image, ok := firstOf(a, imageStrategies...); ok {
		l.ThumbnailURL = image
	}

	if m, ok := firstOf(a, priceStrategies...); ok {
		l.Price = listing.Float(m.Amount)
		l.Currency = m.Currency
		if l.Currency == "" {
			l.Currency = detectCurrency(a)
		}
		sale := DetectSale(m.Amount, a)
		l.IsOnSale = sale.IsOnSale
		l.OriginalPrice = sale.OriginalPrice
	} else {
		l.Currency = detectCurrency(a)
	}
	l.EnforceSaleInvariant()

	l.Creator = ResolveCreator(a, l.Platform)
	return l
}

func minimal(pageURL string) listing.Listing {
	return listing.Listing{
		URL:      pageURL,
		Title:    helpers.LastPathSegment(pageURL),
		Currency: listing.DefaultCurrency,
	}
}
