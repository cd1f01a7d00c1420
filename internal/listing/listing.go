// Package listing holds the records exchanged between the extractor, the
// sale-list aggregator and the matcher.
package listing

// Currency symbols a listing may carry. Extraction never returns ISO codes.
const (
	CurrencyDollar = "$"
	CurrencyEuro   = "€"
	CurrencyPound  = "£"
	CurrencyYen    = "¥"
	CurrencyWon    = "₩"
)

// DefaultCurrency is used when no currency signal is found on a page.
const DefaultCurrency = CurrencyDollar

// MaxPrice is the exclusive upper bound for any accepted price.
const MaxPrice = 1_000_000

// Listing is the best-effort record extracted from one product page.
type Listing struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	ThumbnailURL  string   `json:"thumbnailUrl,omitempty"`
	Price         *float64 `json:"price"`
	Currency      string   `json:"currency"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	IsOnSale      bool     `json:"isOnSale"`
	Platform      string   `json:"platform"`
	Creator       string   `json:"creator,omitempty"`
}

// EnforceSaleInvariant clears the sale flag and original price when the
// original price is not strictly greater than the current price.
func (l *Listing) EnforceSaleInvariant() {
	if l.OriginalPrice == nil {
		return
	}
	if l.Price == nil || *l.OriginalPrice <= *l.Price {
		l.OriginalPrice = nil
		l.IsOnSale = false
	}
}

// SaleStub is a lightweight entry scraped from a sale or category page.
type SaleStub struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// TrackedItem is a wishlist entry handed in by the record store.
type TrackedItem struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	CurrentPrice  *float64 `json:"currentPrice"`
	Currency      string   `json:"currency"`
	IsOnSale      bool     `json:"isOnSale"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	Platform      string   `json:"platform"`
}

// TrackedFromListing converts an extracted listing into a tracked item.
func TrackedFromListing(l Listing) TrackedItem {
	return TrackedItem{
		URL:           l.URL,
		Title:         l.Title,
		CurrentPrice:  l.Price,
		Currency:      l.Currency,
		IsOnSale:      l.IsOnSale,
		OriginalPrice: l.OriginalPrice,
		Platform:      l.Platform,
	}
}

// MatchStrategy names the matcher step that linked a tracked item to a stub.
type MatchStrategy string

const (
	MatchByURL   MatchStrategy = "url"
	MatchByTitle MatchStrategy = "title"
	MatchByFuzzy MatchStrategy = "fuzzy"
)

// MatchResult pairs one tracked item with the sale stub it matched.
type MatchResult struct {
	Tracked  TrackedItem   `json:"tracked"`
	Stub     SaleStub      `json:"stub"`
	Strategy MatchStrategy `json:"strategy"`
	Score    float64       `json:"score"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
