package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/salewatch/internal/listing"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"café", "cafe", 1},
		{"가구", "가게", 1},
		{"abc", "xyz", 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b), "%q -> %q", tt.a, tt.b)
		assert.Equal(t, tt.want, Levenshtein(tt.b, tt.a), "symmetry %q <- %q", tt.a, tt.b)
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("kitchen", "kitchen"))
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("abc", ""))
	assert.InDelta(t, 4.0/7.0, Similarity("kitten", "sitting"), 1e-9)
}

func TestNewMatcherDefaultsThreshold(t *testing.T) {
	assert.Equal(t, DefaultThreshold, NewMatcher(0).Threshold())
	assert.Equal(t, DefaultThreshold, NewMatcher(-1).Threshold())
	assert.Equal(t, 0.9, NewMatcher(0.9).Threshold())
}

func TestMatchURLBeatsFuzzyAndTitle(t *testing.T) {
	tracked := []listing.TrackedItem{{
		URL:   "https://www.acon3d.com/en/product/1234?ref=wishlist",
		Title: "Modern Kitchen",
	}}
	stubs := []listing.SaleStub{
		{Title: "Modern Kitchens", URL: "https://www.acon3d.com/en/product/9999"},
		{Title: "Totally Different Pack", URL: "https://www.acon3d.com/en/product/1234"},
	}

	results := NewMatcher(0).Match(tracked, stubs)
	require.Len(t, results, 1)
	assert.Equal(t, listing.MatchByURL, results[0].Strategy)
	assert.Equal(t, "https://www.acon3d.com/en/product/1234", results[0].Stub.URL)
}

func TestMatchTitleContainmentWithSaleSuffix(t *testing.T) {
	tracked := []listing.TrackedItem{{
		URL:   "https://shop.example.com/wishlist/item-77",
		Title: "Modern Kitchen 3D Model",
	}}
	stubs := []listing.SaleStub{{
		Title: "modern kitchen 3d model — SALE",
		URL:   "https://www.acon3d.com/en/product/5555",
	}}

	results := NewMatcher(0).Match(tracked, stubs)
	require.Len(t, results, 1)
	// Containment catches this pair before the fuzzy step; the score still
	// clears the fuzzy threshold on its own.
	assert.Equal(t, listing.MatchByTitle, results[0].Strategy)
	assert.Greater(t, results[0].Score, DefaultThreshold)
	assert.Greater(t, Similarity(Normalize(tracked[0].Title), Normalize(stubs[0].Title)), DefaultThreshold)
}

func TestMatchFuzzyTypos(t *testing.T) {
	tracked := []listing.TrackedItem{{Title: "Modren Kitchen 3D Modle"}}
	stubs := []listing.SaleStub{
		{Title: "Forest Cabin", URL: "https://www.acon3d.com/en/product/1"},
		{Title: "Modern Kitchen 3D Model", URL: "https://www.acon3d.com/en/product/2"},
	}

	results := NewMatcher(0).Match(tracked, stubs)
	require.Len(t, results, 1)
	assert.Equal(t, listing.MatchByFuzzy, results[0].Strategy)
	assert.Equal(t, "https://www.acon3d.com/en/product/2", results[0].Stub.URL)
	assert.InDelta(t, 19.0/23.0, results[0].Score, 1e-9)
}

func TestMatchOmitsUnmatched(t *testing.T) {
	tracked := []listing.TrackedItem{
		{Title: "Forest Cabin"},
		{Title: ""},
		{Title: "Desk Lamp"},
	}
	stubs := []listing.SaleStub{
		{Title: "", URL: "https://www.acon3d.com"},
		{Title: "Modern Kitchen", URL: "https://www.acon3d.com/en/product/1"},
	}

	assert.Empty(t, NewMatcher(0).Match(tracked, stubs))
	assert.Empty(t, NewMatcher(0).Match(nil, stubs))
	assert.Empty(t, NewMatcher(0).Match(tracked, nil))
}

func TestMatchNormalizesWidthAndCase(t *testing.T) {
	tracked := []listing.TrackedItem{{Title: "ＫＩＴＣＨＥＮ  Set"}}
	stubs := []listing.SaleStub{{Title: "kitchen set", URL: "https://shop.example.com/p/1"}}

	results := NewMatcher(0).Match(tracked, stubs)
	require.Len(t, results, 1)
	assert.Equal(t, listing.MatchByTitle, results[0].Strategy)
	assert.Equal(t, 1.0, results[0].Score)
}

// A stub may satisfy several tracked items. This is kept on purpose until
// the product decides whether duplicate wishlist entries are legitimate.
func TestMatchAllowsManyToOne(t *testing.T) {
	tracked := []listing.TrackedItem{
		{Title: "Modern Kitchen Set", URL: "https://shop.example.com/a"},
		{Title: "Kitchen Set", URL: "https://shop.example.com/b"},
	}
	stubs := []listing.SaleStub{{Title: "Modern Kitchen Set", URL: "https://www.acon3d.com/en/product/42"}}

	results := NewMatcher(0).Match(tracked, stubs)
	require.Len(t, results, 2)
	assert.Equal(t, results[0].Stub, results[1].Stub)
}

func TestLastSegment(t *testing.T) {
	assert.Equal(t, "1234", lastSegment("https://www.acon3d.com/en/product/1234/"))
	assert.Equal(t, "", lastSegment("https://www.acon3d.com"))
	assert.Equal(t, "a", lastSegment("a"))
}
