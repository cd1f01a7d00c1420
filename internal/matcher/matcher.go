package matcher

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"sjsage522/salewatch/internal/listing"
)

// DefaultThreshold is the similarity a fuzzy match must exceed.
const DefaultThreshold = 0.70

// Matcher links tracked wishlist items to sale stubs.
type Matcher struct {
	threshold float64
}

// NewMatcher creates a matcher. A non-positive threshold selects the default.
func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold}
}

// Threshold returns the fuzzy similarity threshold in use.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

type preparedStub struct {
	stub    listing.SaleStub
	title   string
	segment string
}

// Match pairs every tracked item with at most one stub. Steps are tried in a
// fixed order per item: URL suffix, title containment, fuzzy similarity.
// Unmatched items are omitted. Several items may match the same stub.
func (m *Matcher) Match(tracked []listing.TrackedItem, stubs []listing.SaleStub) []listing.MatchResult {
	prepared := make([]preparedStub, len(stubs))
	for i, s := range stubs {
		prepared[i] = preparedStub{
			stub:    s,
			title:   Normalize(s.Title),
			segment: lastSegment(s.URL),
		}
	}

	var results []listing.MatchResult
	for _, item := range tracked {
		if r, ok := m.matchOne(item, prepared); ok {
			results = append(results, r)
		}
	}
	return results
}

func (m *Matcher) matchOne(item listing.TrackedItem, stubs []preparedStub) (listing.MatchResult, bool) {
	result := func(s preparedStub, strategy listing.MatchStrategy, score float64) listing.MatchResult {
		return listing.MatchResult{Tracked: item, Stub: s.stub, Strategy: strategy, Score: score}
	}

	if item.URL != "" {
		for _, s := range stubs {
			if s.segment != "" && strings.Contains(item.URL, s.segment) {
				return result(s, listing.MatchByURL, 1), true
			}
		}
	}

	title := Normalize(item.Title)
	if title == "" {
		return listing.MatchResult{}, false
	}

	for _, s := range stubs {
		if s.title == "" {
			continue
		}
		if strings.Contains(title, s.title) || strings.Contains(s.title, title) {
			return result(s, listing.MatchByTitle, Similarity(title, s.title)), true
		}
	}

	for _, s := range stubs {
		if score := Similarity(title, s.title); score > m.threshold {
			return result(s, listing.MatchByFuzzy, score), true
		}
	}
	return listing.MatchResult{}, false
}

// Normalize folds a title for comparison: NFKC, lowercase, single spaces.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Lower(language.Und).String(s)
	return strings.Join(strings.Fields(s), " ")
}

// lastSegment returns the last non-empty path segment of a stub URL, or ""
// when the URL has no path.
func lastSegment(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	path := strings.Trim(u.EscapedPath(), "/")
	if path == "" {
		return ""
	}
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
