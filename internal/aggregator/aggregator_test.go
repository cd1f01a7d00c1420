package aggregator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/salewatch/internal/listing"
	apperrors "sjsage522/salewatch/pkg/errors"
)

// MockFetcher serves canned bodies and records every call
type MockFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, url)
	body, ok := m.pages[url]
	if !ok {
		return "", errors.New("fetch " + url + " unexpected status code: 503")
	}
	return body, nil
}

func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

const salePage = `<html><body>
<a href="/en/product/101">Hanok Village</a>
<a class="card" href="https://www.acon3d.com/ko/product/202"><img src="/img/202.jpg"><div class="card-title">Modern Kitchen</div></a>
<div data-product-url="/ja/product/303" data-product-name="Forest Cabin"></div>
<div data-product-name="Desk &amp; Lamp" data-product-url="/en/product/404"></div>
<a href="/en/about">About us</a>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"ItemList","itemListElement":[
 {"@type":"ListItem","position":1,"url":"https://www.acon3d.com/en/product/505","name":"Snow Temple","image":["https://cdn.example.com/505.jpg"]},
 {"@type":"ListItem","position":2,"item":{"@id":"https://www.acon3d.com/en/product/606","name":"Night Market","image":{"url":"/img/606.jpg"}}}
]}</script>
<script type="application/ld+json">{ not json</script>
</body></html>`

func newTestAggregator(t *testing.T, f Fetcher, opts Options) *Aggregator {
	t.Helper()
	a, err := New(f, opts)
	require.NoError(t, err)
	return a
}

func TestParsePageRunsEveryStrategy(t *testing.T) {
	a := newTestAggregator(t, &MockFetcher{}, Options{})

	stubs := a.ParsePage("https://www.acon3d.com/en/event/sale", salePage)

	assert.Equal(t, []listing.SaleStub{
		{Title: "Hanok Village", URL: "https://www.acon3d.com/en/product/101"},
		{Title: "Modern Kitchen", URL: "https://www.acon3d.com/ko/product/202", ThumbnailURL: "https://www.acon3d.com/img/202.jpg"},
		{Title: "Forest Cabin", URL: "https://www.acon3d.com/ja/product/303"},
		{Title: "Desk & Lamp", URL: "https://www.acon3d.com/en/product/404"},
		{Title: "Snow Temple", URL: "https://www.acon3d.com/en/product/505", ThumbnailURL: "https://cdn.example.com/505.jpg"},
		{Title: "Night Market", URL: "https://www.acon3d.com/en/product/606", ThumbnailURL: "https://www.acon3d.com/img/606.jpg"},
	}, stubs)
}

func TestParsePageCustomProductPath(t *testing.T) {
	a := newTestAggregator(t, &MockFetcher{}, Options{ProductPath: `/(l)/[a-z]+`})

	stubs := a.ParsePage("https://gumroad.com/discover", `<a href="/l/brushes">Brush Pack</a><a href="/en/product/1">Other</a>`)

	require.Len(t, stubs, 1)
	assert.Equal(t, "https://gumroad.com/l/brushes", stubs[0].URL)
}

func TestParsePageFeed(t *testing.T) {
	a := newTestAggregator(t, &MockFetcher{}, Options{})
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Sales</title><link>https://shop.example.com</link><description>Weekly sales</description>
<item><title>Brush Pack</title><link>https://shop.example.com/p/brush</link>
<enclosure url="https://cdn.example.com/brush.png" type="image/png" length="1"/></item>
</channel></rss>`

	stubs := a.ParsePage("https://shop.example.com/sales.xml", feed)

	require.Len(t, stubs, 1)
	assert.Equal(t, "Brush Pack", stubs[0].Title)
	assert.Equal(t, "https://shop.example.com/p/brush", stubs[0].URL)
	assert.Equal(t, "https://cdn.example.com/brush.png", stubs[0].ThumbnailURL)
}

func TestDedupeStubs(t *testing.T) {
	first := []listing.SaleStub{{URL: "a"}, {URL: "b", Title: "old"}}
	second := []listing.SaleStub{{URL: "b", Title: "new"}, {URL: "c"}, {URL: ""}}

	got := DedupeStubs(first, second)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].URL, got[1].URL, got[2].URL})
	assert.Equal(t, "new", got[1].Title)
}

func TestAggregateSkipsFailedPages(t *testing.T) {
	f := &MockFetcher{pages: map[string]string{
		"https://www.acon3d.com/en/sale/1": `<a href="/en/product/1">One</a><a href="/en/product/2">Two</a>`,
		"https://www.acon3d.com/en/sale/3": `<a href="/en/product/2">Two (again)</a><a href="/en/product/3">Three</a>`,
	}}
	a := newTestAggregator(t, f, Options{})

	pages := []string{
		"https://www.acon3d.com/en/sale/1",
		"https://www.acon3d.com/en/sale/2",
		"https://www.acon3d.com/en/sale/3",
	}
	stubs := a.Aggregate(context.Background(), pages)

	assert.Equal(t, pages, f.Calls())
	require.Len(t, stubs, 3)
	assert.Equal(t, "One", stubs[0].Title)
	assert.Equal(t, "Two (again)", stubs[1].Title)
	assert.Equal(t, "Three", stubs[2].Title)
}

func TestAggregateKeepsPageOrderWithConcurrency(t *testing.T) {
	pages := map[string]string{}
	var urls []string
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		u := "https://host" + id + ".example/sale"
		urls = append(urls, u)
		pages[u] = `<a href="/en/product/` + id + `">Item ` + id + `</a>`
	}
	a := newTestAggregator(t, &MockFetcher{pages: pages}, Options{Concurrency: 3})

	stubs := a.Aggregate(context.Background(), urls)

	require.Len(t, stubs, 5)
	for i, s := range stubs {
		assert.Equal(t, "https://host"+string(rune('1'+i))+".example/en/product/"+string(rune('1'+i)), s.URL)
	}
}

func TestAggregatePerHostDelay(t *testing.T) {
	pages := map[string]string{
		"https://www.acon3d.com/en/sale/1": "",
		"https://www.acon3d.com/en/sale/2": "",
		"https://www.acon3d.com/en/sale/3": "",
	}
	a := newTestAggregator(t, &MockFetcher{pages: pages}, Options{PageDelay: 50 * time.Millisecond})

	start := time.Now()
	a.Aggregate(context.Background(), []string{
		"https://www.acon3d.com/en/sale/1",
		"https://www.acon3d.com/en/sale/2",
		"https://www.acon3d.com/en/sale/3",
	})
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

// sequenceFetcher returns the queued errors before serving body
type sequenceFetcher struct {
	mu    sync.Mutex
	errs  []error
	body  string
	calls int
}

func (s *sequenceFetcher) Fetch(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	return s.body, nil
}

func TestAggregateRetriesNetworkErrors(t *testing.T) {
	f := &sequenceFetcher{
		errs: []error{apperrors.NewNetwork("https://www.acon3d.com/en/sale/1", "failed to fetch URL", errors.New("connection reset"))},
		body: `<a href="/en/product/1">One</a>`,
	}
	a := newTestAggregator(t, f, Options{})

	stubs := a.Aggregate(context.Background(), []string{"https://www.acon3d.com/en/sale/1"})

	assert.Equal(t, 2, f.calls)
	require.Len(t, stubs, 1)
	assert.Equal(t, "One", stubs[0].Title)
}

func TestAggregateDoesNotRetryPermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		errs []error
		want int
	}{
		{"status", []error{apperrors.NewStatus("p", 404)}, 1},
		{"rate limit", []error{apperrors.NewRateLimit("p", "60")}, 1},
		{"network twice", []error{
			apperrors.NewNetwork("p", "failed to fetch URL", nil),
			apperrors.NewNetwork("p", "failed to fetch URL", nil),
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &sequenceFetcher{errs: tt.errs, body: `<a href="/en/product/1">One</a>`}
			a := newTestAggregator(t, f, Options{})

			assert.Empty(t, a.Aggregate(context.Background(), []string{"https://www.acon3d.com/en/sale/1"}))
			assert.Equal(t, tt.want, f.calls)
		})
	}
}

func TestAggregateCancelledContext(t *testing.T) {
	f := &MockFetcher{pages: map[string]string{"https://www.acon3d.com/en/sale/1": `<a href="/en/product/1">One</a>`}}
	a := newTestAggregator(t, f, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, a.Aggregate(ctx, []string{"https://www.acon3d.com/en/sale/1"}))
	assert.Empty(t, f.Calls())
}

func TestNewRejectsInvalidPattern(t *testing.T) {
	_, err := New(&MockFetcher{}, Options{ProductPath: "("})
	assert.Error(t, err)
}
