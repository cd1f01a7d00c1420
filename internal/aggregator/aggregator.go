// Package aggregator scans sale and category pages into a flat, deduplicated
// list of sale stubs.
package aggregator

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"sjsage522/salewatch/helpers"
	"sjsage522/salewatch/internal/listing"
	"sjsage522/salewatch/logger"
	"sjsage522/salewatch/pkg/errors"
)

const (
	// DefaultProductPath matches product detail paths such as /en/product/1234.
	DefaultProductPath = `/(?:en|ko|ja)/product/\d+`

	// fetchAttempts bounds tries per page; only retryable errors are retried.
	fetchAttempts = 2
)

// Fetcher retrieves a page body. helpers.PageFetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Options tunes the aggregator.
type Options struct {
	// ProductPath is a regex fragment matching product URLs inside href
	// attributes. Empty selects DefaultProductPath.
	ProductPath string
	// PageDelay is the minimum interval between two requests to one host.
	PageDelay time.Duration
	// Concurrency bounds the number of pages fetched at once. Values below 1
	// mean sequential processing.
	Concurrency int
}

// Aggregator fetches pages and runs every stub strategy on each of them.
type Aggregator struct {
	fetcher     Fetcher
	strategies  []stubStrategy
	delay       time.Duration
	concurrency int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	log *logger.Logger
}

// New creates an aggregator. It fails only when the product path pattern
// does not compile.
func New(fetcher Fetcher, opts Options) (*Aggregator, error) {
	productPath := opts.ProductPath
	if productPath == "" {
		productPath = DefaultProductPath
	}
	if _, err := regexp.Compile(productPath); err != nil {
		return nil, fmt.Errorf("invalid product path pattern %q: %w", productPath, err)
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Aggregator{
		fetcher:     fetcher,
		strategies:  newStrategies(productPath),
		delay:       opts.PageDelay,
		concurrency: concurrency,
		limiters:    make(map[string]*rate.Limiter),
		log:         logger.ForComponent("aggregator"),
	}, nil
}

// Aggregate fetches every page and returns the deduplicated stubs. Page
// failures are logged and skipped. Stubs keep the order of the pages they
// were first seen on.
func (a *Aggregator) Aggregate(ctx context.Context, pageURLs []string) []listing.SaleStub {
	perPage := make([][]listing.SaleStub, len(pageURLs))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(a.concurrency, len(pageURLs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				perPage[i] = a.scanPage(ctx, pageURLs[i])
			}
		}()
	}

feed:
	for i := range pageURLs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			a.log.Warn().Err(ctx.Err()).Int("remaining", len(pageURLs)-i).Msg("Aggregation cancelled")
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	stubs := DedupeStubs(perPage...)
	a.log.Info().
		Int("pages", len(pageURLs)).
		Int("stubs", len(stubs)).
		Msg("Aggregated sale pages")
	return stubs
}

func (a *Aggregator) scanPage(ctx context.Context, pageURL string) []listing.SaleStub {
	log := a.log.WithField("page", pageURL)

	body, err := a.fetch(ctx, pageURL)
	if err != nil {
		log.WithError(err).Warn().Msg("Skipping page")
		return nil
	}

	stubs := a.ParsePage(pageURL, body)
	log.Debug().Int("stubs", len(stubs)).Msg("Parsed sale page")
	return stubs
}

// fetch waits for the host limiter before every attempt and retries
// transport failures once.
func (a *Aggregator) fetch(ctx context.Context, pageURL string) (string, error) {
	limiter := a.limiter(helpers.Hostname(pageURL))
	var err error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		if werr := limiter.Wait(ctx); werr != nil {
			return "", fmt.Errorf("rate limiter wait aborted: %w", werr)
		}

		var body string
		body, err = a.fetcher.Fetch(ctx, pageURL)
		if err == nil {
			return body, nil
		}

		var appErr *errors.Error
		if !stderrors.As(err, &appErr) || !appErr.IsRetryable() {
			return "", err
		}
		a.log.WithFields(logger.Fields{"page": pageURL, "attempt": attempt}).
			Debug().Err(err).Msg("Retryable fetch failure")
	}
	return "", err
}

// ParsePage runs every strategy on body and concatenates the results
// without deduplicating them.
func (a *Aggregator) ParsePage(pageURL, body string) []listing.SaleStub {
	var out []listing.SaleStub
	for _, s := range a.strategies {
		out = append(out, s(pageURL, body)...)
	}
	return out
}

// limiter returns the per-host limiter, creating it on first use.
func (a *Aggregator) limiter(host string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.limiters[host]
	if !ok {
		limit := rate.Inf
		if a.delay > 0 {
			limit = rate.Every(a.delay)
		}
		l = rate.NewLimiter(limit, 1)
		a.limiters[host] = l
	}
	return l
}

// DedupeStubs merges stub lists by exact URL. The first occurrence fixes the
// position, the last occurrence supplies the fields. Stubs without a URL are
// dropped.
func DedupeStubs(lists ...[]listing.SaleStub) []listing.SaleStub {
	index := make(map[string]int)
	var out []listing.SaleStub
	for _, list := range lists {
		for _, s := range list {
			if s.URL == "" {
				continue
			}
			if i, ok := index[s.URL]; ok {
				out[i] = s
				continue
			}
			index[s.URL] = len(out)
			out = append(out, s)
		}
	}
	return out
}
