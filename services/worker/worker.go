package worker

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"sjsage522/salewatch/internal/listing"
	"sjsage522/salewatch/internal/matcher"
	"sjsage522/salewatch/logger"
	"sjsage522/salewatch/services/cache"
	"sjsage522/salewatch/services/publisher"
	"sjsage522/salewatch/services/wishlist"
)

// SaleAggregator scans sale pages into stubs
type SaleAggregator interface {
	Aggregate(ctx context.Context, pageURLs []string) []listing.SaleStub
}

// Options configures a Worker
type Options struct {
	SalePages   []string
	Schedule    string
	SnapshotTTL time.Duration
}

// RunStats summarizes one sale watch run
type RunStats struct {
	Stubs     int
	Tracked   int
	Matches   int
	Published int
	Elapsed   time.Duration
}

// Worker periodically scans the sale pages, stores the snapshot and
// publishes every tracked item found on sale
type Worker struct {
	aggregator SaleAggregator
	cache      cache.CacheService
	source     wishlist.Source
	matcher    *matcher.Matcher
	publisher  publisher.Publisher
	opts       Options
	log        *logger.Logger
}

// NewWorker creates a new worker. cache may be nil.
func NewWorker(
	agg SaleAggregator,
	c cache.CacheService,
	source wishlist.Source,
	m *matcher.Matcher,
	pub publisher.Publisher,
	opts Options,
) *Worker {
	if opts.Schedule == "" {
		opts.Schedule = "@every 1h"
	}
	return &Worker{
		aggregator: agg,
		cache:      c,
		source:     source,
		matcher:    m,
		publisher:  pub,
		opts:       opts,
		log:        logger.ForWorker(),
	}
}

// Start runs once immediately and then on the schedule until ctx is done.
// A run still in progress when the next one is due makes that one skip.
func (w *Worker) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	job := cron.FuncJob(func() {
		if _, err := w.RunOnce(ctx); err != nil {
			w.log.Error().Err(err).Msg("Sale watch run finished with errors")
		}
	})
	if _, err := c.AddJob(w.opts.Schedule, job); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", w.opts.Schedule, err)
	}

	w.log.Info().
		Str("schedule", w.opts.Schedule).
		Int("sale_pages", len(w.opts.SalePages)).
		Msg("Starting sale watch")

	job.Run()
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// RunOnce aggregates the sale pages, stores the snapshot, matches the tracked
// items and publishes each match. Step errors are logged and joined; later
// steps still run when they have input.
func (w *Worker) RunOnce(ctx context.Context) (RunStats, error) {
	start := time.Now()
	var stats RunStats
	var errs []error

	stubs := w.aggregator.Aggregate(ctx, w.opts.SalePages)
	stats.Stubs = len(stubs)

	if w.cache != nil {
		snap := cache.Snapshot{Pages: w.opts.SalePages, Stubs: stubs, CreatedAt: time.Now().UTC()}
		if err := cache.SaveSnapshot(w.cache, snap, w.opts.SnapshotTTL); err != nil {
			w.log.Warn().Err(err).Msg("Failed to store sale snapshot")
			errs = append(errs, err)
		}
	}

	tracked, err := w.source.Tracked(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Failed to load tracked items")
		errs = append(errs, err)
	}
	stats.Tracked = len(tracked)

	matches := w.matcher.Match(tracked, stubs)
	stats.Matches = len(matches)

	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := w.publisher.PublishMatch(ctx, m); err != nil {
			w.log.Error().Err(err).Str("url", m.Tracked.URL).Msg("Failed to publish match")
			errs = append(errs, err)
			continue
		}
		stats.Published++
	}

	stats.Elapsed = time.Since(start)
	w.log.Info().
		Int("stubs", stats.Stubs).
		Int("tracked", stats.Tracked).
		Int("matches", stats.Matches).
		Int("published", stats.Published).
		Dur("elapsed", stats.Elapsed).
		Msg("Sale watch run complete")

	return stats, stderrors.Join(errs...)
}
