package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sjsage522/salewatch/config"
	"sjsage522/salewatch/helpers"
	"sjsage522/salewatch/internal"
	"sjsage522/salewatch/internal/aggregator"
	"sjsage522/salewatch/internal/api"
	"sjsage522/salewatch/internal/matcher"
	"sjsage522/salewatch/internal/render"
	"sjsage522/salewatch/logger"
	"sjsage522/salewatch/services/cache"
	"sjsage522/salewatch/services/publisher"
	"sjsage522/salewatch/services/wishlist"
	"sjsage522/salewatch/services/worker"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration: %v", err)
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("schedule", cfg.ScanSchedule).
		Strs("sale_pages", cfg.SalePages).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	deps, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer deps.Cleanup()

	fetcher := helpers.NewPageFetcher(cfg.FetchTimeout, deps.Cache, cfg.BlockTime)
	agg, err := aggregator.New(fetcher, aggregator.Options{
		ProductPath: cfg.ProductPathPattern,
		PageDelay:   cfg.PageDelay,
		Concurrency: cfg.PageConcurrency,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create aggregator")
	}
	m := matcher.NewMatcher(cfg.MatchThreshold)

	// Create and start worker
	w := worker.NewWorker(agg, deps.Cache, deps.Wishlist, m, deps.Publisher, worker.Options{
		SalePages:   cfg.SalePages,
		Schedule:    cfg.ScanSchedule,
		SnapshotTTL: cfg.SnapshotTTL,
	})

	workerDone := make(chan error, 1)
	go func() {
		workerDone <- w.Start(ctx)
	}()

	// HTTP API
	handler := api.NewHandler(api.Handler{
		Fetcher:    fetcher,
		Aggregator: agg,
		Cache:      deps.Cache,
		Matcher:    m,
		Wishlist:   deps.Wishlist,
		SalePages:  cfg.SalePages,
	})
	if deps.Renderer != nil {
		handler.Renderer = deps.Renderer
	}
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewHTTPHandler(api.SetupRouter(cfg.IsProduction(), handler), cfg.AllowedOrigins, cfg.APIRateLimit),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
		close(serverDone)
	}()

	// Wait for shutdown signal, worker or server error
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
	case err := <-workerDone:
		if err != nil {
			logger.Error("Worker exited with error: %v", err)
		} else {
			log.Info().Msg("Worker exited normally")
		}
	case err := <-serverDone:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server exited with error")
		}
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown failed")
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*internal.Dependencies, error) {
	deps := &internal.Dependencies{}

	// Initialize cache service, falling back to process memory
	memcacheService := cache.NewMemcacheService(cfg.MemcacheAddr, 0)
	if err := memcacheService.Ping(); err != nil {
		logger.ForCache().Warn().Err(err).
			Str("addr", cfg.MemcacheAddr).
			Msg("Memcache unavailable, using in-memory cache")
		deps.Cache = cache.NewMemoryCache()
	} else {
		deps.Cache = memcacheService
		logger.ForCache().Info().Str("addr", cfg.MemcacheAddr).Msg("Connected to Memcache")
	}

	// Initialize publisher
	redisPublisher := publisher.NewRedisPublisher(
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamMaxLength,
	)
	if err := redisPublisher.Ping(ctx); err != nil {
		redisPublisher.Close()
		return nil, err
	}
	deps.Publisher = redisPublisher

	logger.ForPublisher().Info().
		Str("addr", cfg.RedisAddr).
		Int("db", cfg.RedisDB).
		Str("stream", cfg.RedisStream).
		Msg("Connected to Redis")

	// Initialize wishlist source
	source, err := wishlist.OpenSQLSource(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		deps.Cleanup()
		return nil, err
	}
	deps.Wishlist = source
	if err := source.Migrate(ctx); err != nil {
		deps.Cleanup()
		return nil, err
	}
	logger.Info("Loaded wishlist source (%s)", cfg.DatabaseDriver)

	// Initialize renderer
	if cfg.RenderEnabled {
		renderer, err := render.New(render.Options{
			ControlURL: cfg.ChromeControlURL,
			Timeout:    cfg.RenderTimeout,
		})
		if err != nil {
			deps.Cleanup()
			return nil, fmt.Errorf("failed to start renderer: %w", err)
		}
		deps.Renderer = renderer
		logger.Debug("Renderer ready (control URL %q)", cfg.ChromeControlURL)
	}

	return deps, nil
}
