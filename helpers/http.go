package helpers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"sjsage522/salewatch/logger"
	"sjsage522/salewatch/pkg/errors"
)

const (
	// DefaultFetchTimeout bounds a single page fetch
	DefaultFetchTimeout = 12 * time.Second

	// DesktopUserAgent is sent with every request; catalog sites block
	// script-like user agents.
	DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

	blockKeyPrefix = "blocked:"
	maxBodyBytes   = 8 << 20
)

// BlockStore remembers hosts that answered with a rate limit.
// services/cache.CacheService satisfies it.
type BlockStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, expiration time.Duration) error
}

// PageFetcher performs GET requests with a fixed desktop browser header set
// and returns UTF-8 bodies.
type PageFetcher struct {
	client    *http.Client
	timeout   time.Duration
	blocks    BlockStore
	blockTime time.Duration
}

// NewPageFetcher creates a fetcher. blocks may be nil, which disables the
// per-host block after 429/430 responses.
func NewPageFetcher(timeout time.Duration, blocks BlockStore, blockTime time.Duration) *PageFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &PageFetcher{
		client:    &http.Client{Timeout: timeout},
		timeout:   timeout,
		blocks:    blocks,
		blockTime: blockTime,
	}
}

// Fetch downloads url and converts the body to UTF-8. Timeouts and transport
// failures are network errors; 429 and 430 are rate limit errors and block
// the host for the configured block time; other non-2xx answers are status
// errors.
func (f *PageFetcher) Fetch(ctx context.Context, url string) (string, error) {
	host := Hostname(url)
	if f.isBlocked(host) {
		return "", errors.NewBlocked(url, f.blockTime)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.NewNetwork(url, "failed to create request", err)
	}
	setBrowserHeaders(req, url)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.NewNetwork(url, "failed to fetch URL", err)
	}
	defer resp.Body.Close()

	// Check for rate limiting
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		f.block(host)
		return "", errors.NewRateLimit(url, resp.Header.Get("Retry-After"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.NewStatus(url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", errors.NewNetwork(url, "failed to read response body", err)
	}

	return decodeUTF8(body, resp.Header.Get("Content-Type"))
}

func setBrowserHeaders(req *http.Request, url string) {
	req.Header.Set("User-Agent", DesktopUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ko-KR;q=0.8,ko;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	if origin := Origin(url); origin != "" {
		req.Header.Set("Referer", origin)
	}
}

// decodeUTF8 converts body to UTF-8 based on the Content-Type header and
// the body's own meta tags.
func decodeUTF8(body []byte, contentType string) (string, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if strings.EqualFold(name, "utf-8") {
		return string(body), nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, encoding.NewDecoder().Reader(bytes.NewReader(body))); err != nil {
		return "", errors.NewParsing("", "failed to convert body to UTF-8", err)
	}
	return buf.String(), nil
}

func (f *PageFetcher) isBlocked(host string) bool {
	if f.blocks == nil || host == "" || f.blockTime <= 0 {
		return false
	}
	_, err := f.blocks.Get(blockKeyPrefix + host)
	return err == nil
}

func (f *PageFetcher) block(host string) {
	if f.blocks == nil || host == "" || f.blockTime <= 0 {
		return
	}
	seconds := strconv.Itoa(int(f.blockTime / time.Second))
	if err := f.blocks.Set(blockKeyPrefix+host, []byte(seconds), f.blockTime); err != nil {
		logger.Warn("Failed to store block for %s: %v", host, err)
	}
}
