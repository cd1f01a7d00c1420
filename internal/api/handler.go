// Package api exposes extraction, sale aggregation and matching over HTTP
// for the browser extension and other callers.
package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"

	"sjsage522/salewatch/internal/extractor"
	"sjsage522/salewatch/internal/listing"
	"sjsage522/salewatch/internal/matcher"
	"sjsage522/salewatch/internal/page"
	"sjsage522/salewatch/logger"
	"sjsage522/salewatch/services/cache"
)

const (
	ModeText = "text"
	ModeDOM  = "dom"

	SourceSnapshot = "snapshot"
	SourceLive     = "live"
)

// Fetcher retrieves raw page HTML
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Renderer loads a page in a browser and returns its DOM
type Renderer interface {
	Render(ctx context.Context, url string) (*goquery.Document, error)
}

// SaleAggregator scans sale pages into stubs
type SaleAggregator interface {
	Aggregate(ctx context.Context, pageURLs []string) []listing.SaleStub
}

// Wishlist stores the items the user tracks. wishlist.SQLSource satisfies it.
type Wishlist interface {
	Tracked(ctx context.Context) ([]listing.TrackedItem, error)
	Add(ctx context.Context, item listing.TrackedItem) error
	Deactivate(ctx context.Context, url string) error
}

// Handler holds dependencies for HTTP handlers. Renderer, Cache and Wishlist
// may be nil.
type Handler struct {
	Fetcher    Fetcher
	Renderer   Renderer
	Aggregator SaleAggregator
	Cache      cache.CacheService
	Matcher    *matcher.Matcher
	Wishlist   Wishlist
	SalePages  []string

	log *logger.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(h Handler) *Handler {
	h.log = logger.ForComponent("api")
	if h.Matcher == nil {
		h.Matcher = matcher.NewMatcher(0)
	}
	return &h
}

type extractRequest struct {
	URL  string `json:"url" binding:"required"`
	HTML string `json:"html"`
	Mode string `json:"mode"`
}

type extractResponse struct {
	listing.Listing
	FetchError string `json:"fetchError,omitempty"`
}

type salesResponse struct {
	Source    string             `json:"source"`
	CreatedAt *time.Time         `json:"createdAt,omitempty"`
	Stubs     []listing.SaleStub `json:"stubs"`
}

type matchRequest struct {
	Tracked   []listing.TrackedItem `json:"tracked" binding:"required"`
	Stubs     []listing.SaleStub    `json:"stubs"`
	Threshold float64               `json:"threshold"`
}

type matchResponse struct {
	Matches []listing.MatchResult `json:"matches"`
}

type trackedResponse struct {
	Tracked []listing.TrackedItem `json:"tracked"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "salewatch",
	})
}

// ExtractListing extracts a listing from supplied HTML, or from the page
// fetched or rendered on behalf of the caller.
func (h *Handler) ExtractListing(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validPageURL(req.URL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url must be an absolute http(s) URL"})
		return
	}
	if req.Mode == "" {
		req.Mode = ModeText
	}
	if req.Mode != ModeText && req.Mode != ModeDOM {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be text or dom"})
		return
	}

	c.JSON(http.StatusOK, h.extract(c.Request.Context(), req))
}

func (h *Handler) extract(ctx context.Context, req extractRequest) extractResponse {
	log := h.log.WithField("url", req.URL)

	switch {
	case req.HTML != "" && req.Mode == ModeDOM:
		a, err := page.ParseDocument(req.URL, req.HTML)
		if err != nil {
			log.Warn().Err(err).Msg("Falling back to text extraction")
			return extractResponse{Listing: extractor.ExtractListing(req.URL, req.HTML)}
		}
		return extractResponse{Listing: extractor.Extract(a)}

	case req.HTML != "":
		return extractResponse{Listing: extractor.ExtractListing(req.URL, req.HTML)}

	case req.Mode == ModeDOM && h.Renderer != nil:
		doc, err := h.Renderer.Render(ctx, req.URL)
		if err != nil {
			log.Warn().Err(err).Msg("Render failed")
			return extractResponse{Listing: extractor.ExtractListing(req.URL, ""), FetchError: err.Error()}
		}
		return extractResponse{Listing: extractor.ExtractListingFromDocument(req.URL, doc)}
	}

	markup, err := h.Fetcher.Fetch(ctx, req.URL)
	if err != nil {
		log.Warn().Err(err).Msg("Fetch failed")
		return extractResponse{Listing: extractor.ExtractListing(req.URL, ""), FetchError: err.Error()}
	}
	return extractResponse{Listing: extractor.ExtractListing(req.URL, markup)}
}

// ListSales returns the stubs of the given page query parameters, or the
// cached snapshot, or a live scan of the configured sale pages.
func (h *Handler) ListSales(c *gin.Context) {
	pages := c.QueryArray("page")
	for _, p := range pages {
		if !validPageURL(p) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page URL: " + p})
			return
		}
	}
	c.JSON(http.StatusOK, h.sales(c.Request.Context(), pages))
}

func (h *Handler) sales(ctx context.Context, pages []string) salesResponse {
	if len(pages) == 0 && h.Cache != nil {
		snap, ok, err := cache.LoadSnapshot(h.Cache)
		if err != nil {
			h.log.Warn().Err(err).Msg("Ignoring unreadable snapshot")
		}
		if ok {
			return salesResponse{Source: SourceSnapshot, CreatedAt: &snap.CreatedAt, Stubs: nonNil(snap.Stubs)}
		}
	}
	if len(pages) == 0 {
		pages = h.SalePages
	}
	return salesResponse{Source: SourceLive, Stubs: nonNil(h.Aggregator.Aggregate(ctx, pages))}
}

// MatchTracked matches the posted tracked items against the posted stubs,
// or against the current sales when no stubs are given.
func (h *Handler) MatchTracked(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Threshold < 0 || req.Threshold >= 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be between 0 and 1"})
		return
	}

	m := h.Matcher
	if req.Threshold > 0 {
		m = matcher.NewMatcher(req.Threshold)
	}

	stubs := req.Stubs
	if stubs == nil {
		stubs = h.sales(c.Request.Context(), nil).Stubs
	}

	matches := m.Match(req.Tracked, stubs)
	if matches == nil {
		matches = []listing.MatchResult{}
	}
	c.JSON(http.StatusOK, matchResponse{Matches: matches})
}

// ListTracked returns the active tracked items
func (h *Handler) ListTracked(c *gin.Context) {
	if !h.requireWishlist(c) {
		return
	}
	items, err := h.Wishlist.Tracked(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error().Msg("Failed to load tracked items")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tracked items"})
		return
	}
	if items == nil {
		items = []listing.TrackedItem{}
	}
	c.JSON(http.StatusOK, trackedResponse{Tracked: items})
}

// TrackListing extracts the listing the same way ExtractListing does and
// saves it to the wishlist. Pages that could not be fetched are not saved.
func (h *Handler) TrackListing(c *gin.Context) {
	if !h.requireWishlist(c) {
		return
	}
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validPageURL(req.URL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url must be an absolute http(s) URL"})
		return
	}
	if req.Mode == "" {
		req.Mode = ModeText
	}
	if req.Mode != ModeText && req.Mode != ModeDOM {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be text or dom"})
		return
	}

	res := h.extract(c.Request.Context(), req)
	if res.FetchError != "" {
		c.JSON(http.StatusBadGateway, gin.H{"error": res.FetchError})
		return
	}

	item := listing.TrackedFromListing(res.Listing)
	if err := h.Wishlist.Add(c.Request.Context(), item); err != nil {
		h.log.WithFields(logger.Fields{"url": item.URL}).WithError(err).Error().Msg("Failed to save tracked item")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save tracked item"})
		return
	}
	c.JSON(http.StatusCreated, item)
}

// UntrackListing deactivates the tracked item given by the url query parameter
func (h *Handler) UntrackListing(c *gin.Context) {
	if !h.requireWishlist(c) {
		return
	}
	target := c.Query("url")
	if !validPageURL(target) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url must be an absolute http(s) URL"})
		return
	}
	if err := h.Wishlist.Deactivate(c.Request.Context(), target); err != nil {
		h.log.WithError(err).Error().Str("url", target).Msg("Failed to deactivate tracked item")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate tracked item"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) requireWishlist(c *gin.Context) bool {
	if h.Wishlist == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "wishlist storage is not configured"})
		return false
	}
	return true
}

func validPageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func nonNil(stubs []listing.SaleStub) []listing.SaleStub {
	if stubs == nil {
		return []listing.SaleStub{}
	}
	return stubs
}
