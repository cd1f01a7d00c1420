package internal

import (
	"sjsage522/salewatch/internal/render"
	"sjsage522/salewatch/logger"
	"sjsage522/salewatch/services/cache"
	"sjsage522/salewatch/services/publisher"
	"sjsage522/salewatch/services/wishlist"
)

// Dependencies holds all service dependencies. Renderer is nil when
// rendering is disabled.
type Dependencies struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Wishlist  *wishlist.SQLSource
	Renderer  *render.Renderer
}

// Cleanup closes every service that holds a connection
func (d *Dependencies) Cleanup() {
	log := logger.ForComponent("services")
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close publisher")
		}
	}
	if d.Wishlist != nil {
		if err := d.Wishlist.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close wishlist source")
		}
	}
	if d.Renderer != nil {
		if err := d.Renderer.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close renderer")
		}
	}
}
