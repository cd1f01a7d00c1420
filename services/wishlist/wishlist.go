// Package wishlist loads the tracked items the sale watch compares against
// the aggregated sale stubs.
package wishlist

import (
	"context"

	"sjsage522/salewatch/internal/listing"
)

// Source provides the active tracked items
type Source interface {
	// Tracked returns every active tracked item in a stable order
	Tracked(ctx context.Context) ([]listing.TrackedItem, error)
}

// StaticSource is a fixed in-memory Source
type StaticSource []listing.TrackedItem

// Tracked returns a copy of the items
func (s StaticSource) Tracked(ctx context.Context) ([]listing.TrackedItem, error) {
	return append([]listing.TrackedItem(nil), s...), nil
}
