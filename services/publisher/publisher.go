package publisher

import (
	"context"

	"sjsage522/salewatch/internal/listing"
)

// Publisher delivers match events to downstream consumers
type Publisher interface {
	// PublishMatch publishes one match result
	PublishMatch(ctx context.Context, match listing.MatchResult) error

	// Close closes the publisher connection
	Close() error
}
