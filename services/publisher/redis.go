package publisher

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"sjsage522/salewatch/internal/listing"
	"sjsage522/salewatch/pkg/errors"
)

// MatchField is the stream entry field holding the JSON encoded match
const MatchField = "match"

// RedisPublisher implements Publisher on a single capped Redis stream
type RedisPublisher struct {
	client    *redis.Client
	stream    string
	maxLength int64
}

// NewRedisPublisher creates a new Redis publisher. maxLength <= 0 leaves the
// stream uncapped.
func NewRedisPublisher(addr string, db int, stream string, maxLength int64) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:    client,
		stream:    stream,
		maxLength: maxLength,
	}
}

// Ping checks the Redis connection
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return errors.NewPublisher(p.stream, "ping failed", err)
	}
	return nil
}

// PublishMatch appends the JSON encoded match to the stream, trimming it to
// roughly maxLength entries.
func (p *RedisPublisher) PublishMatch(ctx context.Context, match listing.MatchResult) error {
	data, err := json.Marshal(match)
	if err != nil {
		return errors.NewPublisher(p.stream, "failed to encode match", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			MatchField: string(data),
		},
	}
	if p.maxLength > 0 {
		args.MaxLen = p.maxLength
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return errors.NewPublisher(p.stream, "failed to add stream entry", err)
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
