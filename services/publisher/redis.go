package publisher

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher implements Publisher on top of a capped Redis stream.
// Downstream consumers (alerting, analytics) read newly discovered listings
// from the stream without touching the database.
type RedisPublisher struct {
	client *redis.Client
	ctx    context.Context
	stream string
	maxLen int64
}

// NewRedisPublisher creates a publisher writing to the given stream, trimmed
// to roughly maxLen entries.
func NewRedisPublisher(ctx context.Context, addr string, db int, stream string, maxLen int64) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client: client,
		ctx:    ctx,
		stream: stream,
		maxLen: maxLen,
	}
}

// Publish appends one serialized listing to the stream.
func (p *RedisPublisher) Publish(message []byte) error {
	return p.client.XAdd(p.ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"listing": string(message),
		},
	}).Err()
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
