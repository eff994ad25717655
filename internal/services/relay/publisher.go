package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/viacare/clinic-relay-service/internal/domain"
	redispkg "github.com/viacare/clinic-relay-service/pkg/redis"
)

// RedisDeduper implements Deduper on Redis SETNX with a TTL window.
type RedisDeduper struct {
	redis redispkg.RedisServiceInterface
}

// NewRedisDeduper creates a new Redis-backed deduper
func NewRedisDeduper(redis redispkg.RedisServiceInterface) *RedisDeduper {
	return &RedisDeduper{redis: redis}
}

// MarkOnce returns true the first time the key is seen within the TTL window.
func (d *RedisDeduper) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return d.redis.MarkOnce(ctx, d.redis.GenerateKey(redispkg.WEBHOOK_DEDUPE, key), ttl)
}

// RedisActivityPublisher implements ActivityPublisher on a Redis pub/sub
// channel consumed by the dashboard's realtime layer.
type RedisActivityPublisher struct {
	redis   redispkg.RedisServiceInterface
	channel string
}

// NewRedisActivityPublisher creates a new Redis-backed activity publisher
func NewRedisActivityPublisher(redis redispkg.RedisServiceInterface, channel string) *RedisActivityPublisher {
	return &RedisActivityPublisher{redis: redis, channel: channel}
}

// PublishLeadActivity pushes one lead activity event to subscribers.
// Publish handles the JSON encoding, so the activity goes straight through
// and the wire message is the object itself.
func (p *RedisActivityPublisher) PublishLeadActivity(ctx context.Context, activity *domain.LeadActivity) error {
	if err := p.redis.Publish(ctx, p.channel, activity); err != nil {
		return fmt.Errorf("failed to publish lead activity: %w", err)
	}
	return nil
}
