package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/rueidis"
)

// MetricsCache keeps rendered metrics/dashboard payloads in redis for a short
// TTL. A nil cache (redis not configured) is a no-op, the way the report
// services treat an absent cache backend.
type MetricsCache struct {
	client rueidis.Client
	ttl    time.Duration
}

func NewMetricsCache(client rueidis.Client, ttl time.Duration) *MetricsCache {
	if client == nil {
		return nil
	}
	return &MetricsCache{client: client, ttl: ttl}
}

func (c *MetricsCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	res := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if err := res.Error(); err != nil {
		if !rueidis.IsRedisNil(err) {
			log.Printf("metrics cache get %s: %v", key, err)
		}
		return nil, false
	}

	payload, err := res.AsBytes()
	if err != nil {
		return nil, false
	}
	return payload, true
}

func (c *MetricsCache) Set(ctx context.Context, key string, payload []byte) {
	if c == nil {
		return
	}

	cmd := c.client.B().Set().Key(key).Value(string(payload)).
		Ex(c.ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		log.Printf("metrics cache set %s: %v", key, err)
	}
}

// Invalidate drops cached payloads after a task mutation.
func (c *MetricsCache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil {
		return
	}

	if err := c.client.Do(ctx, c.client.B().Del().Key(keys...).Build()).Error(); err != nil {
		log.Printf("metrics cache invalidate: %v", err)
	}
}
