package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/ports"
)

const keyPrefix = "ast:aitags:"

// RedisTagCache stores classification results as JSON strings with a TTL.
type RedisTagCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ ports.TagCache = (*RedisTagCache)(nil)

// NewRedisTagCache wraps an existing client; a zero TTL keeps entries forever.
func NewRedisTagCache(client redis.UniversalClient, ttl time.Duration) *RedisTagCache {
	return &RedisTagCache{client: client, ttl: ttl}
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrapf(err, "cache: ping %s", addr)
	}
	return client, nil
}

// Get returns the cached tags for key; the bool is false on a miss.
func (c *RedisTagCache) Get(ctx context.Context, key string) (ports.AITags, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ports.AITags{}, false, nil
	}
	if err != nil {
		return ports.AITags{}, false, eris.Wrap(err, "cache: get")
	}

	var tags ports.AITags
	if err := json.Unmarshal(raw, &tags); err != nil {
		return ports.AITags{}, false, eris.Wrap(err, "cache: decode")
	}
	return tags, true, nil
}

// Set stores tags under key.
func (c *RedisTagCache) Set(ctx context.Context, key string, tags ports.AITags) error {
	raw, err := json.Marshal(tags)
	if err != nil {
		return eris.Wrap(err, "cache: encode")
	}
	if err := c.client.Set(ctx, keyPrefix+key, raw, c.ttl).Err(); err != nil {
		return eris.Wrap(err, "cache: set")
	}
	return nil
}
