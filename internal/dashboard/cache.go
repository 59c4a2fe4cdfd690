package dashboard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedRender 是缓存中的一条渲染结果。
type CachedRender struct {
	HTML string `json:"html"`
	Kind string `json:"kind"`
}

// RenderCache caches rendered card fragments keyed by document hash.
// A changed document produces a new key, so entries never go stale.
type RenderCache interface {
	Get(ctx context.Context, key string) (CachedRender, bool, error)
	Set(ctx context.Context, key string, entry CachedRender) error
}

// CacheKey derives the cache key from the document text and the card title.
func CacheKey(document, title string) string {
	sum := sha256.Sum256([]byte(title + "\x00" + document))
	return "card_render:" + hex.EncodeToString(sum[:])
}

// RedisRenderCache 基于 Redis 的渲染缓存实现。
type RedisRenderCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRenderCache(client *redis.Client, ttl time.Duration) *RedisRenderCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisRenderCache{client: client, ttl: ttl}
}

func (c *RedisRenderCache) Get(ctx context.Context, key string) (CachedRender, bool, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return CachedRender{}, false, nil
	}
	if err != nil {
		return CachedRender{}, false, fmt.Errorf("cache get %q: %w", key, err)
	}

	var entry CachedRender
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		// 旧格式或损坏的条目按未命中处理。
		return CachedRender{}, false, nil
	}
	return entry, true, nil
}

func (c *RedisRenderCache) Set(ctx context.Context, key string, entry CachedRender) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}
