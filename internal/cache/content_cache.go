package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/postpilotapp/postpilot/internal/models"
)

const keyPrefix = "content:v1:"

// Store is the slice of redis the cache needs. *redis.Client satisfies it;
// tests substitute fakes.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// ContentCache is a content-addressable store for generated content keyed by
// brief hash. When the backing store is unreachable it degrades to a
// transparent no-op: every Get misses and writes are dropped. Generation must
// never fail because the cache is down.
type ContentCache struct {
	store Store
	ttl   time.Duration
}

func New(store Store, ttl time.Duration) *ContentCache {
	return &ContentCache{store: store, ttl: ttl}
}

func (c *ContentCache) Available() bool {
	return c != nil && c.store != nil
}

func key(brief *models.ContentBrief) string {
	return keyPrefix + brief.Hash()
}

// Get returns the cached content for the brief, or nil on miss. Store errors
// are logged and reported as misses.
func (c *ContentCache) Get(ctx context.Context, brief *models.ContentBrief) *models.GeneratedContent {
	if !c.Available() {
		return nil
	}

	data, err := c.store.Get(ctx, key(brief)).Result()
	if err != nil {
		if err != redis.Nil {
			slog.Info("cache get failed: " + err.Error())
		}
		c.bump(ctx, "misses")
		return nil
	}

	var content models.GeneratedContent
	if err := json.Unmarshal([]byte(data), &content); err != nil {
		slog.Info("cache entry corrupt, dropping: " + err.Error())
		c.store.Del(ctx, key(brief))
		c.bump(ctx, "misses")
		return nil
	}

	c.bump(ctx, "hits")
	return &content
}

// Set writes the content under the brief's hash with the configured TTL.
// Failures are logged, never surfaced.
func (c *ContentCache) Set(ctx context.Context, brief *models.ContentBrief, content *models.GeneratedContent) {
	if !c.Available() {
		return
	}

	data, err := json.Marshal(content)
	if err != nil {
		slog.Info("cache set marshal failed: " + err.Error())
		return
	}

	if err := c.store.Set(ctx, key(brief), data, c.ttl).Err(); err != nil {
		slog.Info("cache set failed: " + err.Error())
	}
}

// Invalidate removes every key under the given sub-prefix.
func (c *ContentCache) Invalidate(ctx context.Context, prefix string) error {
	if !c.Available() {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := c.store.Scan(ctx, cursor, keyPrefix+prefix+"*", 100).Result()
		if err != nil {
			slog.Info("cache scan failed: " + err.Error())
			return err
		}
		if len(keys) > 0 {
			if err := c.store.Del(ctx, keys...).Err(); err != nil {
				slog.Info("cache delete failed: " + err.Error())
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (c *ContentCache) bump(ctx context.Context, counter string) {
	// Hit/miss counters are best effort.
	if err := c.store.Incr(ctx, keyPrefix+"stats:"+counter).Err(); err != nil {
		slog.Info("cache counter failed: " + err.Error())
	}
}
