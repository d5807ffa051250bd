package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResponseCache memoizes expensive read endpoints in Redis with short TTLs.
// Entries are written whole and removed by pattern, never partially updated.
type ResponseCache struct {
	rdb *redis.Client
}

func NewResponseCache(rdb *redis.Client) *ResponseCache {
	return &ResponseCache{rdb: rdb}
}

// DashboardKey buckets the dashboard cache per user and calendar day.
func DashboardKey(userID string, now time.Time) string {
	return fmt.Sprintf("dashboard:%s:%s", userID, now.UTC().Format("2006-01-02"))
}

// GenericKey identifies a cached list endpoint by path, user and query shape.
func GenericKey(path, userID string, query map[string][]string) string {
	q, _ := json.Marshal(query)
	return fmt.Sprintf("cache:%s:%s:%s", path, userID, string(q))
}

// Get unmarshals the cached payload into dest and reports whether it hit.
func (c *ResponseCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *ResponseCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// InvalidatePattern deletes every key matching pattern (lookup then delete).
func (c *ResponseCache) InvalidatePattern(ctx context.Context, pattern string) error {
	keys, err := c.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return err
	}
	log.Printf("Invalidated %d cache keys matching pattern: %s", len(keys), pattern)
	return nil
}

// InvalidateUser substitutes userID into each pattern's {userID} placeholder
// and clears the matches. Failures are logged, never propagated.
func (c *ResponseCache) InvalidateUser(ctx context.Context, userID string, patterns ...string) {
	for _, pattern := range patterns {
		full := strings.ReplaceAll(pattern, "{userID}", userID)
		if err := c.InvalidatePattern(ctx, full); err != nil {
			log.Printf("Cache invalidation error for pattern %s: %v", full, err)
		}
	}
}
