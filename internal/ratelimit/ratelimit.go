package ratelimit

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const quotaKeyPrefix = "ai_rate_limit"

// Result is the outcome of a quota check.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
}

// QuotaTracker caps AI generation requests per user and hour bucket.
//
// Buckets are keyed by hour-of-day rather than an absolute window: the first
// increment sets a 3600s expiry, so counts are approximate around day
// boundaries. Availability wins over strict enforcement; any Redis failure
// lets the request through.
type QuotaTracker struct {
	rdb   *redis.Client
	limit int
	now   func() time.Time
}

func NewQuotaTracker(rdb *redis.Client, limit int) *QuotaTracker {
	if limit <= 0 {
		limit = 5
	}
	return &QuotaTracker{rdb: rdb, limit: limit, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (t *QuotaTracker) WithClock(now func() time.Time) *QuotaTracker {
	t.now = now
	return t
}

// Check consumes one quota unit for userID when the bucket is under the
// limit. The check-then-increment is not atomic across processes; two
// concurrent requests can both pass at the boundary.
func (t *QuotaTracker) Check(ctx context.Context, userID string) Result {
	key := fmt.Sprintf("%s:%s:%d", quotaKeyPrefix, userID, t.now().Hour())

	count, err := t.rdb.Get(ctx, key).Int()
	if err != nil && err != redis.Nil {
		log.Printf("Rate limiter error: %v", err)
		return Result{Allowed: true, Remaining: t.limit}
	}

	if count >= t.limit {
		ttl, err := t.rdb.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = 0
		}
		return Result{Allowed: false, RetryAfter: ttl}
	}

	if err := t.rdb.Incr(ctx, key).Err(); err != nil {
		log.Printf("Rate limiter error: %v", err)
		return Result{Allowed: true, Remaining: t.limit - count}
	}
	if count == 0 {
		if err := t.rdb.Expire(ctx, key, time.Hour).Err(); err != nil {
			log.Printf("Rate limiter error: %v", err)
		}
	}

	return Result{Allowed: true, Remaining: t.limit - count - 1}
}

// Middleware is a generic fixed-window limiter for non-AI routes, keyed by
// the authenticated user when present and the client IP otherwise.
func Middleware(rdb *redis.Client, keyPrefix string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyPrefix + ":" + clientKey(c)

		count, err := rdb.Get(c.Request.Context(), key).Int()
		if err != nil && err != redis.Nil {
			log.Printf("Rate limiter error: %v", err)
			c.Next()
			return
		}

		if count >= maxRequests {
			ttl, _ := rdb.TTL(c.Request.Context(), key).Result()
			if ttl < 0 {
				ttl = 0
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":           false,
				"message":           "Too many requests. Please try again later.",
				"retryAfterSeconds": int(ttl.Seconds()),
			})
			return
		}

		if err := rdb.Incr(c.Request.Context(), key).Err(); err != nil {
			log.Printf("Rate limiter error: %v", err)
			c.Next()
			return
		}
		if count == 0 {
			_ = rdb.Expire(c.Request.Context(), key, window).Err()
		}

		c.Next()
	}
}

func clientKey(c *gin.Context) string {
	if id, ok := c.Get("userID"); ok {
		if s, ok := id.(string); ok && s != "" {
			return s
		}
	}
	return c.ClientIP()
}
