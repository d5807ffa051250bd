package ratelimit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T, limit int) (*QuotaTracker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	fixed := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	tracker := NewQuotaTracker(rdb, limit).WithClock(func() time.Time { return fixed })
	return tracker, mr
}

func TestQuotaTracker_AllowsUpToLimit(t *testing.T) {
	tracker, _ := newTracker(t, 5)
	ctx := t.Context()

	for i := 0; i < 5; i++ {
		res := tracker.Check(ctx, "user-1")
		assert.True(t, res.Allowed, "call %d", i+1)
		assert.Equal(t, 4-i, res.Remaining)
	}

	res := tracker.Check(ctx, "user-1")
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
}

func TestQuotaTracker_DenialDoesNotConsume(t *testing.T) {
	tracker, mr := newTracker(t, 2)
	ctx := t.Context()

	tracker.Check(ctx, "user-1")
	tracker.Check(ctx, "user-1")
	tracker.Check(ctx, "user-1")
	tracker.Check(ctx, "user-1")

	count, err := mr.Get("ai_rate_limit:user-1:14")
	require.NoError(t, err)
	assert.Equal(t, "2", count)
}

func TestQuotaTracker_FirstIncrementSetsExpiry(t *testing.T) {
	tracker, mr := newTracker(t, 5)

	tracker.Check(t.Context(), "user-1")

	ttl := mr.TTL("ai_rate_limit:user-1:14")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestQuotaTracker_BucketExpiryResetsCount(t *testing.T) {
	tracker, mr := newTracker(t, 1)
	ctx := t.Context()

	assert.True(t, tracker.Check(ctx, "user-1").Allowed)
	assert.False(t, tracker.Check(ctx, "user-1").Allowed)

	mr.FastForward(time.Hour + time.Second)

	assert.True(t, tracker.Check(ctx, "user-1").Allowed)
}

func TestQuotaTracker_UsersDoNotShareBuckets(t *testing.T) {
	tracker, _ := newTracker(t, 1)
	ctx := t.Context()

	assert.True(t, tracker.Check(ctx, "user-1").Allowed)
	assert.False(t, tracker.Check(ctx, "user-1").Allowed)
	assert.True(t, tracker.Check(ctx, "user-2").Allowed)
}

func TestQuotaTracker_FailsOpenWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tracker := NewQuotaTracker(rdb, 5)
	mr.Close()

	res := tracker.Check(t.Context(), "user-1")
	assert.True(t, res.Allowed)
}

func TestMiddleware_LimitsByClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	r := gin.New()
	r.GET("/ping", Middleware(rdb, "rate_limit:test", 3, time.Minute), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(last, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Contains(t, last.Body.String(), "retryAfterSeconds")
}

func TestMiddleware_FailsOpenWhenRedisDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	r := gin.New()
	r.GET("/ping", Middleware(rdb, "rate_limit:test", 1, time.Minute), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/ping?i=%d", i), nil)
		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}
