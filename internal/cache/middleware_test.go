package cache

import (
	"encoding/json"
	"errors"
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

func cachedRouter(rc *ResponseCache, handler PayloadFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	key := func(c *gin.Context) string { return "cache:test:key" }
	r.GET("/cached", Cached(rc, time.Minute, key, handler))
	return r
}

func doGet(t *testing.T, r *gin.Engine) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/cached", nil)
	r.ServeHTTP(w, req)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestCached_MissRunsHandlerAndStores(t *testing.T) {
	rc, mr := newCache(t)
	calls := 0
	r := cachedRouter(rc, func(c *gin.Context) (interface{}, error) {
		calls++
		return map[string]int{"count": calls}, nil
	})

	w, body := doGet(t, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Nil(t, body["cached"])
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("cache:test:key"))
}

func TestCached_HitReplaysWithoutHandler(t *testing.T) {
	rc, _ := newCache(t)
	calls := 0
	r := cachedRouter(rc, func(c *gin.Context) (interface{}, error) {
		calls++
		return map[string]int{"count": calls}, nil
	})

	doGet(t, r)
	_, body := doGet(t, r)

	assert.Equal(t, true, body["cached"])
	assert.Equal(t, map[string]interface{}{"count": float64(1)}, body["data"])
	assert.Equal(t, 1, calls)
}

func TestCached_HandlerErrorNotCached(t *testing.T) {
	rc, mr := newCache(t)
	r := cachedRouter(rc, func(c *gin.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})

	w, body := doGet(t, r)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, body["success"])
	assert.False(t, mr.Exists("cache:test:key"))
}

func TestCached_RedisDownDegradesToUncached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rc := NewResponseCache(rdb)
	mr.Close()

	calls := 0
	r := cachedRouter(rc, func(c *gin.Context) (interface{}, error) {
		calls++
		return gin.H{"ok": true}, nil
	})

	w, body := doGet(t, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 1, calls)

	doGet(t, r)
	assert.Equal(t, 2, calls)
}
