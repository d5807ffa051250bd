package cache

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PayloadFunc produces the response payload for a cacheable endpoint. A nil
// payload or an error is never cached.
type PayloadFunc func(c *gin.Context) (interface{}, error)

// KeyFunc derives the cache key for a request.
type KeyFunc func(c *gin.Context) string

// Cached wraps a payload-producing handler with read-through caching. On a
// hit it replays the stored payload with cached=true; on a miss it runs the
// handler, responds, and stores the payload only when the handler succeeded.
// Cache trouble downgrades to a plain uncached response.
func Cached(rc *ResponseCache, ttl time.Duration, keyFn KeyFunc, handler PayloadFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		var cached json.RawMessage
		hit, err := rc.Get(c.Request.Context(), key, &cached)
		if err != nil {
			log.Printf("Cache read error for %s: %v", key, err)
		}
		if hit {
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"data":    cached,
				"cached":  true,
			})
			return
		}

		payload, err := handler(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    payload,
		})

		if payload == nil {
			return
		}
		if err := rc.Set(c.Request.Context(), key, payload, ttl); err != nil {
			log.Printf("Cache set error for %s: %v", key, err)
		}
	}
}
