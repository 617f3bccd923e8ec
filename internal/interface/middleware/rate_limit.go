package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/coursehub/enrollment-api/pkg/response"
)

// ipFromCtx extracts the client IP from Gin context, falling back to "unknown"
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString(CtxRealIPKey); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func normalizePath(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyFunc builds a rate-limit key from the request
// Example: combine client IP and route path for more granular limiting
type KeyFunc func(c *gin.Context) string

// KeyByIP returns a key function that limits by client IP only
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:ip:" + ipFromCtx(c)
	}
}

// KeyByIPAndPath returns a key function that limits by client IP and request path
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:path:" + normalizePath(c) + ":ip:" + ipFromCtx(c)
	}
}

// KeyByUserID limits authenticated callers per user and anonymous ones per IP
func KeyByUserID() KeyFunc {
	return func(c *gin.Context) string {
		uid := c.GetString(CtxUserIDKey)
		if uid == "" {
			return "rl:user:anon:ip:" + ipFromCtx(c)
		}
		return "rl:user:" + uid
	}
}

// Counter counts hits per key inside a fixed window.
type Counter interface {
	// Hit increments key and returns the new count and the time left in
	// the current window.
	Hit(ctx context.Context, key string, window time.Duration) (int, time.Duration, error)
}

// INCR, start the window on the first hit, return {count, pttl}.
var hitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

type redisCounter struct {
	rdb *redis.Client
}

func (r redisCounter) Hit(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	res, err := hitScript.Run(ctx, r.rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}
	return int(res[0]), time.Duration(res[1]) * time.Millisecond, nil
}

type AllowFunc func(*gin.Context) bool // return true for bypass limit

// RateLimit limits requests per key with a Redis fixed window. Without Redis
// it is a no-op.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return RateLimitWith(redisCounter{rdb: rdb}, limit, window, keyFn, allow)
}

// RateLimitWith is RateLimit over any Counter. It sets the X-RateLimit-*
// headers, answers 429 with Retry-After once limit is exceeded and fails open
// when the counter errors.
func RateLimitWith(counter Counter, limit int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if counter == nil || limit <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if allow != nil && allow(c) {
			c.Next()
			return
		}
		if strings.EqualFold(c.Request.Method, http.MethodOptions) {
			c.Next()
			return
		}

		count, left, err := counter.Hit(c.Request.Context(), keyFn(c), window)
		if err != nil {
			c.Next()
			return
		}
		resetSec := int(left.Round(time.Second) / time.Second)
		if resetSec < 0 {
			resetSec = 0
		}

		// https://datatracker.ietf.org/doc/html/rfc6585#section-4
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(0, limit-count)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if count > limit {
			if resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSec))
			}
			response.Error[any](c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}
