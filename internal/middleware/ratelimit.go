package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/sekolah-admin/backend/pkg/response"
)

// rateLimitKey builds the Redis counter key for one limiter. Each limiter
// gets its own name so different endpoints track separate budgets per IP.
func rateLimitKey(name, clientIP string) string {
	return "ratelimit:" + name + ":" + clientIP
}

// RateLimit returns a middleware that caps requests per client IP using a
// fixed window counter in Redis, keyed by the limiter name. When Redis is
// unavailable the request is let through rather than failing the whole API.
func RateLimit(rdb *goredis.Client, name string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimitKey(name, c.ClientIP())
		ctx := c.Request.Context()

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, window)
		}
		if count > int64(limit) {
			ttl, _ := rdb.TTL(ctx, key).Result()
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			response.TooManyRequests(c, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
