package middleware

import (
	"net/http"
	"time"

	"github.com/Darshan-360/service-checkout/internal/platform/response"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimit allows limit requests per client IP and route within window.
// Redis errors let the request through so a cache outage never blocks checkout.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := "rate_limit:" + c.FullPath() + ":" + c.ClientIP()

		// The window starts with the first request; NX keeps later requests from extending it.
		var incr *redis.IntCmd
		_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, window)
			return nil
		})
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if incr.Val() > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorBody("too many requests"))
			return
		}

		c.Next()
	}
}
