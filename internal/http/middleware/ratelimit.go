package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jmehdipour/customers-api/internal/logger"
	echo "github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig config for Redis-based RPS limiter.
type RateLimitConfig struct {
	Redis          *redis.Client
	RPS            int           // 0 disables the limiter
	KeyPrefix      string        // e.g. "rl:ip:"
	Window         time.Duration // usually 1s
	RetryAfterHint bool          // set Retry-After header when limited
}

// RateLimitMiddleware applies a fixed-window limit per client IP.
// Redis errors fail open.
func RateLimitMiddleware(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl:ip:"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if cfg.RPS <= 0 || cfg.Redis == nil {
			return next
		}
		return func(c echo.Context) error {
			now := time.Now()
			key := windowKey(cfg.KeyPrefix, c.RealIP(), now, cfg.Window)

			ctx := c.Request().Context()
			pipe := cfg.Redis.Pipeline()
			cnt := pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, cfg.Window*2)
			if _, err := pipe.Exec(ctx); err != nil {
				logger.Log.Warn("rate limit: redis unavailable", zap.Error(err))
				return next(c)
			}

			if cnt.Val() > int64(cfg.RPS) {
				if cfg.RetryAfterHint {
					c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter(now, cfg.Window)))
				}
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

// windowKey is {prefix}{ip}:{window index}.
func windowKey(prefix, ip string, now time.Time, window time.Duration) string {
	return prefix + ip + ":" + strconv.FormatInt(now.UnixNano()/int64(window), 10)
}

// retryAfter returns whole seconds until the next window, at least 1.
func retryAfter(now time.Time, window time.Duration) int {
	remain := window - time.Duration(now.UnixNano()%int64(window))
	secs := int((remain + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
