// internal/middleware/ratelimit_middleware.go
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	xerrors "salescoach-service/internal/pkg/errors"
	"salescoach-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RateLimiter interface {
	CheckAPIRateLimit(ctx context.Context, userID, endpoint string, maxRequests int64, window time.Duration) (bool, int64, error)
}

// RateLimit caps requests per user on an endpoint. A limiter outage lets the
// request through; quotas are enforced separately by the entitlement gate.
// MUST be used after Auth() middleware
func RateLimit(limiter RateLimiter, endpoint string, maxRequests int64, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || maxRequests <= 0 {
			c.Next()
			return
		}

		userID, _ := GetUserID(c)
		if userID == "" {
			userID = c.ClientIP()
		}

		ok, remaining, err := limiter.CheckAPIRateLimit(c.Request.Context(), userID, endpoint, maxRequests, window)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("endpoint", endpoint), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(maxRequests, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, "rate limit exceeded", xerrors.ErrRateLimited)
			return
		}

		c.Next()
	}
}
