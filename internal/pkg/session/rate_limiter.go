// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window request counter per user and endpoint.
type RateLimiter struct {
	client redis.UniversalClient
}

func NewRateLimiter(client redis.UniversalClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// CheckAPIRateLimit counts a request and reports whether it is within
// maxRequests for the current window, plus the requests left.
func (r *RateLimiter) CheckAPIRateLimit(ctx context.Context, userID, endpoint string, maxRequests int64, window time.Duration) (bool, int64, error) {
	key := r.apiKey(userID, endpoint)

	// Counter and window expiry go out in one MULTI, so a counter never
	// outlives its window. NX keeps the first request's deadline.
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to increment API rate limit: %w", err)
	}
	count := incr.Val()

	remaining := maxRequests - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= maxRequests, remaining, nil
}

// ResetAPIRateLimit clears the counter for a user and endpoint
func (r *RateLimiter) ResetAPIRateLimit(ctx context.Context, userID, endpoint string) error {
	return r.client.Del(ctx, r.apiKey(userID, endpoint)).Err()
}

func (r *RateLimiter) apiKey(userID, endpoint string) string {
	return fmt.Sprintf("ratelimit:api:%s:%s", userID, endpoint)
}
