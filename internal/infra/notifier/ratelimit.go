package notifier

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter implements a token bucket per key for rate limiting.
// Each webhook gets its own bucket so one busy channel never delays another.
type RateLimiter struct {
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates a new RateLimiter with the specified rate and burst capacity per key.
//
// Parameters:
//   - requestsPerSecond: Maximum sustained request rate (e.g., 0.5 for 30 requests per minute)
//   - burst: Maximum number of requests that can be made in a burst (e.g., 3)
//
// Example:
//
//	limiter := NewRateLimiter(0.5, 3)  // 0.5 req/s with burst of 3, per webhook
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow blocks until a token for key is available or the context is canceled.
//
// Returns:
//   - error: Non-nil if context was canceled or deadline exceeded
func (r *RateLimiter) Allow(ctx context.Context, key string) error {
	return r.limiter(key).Wait(ctx)
}

func (r *RateLimiter) limiter(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[key]
	if !ok {
		l = rate.NewLimiter(r.rate, r.burst)
		r.limiters[key] = l
	}
	return l
}
