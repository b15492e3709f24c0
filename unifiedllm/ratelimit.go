package unifiedllm

import (
	"context"

	"golang.org/x/time/rate"
)

// NewRequestLimiter builds a token-bucket limiter from a requests-per-minute
// budget. rpm <= 0 means unlimited.
func NewRequestLimiter(rpm, burst int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
}

// RateLimitMiddleware blocks each request until the limiter grants a token
// or the context ends.
func RateLimitMiddleware(limiter *rate.Limiter) Middleware {
	return func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, &AbortError{SDKError: SDKError{Message: "rate limiter wait cancelled", Cause: err}}
		}
		return next(ctx, req)
	}
}
