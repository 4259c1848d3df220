// Package ratelimit guards a server session's request dispatch with a
// token-bucket limiter, adapted from the teacher's rate limit
// middleware. This is ambient abuse protection, not a protocol
// feature: an over-limit caller simply waits (Wait blocks), it never
// produces a packet the wire protocol doesn't already define.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps a token bucket: tokens refill at r per second up to
// burst capacity, matching the teacher's RateLimitMiddleware
// parameters and reasoning (bursty RPC-shaped traffic suits a token
// bucket better than a constant-rate leaky bucket).
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing r requests/second with the given burst.
func New(r float64, burst int) *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(r), burst)}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
