package ratelimiter

import "time"

// RateLimiter is the interface for rate limiting.
// Allow reports whether one more request may proceed now.
type RateLimiter interface {
	Allow() bool
}

// Clock returns the current time. Limiters default to time.Now.
type Clock func() time.Time
