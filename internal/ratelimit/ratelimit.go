// Package ratelimit throttles requests per client with token buckets kept
// either in Redis, so limits hold across server replicas, or in process memory.
package ratelimit

import (
	"context"
	"time"

	"github.com/phrazzld/scribe-api/internal/config"
)

// Bucket is a token bucket refilled at RequestsPerMinute with capacity BurstSize.
type Bucket struct {
	RequestsPerMinute int
	BurstSize         int
}

// BucketFromConfig builds a Bucket from rate limit settings.
func BucketFromConfig(cfg config.RateLimitConfig) Bucket {
	return Bucket{RequestsPerMinute: cfg.RequestsPerMinute, BurstSize: cfg.Burst}
}

// Enabled reports whether the bucket limits anything.
func (b Bucket) Enabled() bool {
	return b.RequestsPerMinute > 0 && b.BurstSize > 0
}

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter decides whether subject may make another request within scope.
type Limiter interface {
	Allow(ctx context.Context, scope, subject string, bucket Bucket) (Decision, error)
}

func retryAfterSeconds(d time.Duration) time.Duration {
	secs := (d + time.Second - 1) / time.Second
	if secs < 1 {
		secs = 1
	}
	return secs * time.Second
}
