package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL is how long an unused client bucket is kept before eviction.
const idleTTL = 10 * time.Minute

// MemoryLimiter keeps one x/time/rate limiter per client in process memory.
type MemoryLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	now       func() time.Time
	lastSweep time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	bucket   Bucket
	lastSeen time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter creates an empty MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{limiters: make(map[string]*clientLimiter), now: time.Now}
}

// Allow implements Limiter.
func (m *MemoryLimiter) Allow(_ context.Context, scope, subject string, bucket Bucket) (Decision, error) {
	if !bucket.Enabled() {
		return Decision{Allowed: true}, nil
	}
	key := normalize(scope, "default") + ":" + normalize(subject, "unknown")

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	cl, ok := m.limiters[key]
	if !ok || cl.bucket != bucket {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(bucket.RequestsPerMinute)/60.0), bucket.BurstSize),
			bucket:  bucket,
		}
		m.limiters[key] = cl
	}
	cl.lastSeen = now

	res := cl.limiter.ReserveN(now, 1)
	if !res.OK() {
		return Decision{RetryAfter: time.Minute}, nil
	}
	delay := res.DelayFrom(now)
	if delay == 0 {
		return Decision{Allowed: true}, nil
	}
	res.CancelAt(now)
	return Decision{RetryAfter: retryAfterSeconds(delay)}, nil
}

// Len returns the number of tracked client buckets.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.limiters)
}

func (m *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < idleTTL {
		return
	}
	m.lastSweep = now
	for key, cl := range m.limiters {
		if now.Sub(cl.lastSeen) > idleTTL {
			delete(m.limiters, key)
		}
	}
}
