package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenBucketLimiter keeps bucket state in Redis and updates it atomically
// with a Lua script.
type TokenBucketLimiter struct {
	rdb *redis.Client
	now func() time.Time
}

var _ Limiter = (*TokenBucketLimiter)(nil)

// NewTokenBucketLimiter creates a limiter backed by rdb.
func NewTokenBucketLimiter(rdb *redis.Client) *TokenBucketLimiter {
	return &TokenBucketLimiter{rdb: rdb, now: time.Now}
}

var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1]) -- tokens/sec
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3]) -- ms
local ttl_ms = tonumber(ARGV[4])

local tokens = tonumber(redis.call("HGET", key, "tokens"))
local ts = tonumber(redis.call("HGET", key, "ts"))

if not tokens then tokens = capacity end
if not ts then ts = now end
if now < ts then ts = now end

tokens = math.min(capacity, tokens + (now - ts) * (rate / 1000.0))

local allowed = 0
local retry_after_s = 0
if tokens >= 1.0 then
  allowed = 1
  tokens = tokens - 1.0
elseif rate > 0 then
  retry_after_s = math.max(1, math.ceil((1.0 - tokens) / rate))
else
  retry_after_s = 60
end

redis.call("HSET", key, "tokens", tokens, "ts", now)
redis.call("PEXPIRE", key, ttl_ms)
return {allowed, retry_after_s}
`)

// Allow implements Limiter. A disabled bucket or missing client allows everything.
func (l *TokenBucketLimiter) Allow(ctx context.Context, scope, subject string, bucket Bucket) (Decision, error) {
	if l == nil || l.rdb == nil || !bucket.Enabled() {
		return Decision{Allowed: true}, nil
	}

	key := fmt.Sprintf("scribe:rl:%s:%s", normalize(scope, "default"), sha256Hex(normalize(subject, "unknown")))
	ratePerSec := float64(bucket.RequestsPerMinute) / 60.0
	capacity := float64(bucket.BurstSize)

	res, err := tokenBucketScript.Run(ctx, l.rdb, []string{key},
		ratePerSec, capacity, l.now().UTC().UnixMilli(), computeTTLMS(ratePerSec, capacity)).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("running rate limit script: %w", err)
	}
	vals, ok := res.([]any)
	if !ok || len(vals) < 2 {
		return Decision{}, fmt.Errorf("unexpected redis ratelimit response: %T", res)
	}

	if allowed, _ := vals[0].(int64); allowed == 1 {
		return Decision{Allowed: true}, nil
	}
	retry, _ := vals[1].(int64)
	return Decision{RetryAfter: retryAfterSeconds(time.Duration(retry) * time.Second)}, nil
}

func normalize(s, fallback string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return fallback
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// computeTTLMS keeps bucket state for about two refill cycles, clamped to
// [30s, 1h].
func computeTTLMS(ratePerSec, capacity float64) int64 {
	const (
		minTTL = 30 * time.Second
		maxTTL = time.Hour
	)
	if ratePerSec <= 0 || capacity <= 0 {
		return (2 * time.Minute).Milliseconds()
	}
	ttl := time.Duration(math.Ceil(capacity/ratePerSec*2.0))*time.Second + 5*time.Second
	return min(max(ttl, minTTL), maxTTL).Milliseconds()
}
