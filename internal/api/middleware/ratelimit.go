package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/phrazzld/scribe-api/internal/api/shared"
	"github.com/phrazzld/scribe-api/internal/metrics"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
	"github.com/phrazzld/scribe-api/internal/ratelimit"
	"github.com/phrazzld/scribe-api/internal/redact"
)

// RateLimiter throttles requests per client IP.
type RateLimiter struct {
	limiter ratelimit.Limiter
	bucket  ratelimit.Bucket
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewRateLimiter creates a RateLimiter. m may be nil.
func NewRateLimiter(
	limiter ratelimit.Limiter,
	bucket ratelimit.Bucket,
	m *metrics.Metrics,
	log *slog.Logger,
) *RateLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &RateLimiter{
		limiter: limiter,
		bucket:  bucket,
		metrics: m,
		logger:  log.With("component", "rate_limiter"),
	}
}

// Limit returns middleware enforcing the bucket within scope. Requests are
// let through when the limiter itself fails.
func (rl *RateLimiter) Limit(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rl.limiter == nil || !rl.bucket.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := rl.limiter.Allow(r.Context(), scope, clientIP(r), rl.bucket)
			if err != nil {
				logger.FromContextOrDefault(r.Context(), rl.logger).Warn("rate limiter unavailable, allowing request",
					slog.String("scope", scope),
					slog.String("error", redact.Error(err)))
				next.ServeHTTP(w, r)
				return
			}
			if !decision.Allowed {
				if rl.metrics != nil {
					rl.metrics.RateLimitHitsTotal.WithLabelValues(scope).Inc()
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
				shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests,
					"Too many requests, please retry later", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the host part of RemoteAddr, which RealIP has already
// rewritten from forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
