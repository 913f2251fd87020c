package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/phrazzld/scribe-api/internal/generation"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
)

// retryPolicy retries transient failures with exponential backoff and jitter:
// delay = base * 2^attempt * [0.5, 1.0).
type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
}

func newRetryPolicy(ctx context.Context, logger *slog.Logger, maxRetries, delaySeconds int) retryPolicy {
	p := retryPolicy{maxRetries: maxRetries, baseDelay: time.Duration(delaySeconds) * time.Second}
	if p.maxRetries < 0 {
		logger.WarnContext(ctx, "Invalid max retries value, using default", "max_retries", defaultMaxRetries)
		p.maxRetries = defaultMaxRetries
	}
	if delaySeconds < 1 {
		logger.WarnContext(ctx, "Invalid retry delay value, using default", "base_delay", defaultRetryDelay)
		p.baseDelay = defaultRetryDelay
	}
	return p
}

// isPermanent reports whether retrying err cannot help.
func isPermanent(err error) bool {
	return errors.Is(err, generation.ErrContentBlocked) ||
		errors.Is(err, generation.ErrInvalidResponse) ||
		errors.Is(err, generation.ErrInvalidConfig) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// callWithRetry runs call until it succeeds, fails permanently, or exhausts
// the policy's retries.
func callWithRetry[T any](
	ctx context.Context,
	logger *slog.Logger,
	policy retryPolicy,
	operation string,
	call func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1 // For logging (1-based)
		logger.DebugContext(ctx, "Making Gemini API call",
			"operation", operation,
			"attempt", attemptNum,
			"max_attempts", policy.maxRetries+1)

		result, err := call(ctx)
		if err == nil {
			return result, nil
		}

		logger.ErrorContext(ctx, "Gemini API call failed",
			"operation", operation,
			"attempt", attemptNum,
			"error", err)

		if isPermanent(err) {
			return zero, err
		}

		if attempt >= policy.maxRetries {
			logger.WarnContext(ctx, "Maximum retry attempts reached",
				"operation", operation,
				"max_retries", policy.maxRetries)
			return zero, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, policy.maxRetries, err)
		}

		backoff := float64(policy.baseDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rand.Float64()*0.5))

		logger.InfoContext(ctx, "Retrying after delay",
			"operation", operation,
			"attempt", attemptNum,
			"delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			logger.WarnContext(ctx, "API call cancelled during retry delay",
				"operation", operation,
				"attempt", attemptNum,
				"ctx_err", ctx.Err())
			return zero, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}
