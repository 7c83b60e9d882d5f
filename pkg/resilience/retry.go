package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig controls the retry loop behavior.
type RetryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	EnableJitter      bool

	// RetryableErrors limits retries to the listed errors. Empty means all
	// errors are retryable (except the always-terminal ones below).
	RetryableErrors []error

	// RetryableChecker overrides RetryableErrors when set.
	RetryableChecker func(error) bool
}

// DefaultRetryConfig returns sensible defaults for most external calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		EnableJitter:      true,
	}
}

// AggressiveRetryConfig retries more, with shorter initial waits.
func AggressiveRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        16 * time.Second,
		BackoffMultiplier: 2.0,
		EnableJitter:      true,
	}
}

// ConservativeRetryConfig retries once, for operations that are expensive to repeat.
func ConservativeRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       2,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		EnableJitter:      true,
	}
}

// Retry executes the operation with exponential backoff until it succeeds,
// exhausts MaxAttempts, hits a non-retryable error, or the context ends.
func Retry(ctx context.Context, config RetryConfig, op Operation) (interface{}, error) {
	maxAttempts := config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !shouldRetry(err, config) {
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(calculateBackoff(attempt, config))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}

// RetryWithBreaker combines Retry with a circuit breaker: each attempt runs
// through the breaker, and an open breaker terminates the loop immediately.
func RetryWithBreaker(ctx context.Context, config RetryConfig, breaker *CircuitBreaker, op Operation) (interface{}, error) {
	return Retry(ctx, config, func(ctx context.Context) (interface{}, error) {
		return breaker.Execute(ctx, op)
	})
}

// IsRetryableHTTPStatus reports whether an HTTP status code is worth retrying.
func IsRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return statusCode >= 500
}

func shouldRetry(err error, config RetryConfig) bool {
	if err == nil {
		return false
	}

	// Terminal errors: retrying an open breaker or a dead context only adds load.
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if config.RetryableChecker != nil {
		return config.RetryableChecker(err)
	}

	if len(config.RetryableErrors) > 0 {
		for _, retryable := range config.RetryableErrors {
			if errors.Is(err, retryable) {
				return true
			}
		}
		return false
	}

	return true
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	multiplier := config.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}

	backoff := time.Duration(float64(config.InitialBackoff) * math.Pow(multiplier, float64(attempt-1)))
	if config.MaxBackoff > 0 && backoff > config.MaxBackoff {
		backoff = config.MaxBackoff
	}

	if config.EnableJitter {
		backoff = addJitter(backoff)
	}

	return backoff
}

func addJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}
