package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"time"
)

type Options struct {
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// IsRetryable decides whether a failed attempt is worth repeating.
	// Defaults to IsRetryableError.
	IsRetryable func(error) bool
}

func DefaultOptions() Options {
	return Options{
		MaxRetries:    2,
		BaseDelay:     500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
		IsRetryable:   IsRetryableError,
	}
}

// HTTPError carries a status code so callers can classify API failures.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// IsRetryableError reports whether an operation failure is transient:
// HTTP 429, HTTP 5xx, connection resets and timeouts, and provider
// "server_error" responses. Everything else aborts immediately.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "server_error")
}

// WithRetry runs op up to MaxRetries+1 times, sleeping
// min(base * factor^attempt, max) between attempts. A non-retryable error
// aborts immediately.
func WithRetry[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	var zero T

	if opts.IsRetryable == nil {
		opts.IsRetryable = IsRetryableError
	}

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !opts.IsRetryable(err) {
			return zero, err
		}
		if attempt == opts.MaxRetries {
			break
		}

		delay := time.Duration(float64(opts.BaseDelay) * math.Pow(opts.BackoffFactor, float64(attempt)))
		if delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
		slog.Info(fmt.Sprintf("retrying after error (attempt %d): %s", attempt+1, err.Error()))

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}

// WithFallback runs primary through WithRetry; if it exhausts its budget the
// fallback gets its own independent retry budget. When both fail the returned
// error carries both reasons.
func WithFallback[T any](ctx context.Context, primary, fallback func(ctx context.Context) (T, error), opts Options) (T, error) {
	result, primaryErr := WithRetry(ctx, primary, opts)
	if primaryErr == nil {
		return result, nil
	}

	slog.Info("primary operation exhausted, attempting fallback: " + primaryErr.Error())

	result, fallbackErr := WithRetry(ctx, fallback, opts)
	if fallbackErr == nil {
		return result, nil
	}

	var zero T
	return zero, fmt.Errorf("primary failed: %w; fallback failed: %s", primaryErr, fallbackErr.Error())
}
