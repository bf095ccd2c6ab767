package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions(maxRetries int) Options {
	return Options{
		MaxRetries:    maxRetries,
		BaseDelay:     time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	result, err := WithRetry(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	}, fastOptions(3))

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRetriesRetryableErrors(t *testing.T) {
	calls := 0
	result, err := WithRetry(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &HTTPError{StatusCode: 503, Message: "unavailable"}
		}
		return "recovered", nil
	}, fastOptions(3))

	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, 3, calls)
}

func TestWithRetryAbortsOnNonRetryable(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "", &HTTPError{StatusCode: 400, Message: "bad request"}
	}, fastOptions(3))

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryExhausts(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "", &HTTPError{StatusCode: 429, Message: "rate limited"}
	}, fastOptions(2))

	require.Error(t, err)
	assert.Equal(t, 3, calls) // maxRetries + 1
}

func TestWithFallbackUsesFallbackAfterPrimaryExhausts(t *testing.T) {
	primaryCalls := 0
	fallbackCalls := 0

	result, err := WithFallback(context.Background(),
		func(ctx context.Context) (string, error) {
			primaryCalls++
			return "", &HTTPError{StatusCode: 500, Message: "boom"}
		},
		func(ctx context.Context) (string, error) {
			fallbackCalls++
			return "fallback result", nil
		},
		fastOptions(2))

	require.NoError(t, err)
	assert.Equal(t, "fallback result", result)
	assert.Equal(t, 3, primaryCalls) // maxRetries + 1
	assert.Equal(t, 1, fallbackCalls)
}

func TestWithFallbackCombinesBothErrors(t *testing.T) {
	_, err := WithFallback(context.Background(),
		func(ctx context.Context) (string, error) {
			return "", &HTTPError{StatusCode: 500, Message: "primary down"}
		},
		func(ctx context.Context) (string, error) {
			return "", &HTTPError{StatusCode: 503, Message: "fallback down"}
		},
		fastOptions(0))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary down")
	assert.Contains(t, err.Error(), "fallback down")
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"http 429", &HTTPError{StatusCode: 429}, true},
		{"http 500", &HTTPError{StatusCode: 500}, true},
		{"http 503", &HTTPError{StatusCode: 503}, true},
		{"http 400", &HTTPError{StatusCode: 400}, false},
		{"http 401", &HTTPError{StatusCode: 401}, false},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"timeout text", errors.New("dial tcp: i/o timeout"), true},
		{"provider server_error", errors.New("provider returned server_error"), true},
		{"plain error", errors.New("invalid api key"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryableError(tt.err))
		})
	}
}
