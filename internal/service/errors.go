package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedResponse means the provider's structured output still failed
// shape validation after normalization.
var ErrMalformedResponse = errors.New("malformed provider response")

// RateLimitError is the admission-denied failure. ResetAt tells the caller
// when the sliding window frees up.
type RateLimitError struct {
	Limit   int
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("generation rate limit of %d reached, resets at %s", e.Limit, e.ResetAt.Format(time.RFC3339))
}

// FlaggedError aborts a generation whose caption failed moderation.
type FlaggedError struct {
	Categories []string
}

func (e *FlaggedError) Error() string {
	return "content flagged by moderation: " + strings.Join(e.Categories, ", ")
}

// ProviderError wraps an AI call that exhausted both the primary and
// fallback budgets.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return "ai provider unavailable: " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
