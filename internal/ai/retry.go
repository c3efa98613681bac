package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
)

const (
	// chat gateway defaults: up to 3 attempts total, 1s doubling between
	// attempts
	chatMaxAttempts  = 3
	chatInitialDelay = time.Second

	// extraction: up to 3 retries on rate-limit errors only, 2s doubling
	extractMaxRetries   = 3
	extractInitialDelay = 2 * time.Second
)

// NewChatBackOff is the retry policy for obtaining a chat stream handle.
// Non-positive arguments fall back to the defaults.
func NewChatBackOff(ctx context.Context, maxAttempts int, initialDelay time.Duration) backoff.BackOff {
	if maxAttempts <= 0 {
		maxAttempts = chatMaxAttempts
	}
	if initialDelay <= 0 {
		initialDelay = chatInitialDelay
	}
	return backoff.WithContext(backoff.WithMaxRetries(exponential(initialDelay), uint64(maxAttempts-1)), ctx)
}

// NewExtractionBackOff is the retry policy for the extraction call.
func NewExtractionBackOff(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(backoff.WithMaxRetries(exponential(extractInitialDelay), extractMaxRetries), ctx)
}

func exponential(initial time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0
	// Reset recomputes the next interval from InitialInterval; without it the
	// first NextBackOff still uses the constructor's default
	b.Reset()
	return b
}

// RetryRateLimited runs op under the given backoff, retrying only when the
// error is a rate-limit signal. Anything else fails immediately.
func RetryRateLimited(b backoff.BackOff, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if IsRateLimited(err) {
			return err
		}
		return backoff.Permanent(err)
	}, b)
}

// IsRateLimited reports whether err is a rate-limit response from the model
// provider: an HTTP 429 or a resource-exhaustion marker in the message.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "resource has been exhausted")
}
