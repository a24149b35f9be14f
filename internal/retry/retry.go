// Package retry wraps a single upstream call with bounded exponential backoff
// on rate-limit responses.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RateLimitError signals that an upstream answered "too many requests".
type RateLimitError struct {
	Platform   string
	StatusCode int
	// RetryAfter is the raw Retry-After header, if any. Informational only.
	RetryAfter string
}

func (e *RateLimitError) Error() string {
	msg := fmt.Sprintf("%s API rate limit exceeded (status %d)", e.Platform, e.StatusCode)
	if e.RetryAfter != "" {
		msg += ", retry after " + e.RetryAfter
	}
	return msg
}

// IsRateLimited reports whether err is a RateLimitError, even when wrapped.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// Policy controls how a call is retried.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	// MaxDelay caps a single wait. Zero leaves it uncapped.
	MaxDelay time.Duration

	Logger *slog.Logger
	// OnRetry, if set, observes each wait before it starts.
	OnRetry func(attempt int, delay time.Duration)
}

// DefaultPolicy is used by platform clients that are not given one.
var DefaultPolicy = Policy{
	MaxAttempts:  3,
	InitialDelay: 2 * time.Second,
	MaxDelay:     5 * time.Minute,
}

// Do runs call, retrying only rate-limited failures while attempts remain.
// The delay starts at InitialDelay and doubles after each wait, capped at MaxDelay.
// The overall deadline is ctx's.
func Do[T any](ctx context.Context, p Policy, call func(ctx context.Context) (T, error)) (T, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Duration(math.MaxInt64)
	}

	attempt := 0
	operation := func() (T, error) {
		attempt++
		result, err := call(ctx)
		if err != nil && !IsRateLimited(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}
	notify := func(err error, delay time.Duration) {
		logger.Warn("Rate limit hit, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay)
		}
	}

	bo := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxDelay,
	}
	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err == nil {
		return result, nil
	}

	var zero T
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return zero, permanent.Unwrap()
	}
	if IsRateLimited(err) && attempt > 1 {
		return zero, fmt.Errorf("giving up after %d attempts: %w", attempt, err)
	}
	return zero, err
}
