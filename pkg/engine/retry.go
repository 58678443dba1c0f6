package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/beshu-tech/deltaglider/pkg/objectstore"
)

// retryConfig bounds the jittered exponential backoff withRetry uses
// against ErrTransientStore failures. No library in the retrieved
// corpus provides a generic retry-with-backoff helper (the AWS SDK's
// own retryer only covers its own S3 calls, not the reference-cache or
// delta-codec steps around them), so this is new stdlib code.
type retryConfig struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

var defaultRetry = retryConfig{
	maxAttempts: 5,
	baseDelay:   100 * time.Millisecond,
	maxDelay:    2 * time.Second,
}

// withRetry calls fn, retrying while retryable(err) is true, up to
// cfg.maxAttempts, with full-jitter exponential backoff between
// attempts. The first non-retryable error (or nil) returns immediately.
func withRetry[T any](ctx context.Context, cfg retryConfig, retryable func(error) bool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) {
			return zero, err
		}
		if attempt == cfg.maxAttempts-1 {
			break
		}

		delay := backoffDelay(cfg, attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}

// retryTransient is the predicate used against raw objectstore errors:
// anything other than "not found", "precondition failed" or a permanent
// failure is treated as a transient backend hiccup worth retrying.
func retryTransient(err error) bool {
	return err != nil &&
		!errors.Is(err, objectstore.ErrNotFound) &&
		!errors.Is(err, objectstore.ErrPreconditionFailed) &&
		!errors.Is(err, objectstore.ErrPermanent)
}

func backoffDelay(cfg retryConfig, attempt int) time.Duration {
	exp := cfg.baseDelay << attempt
	if exp > cfg.maxDelay {
		exp = cfg.maxDelay
	}
	return time.Duration(rand.Int64N(int64(exp) + 1))
}
