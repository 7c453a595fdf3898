package chrome

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultMaxRetries is the default number of retries for a locked database.
	DefaultMaxRetries = 3

	// DefaultInitialBackoff is the default initial backoff duration.
	DefaultInitialBackoff = 200 * time.Millisecond

	// DefaultMaxBackoff is the default maximum backoff duration.
	DefaultMaxBackoff = 2 * time.Second
)

// RetryConfig configures retry behavior for writes to the live database.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
	}
}

// opFunc runs one attempt of a database operation.
type opFunc[T any] func(ctx context.Context) (T, error)

// doWithRetry runs op, retrying busy and locked failures with exponential
// backoff.
func doWithRetry[T any](ctx context.Context, s *Source, op opFunc[T]) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("context error: %w", err)
		}

		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if !s.shouldRetry(err, attempt) {
			return zero, err
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Debug("history database busy, retrying", "attempt", attempt+1, "backoff", backoff)
		if sleepErr := sleep(ctx, backoff); sleepErr != nil {
			return zero, sleepErr
		}
	}
}

// shouldRetry determines if an operation should be retried.
func (s *Source) shouldRetry(err error, attempt int) bool {
	if s.retry == nil || attempt >= s.retry.MaxRetries {
		return false
	}
	return isBusy(err)
}

// calculateBackoff calculates the backoff duration for a retry attempt.
func (s *Source) calculateBackoff(attempt int) time.Duration {
	if s.retry == nil {
		return 0
	}

	backoff := s.retry.InitialBackoff
	for i := 0; i < attempt; i++ {
		backoff *= 2
	}

	if backoff > s.retry.MaxBackoff {
		backoff = s.retry.MaxBackoff
	}

	return backoff
}

// sleep waits for the specified duration, respecting context cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
