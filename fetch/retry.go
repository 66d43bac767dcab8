package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

const (
	// defaultRetryAttempts is the default number of attempts for a fallible
	// operation.
	defaultRetryAttempts = 3
	// defaultRetryDelay is the base delay of the linear backoff.
	defaultRetryDelay = time.Second
)

// RetryConfig represents the configuration for the retry executor.
type RetryConfig struct {
	// Attempts is the maximum number of attempts.
	Attempts int
	// Delay is the base delay of the linear backoff.
	Delay time.Duration
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// RetryExecutor wraps fallible operations with bounded attempts and linear
// backoff.
type RetryExecutor struct {
	cfg *RetryConfig
}

// NewRetryExecutor initializes a new retry executor.
func NewRetryExecutor(cfg *RetryConfig) *RetryExecutor {
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultRetryAttempts
	}
	if cfg.Delay <= 0 {
		cfg.Delay = defaultRetryDelay
	}

	return &RetryExecutor{cfg: cfg}
}

// Do runs the provided operation, retrying on failure with a backoff of
// delay multiplied by the attempt number. Context cancellations are not
// retried. The last error is propagated once attempts are exhausted.
func (r *RetryExecutor) Do(ctx context.Context, label string, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.Attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}

		if attempt < r.cfg.Attempts {
			backoff := r.cfg.Delay * time.Duration(attempt)
			r.cfg.Logger.Warn().Msgf("%s failed (attempt %d/%d), retrying in %v: %v",
				label, attempt, r.cfg.Attempts, backoff, lastErr)

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return lastErr
}
