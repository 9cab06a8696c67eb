// Package retry implements exponential backoff for outbound calls, used by
// the embedding provider before it falls back to the local approximation.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// Config holds backoff tuning. MaxAttempts counts the initial try, so the
// embedding default of 3 retries is MaxAttempts=4.
type Config struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterFactor  float64
}

// DefaultConfig matches the embedding call policy: 3 retries after the first
// attempt, 1s initial delay, 8s cap, doubling each time.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   4,
		BaseDelay:     time.Second,
		MaxDelay:      8 * time.Second,
		BackoffFactor: 2.0,
		JitterFactor:  0,
	}
}

// Classifier decides whether an error is worth retrying.
type Classifier func(error) bool

// Retrier runs operations with exponential backoff between attempts.
type Retrier struct {
	config      Config
	isRetryable Classifier
	logger      *slog.Logger
}

// NewRetrier creates a retrier. A nil classifier retries every error.
func NewRetrier(config Config, classifier Classifier, logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{
		config:      config,
		isRetryable: classifier,
		logger:      logger,
	}
}

// Do runs operation until it succeeds, a non-retryable error occurs, the
// attempts run out, or ctx is cancelled during a backoff wait.
func (r *Retrier) Do(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				r.logger.InfoContext(ctx, "operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		retryable := r.isRetryable == nil || r.isRetryable(lastErr)
		if attempt == r.config.MaxAttempts || !retryable {
			break
		}

		delay := r.delayFor(attempt)
		r.logger.WarnContext(ctx, "operation failed, backing off",
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
			"error", lastErr)

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", r.config.MaxAttempts, lastErr)
}

func (r *Retrier) delayFor(attempt int) time.Duration {
	delay := float64(r.config.BaseDelay) * math.Pow(r.config.BackoffFactor, float64(attempt-1))
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}

	if r.config.JitterFactor > 0 {
		delay *= 1.0 + (rand.Float64()-0.5)*r.config.JitterFactor
	}

	return time.Duration(delay)
}
