package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryConfig tunes a [Retry] loop.
type RetryConfig struct {
	// Attempts is the total number of tries, including the first.
	// Default: 3.
	Attempts int

	// InitialDelay is the backoff before the second attempt; it doubles
	// after each further failure. Default: 1s.
	InitialDelay time.Duration

	// MaxDelay caps the backoff growth. Default: 30s.
	MaxDelay time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	return c
}

// Retry runs fn up to cfg.Attempts times with exponential backoff between
// failures. It returns nil on the first success, ctx.Err() when the context
// is cancelled during backoff, and the last error once attempts exhaust.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	delay := cfg.InitialDelay
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.Attempts {
			break
		}

		slog.Warn("call failed, backing off",
			"attempt", attempt,
			"max_attempts", cfg.Attempts,
			"delay", delay,
			"error", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return fmt.Errorf("after %d attempts: %w", cfg.Attempts, lastErr)
}
