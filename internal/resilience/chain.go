package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/kalamu/internal/observe"
	"github.com/MrWong99/kalamu/pkg/provider/stt"
)

// ErrAllBackendsFailed is returned when every backend in a [Chain] fails or
// has an open circuit breaker.
var ErrAllBackendsFailed = errors.New("all transcription backends failed")

// chainEntry pairs one backend with its dedicated circuit breaker.
type chainEntry struct {
	name     string
	provider stt.Provider
	breaker  *CircuitBreaker
}

// Chain is an stt.Provider that tries a primary backend and zero or more
// fallbacks in registration order. Each backend sits behind its own circuit
// breaker; backends with open breakers are skipped without being called.
//
// Chain is safe for concurrent use.
type Chain struct {
	entries []chainEntry
	breaker BreakerConfig
	metrics *observe.Metrics
}

// Compile-time assertion that Chain implements stt.Provider.
var _ stt.Provider = (*Chain)(nil)

// ChainOption is a functional option for configuring a Chain.
type ChainOption func(*Chain)

// WithMetrics records per-backend request and error counts on m.
func WithMetrics(m *observe.Metrics) ChainOption {
	return func(c *Chain) { c.metrics = m }
}

// NewChain creates a Chain with primary as the first backend. breaker
// configures the per-backend circuit breakers; its Name field is overridden
// per entry.
func NewChain(name string, primary stt.Provider, breaker BreakerConfig, opts ...ChainOption) *Chain {
	c := &Chain{breaker: breaker}
	for _, o := range opts {
		o(c)
	}
	c.add(name, primary)
	return c
}

// AddFallback appends a fallback backend, tried after all earlier entries.
func (c *Chain) AddFallback(name string, p stt.Provider) {
	c.add(name, p)
}

func (c *Chain) add(name string, p stt.Provider) {
	cfg := c.breaker
	cfg.Name = name
	c.entries = append(c.entries, chainEntry{
		name:     name,
		provider: p,
		breaker:  NewCircuitBreaker(cfg),
	})
}

// Healthy reports whether at least one backend's circuit breaker admits
// calls. Suitable as a readiness check.
func (c *Chain) Healthy() error {
	for i := range c.entries {
		if c.entries[i].breaker.State() != BreakerOpen {
			return nil
		}
	}
	return fmt.Errorf("%w: every circuit breaker is open", ErrAllBackendsFailed)
}

// Names returns the backend names in trial order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.name
	}
	return names
}

// Transcribe tries each backend in order until one succeeds. It returns
// [ErrAllBackendsFailed] wrapped with the last error when every backend
// fails or is skipped.
func (c *Chain) Transcribe(ctx context.Context, audio []byte, req stt.Request) (*stt.Result, error) {
	var lastErr error
	for i := range c.entries {
		entry := &c.entries[i]

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := entry.breaker.Allow(); err != nil {
			slog.Debug("skipping backend", "backend", entry.name, "reason", "circuit open")
			lastErr = err
			continue
		}

		res, err := entry.provider.Transcribe(ctx, audio, req)
		entry.breaker.Record(err)
		if c.metrics != nil {
			status := "ok"
			if err != nil {
				status = "error"
			}
			c.metrics.RecordBackendRequest(ctx, entry.name, status)
			if err != nil {
				c.metrics.RecordBackendError(ctx, entry.name)
			}
		}
		if err == nil {
			return res, nil
		}

		lastErr = err
		slog.Warn("backend failed, trying next",
			"backend", entry.name,
			"error", err)
	}
	return nil, fmt.Errorf("%w: %v", ErrAllBackendsFailed, lastErr)
}
