// Package resilience provides retry, circuit breaker, and backend failover
// primitives for transcription calls.
//
// [Retry] wraps a single backend call in bounded attempts with exponential
// backoff. [CircuitBreaker] is a three-state breaker (closed → open →
// half-open) with a single probe call in the half-open state. [Chain]
// composes multiple stt.Provider backends with per-backend breakers so a
// failing primary is bypassed in favour of healthy fallbacks.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Allow] while the breaker is
// open and the cooldown has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerState represents the current operating mode of a [CircuitBreaker].
type BreakerState int

const (
	// BreakerClosed is the normal operating state.
	BreakerClosed BreakerState = iota

	// BreakerOpen rejects all calls until the cooldown elapses.
	BreakerOpen

	// BreakerHalfOpen lets exactly one probe call through; its outcome
	// decides between closing and re-opening.
	BreakerHalfOpen
)

// String returns the human-readable name of the state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds tuning knobs for a [CircuitBreaker].
type BreakerConfig struct {
	// Name is a human-readable label used in log messages.
	Name string

	// Threshold is the number of consecutive failures before the breaker
	// opens. Default: 3.
	Threshold int

	// Cooldown is how long the breaker stays open before admitting a probe.
	// Default: 60s.
	Cooldown time.Duration
}

// CircuitBreaker tracks consecutive failures of one backend. Unlike a
// counter-window breaker it admits a single probe after the cooldown; the
// probe's outcome alone decides whether the breaker closes again.
type CircuitBreaker struct {
	name      string
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewCircuitBreaker creates a [CircuitBreaker]. Zero-value config fields are
// replaced with defaults.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	return &CircuitBreaker{
		name:      cfg.Name,
		threshold: cfg.Threshold,
		cooldown:  cfg.Cooldown,
	}
}

// Allow reports whether a call may proceed. It returns ErrCircuitOpen while
// the breaker is open or a probe is already in flight. Callers that proceed
// must report the outcome via [CircuitBreaker.Record].
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerOpen:
		if time.Since(cb.openedAt) < cb.cooldown {
			return ErrCircuitOpen
		}
		cb.state = BreakerHalfOpen
		cb.probing = true
		slog.Info("circuit breaker admitting probe", "name", cb.name)
		return nil

	case BreakerHalfOpen:
		if cb.probing {
			return ErrCircuitOpen
		}
		cb.probing = true
		return nil

	default:
		return nil
	}
}

// Record reports the outcome of a call previously admitted by Allow.
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == BreakerHalfOpen {
		cb.probing = false
		if err != nil {
			cb.state = BreakerOpen
			cb.openedAt = time.Now()
			slog.Warn("circuit breaker re-opened after failed probe", "name", cb.name)
			return
		}
		cb.state = BreakerClosed
		cb.failures = 0
		slog.Info("circuit breaker closed after successful probe", "name", cb.name)
		return
	}

	if err != nil {
		cb.failures++
		if cb.failures >= cb.threshold {
			cb.state = BreakerOpen
			cb.openedAt = time.Now()
			slog.Warn("circuit breaker opened",
				"name", cb.name,
				"consecutive_failures", cb.failures)
		}
		return
	}
	cb.failures = 0
}

// Do runs fn under the breaker: it combines Allow and Record.
func (cb *CircuitBreaker) Do(fn func() error) error {
	if err := cb.Allow(); err != nil {
		return err
	}
	err := fn()
	cb.Record(err)
	return err
}

// State returns the breaker's current state. A breaker whose cooldown has
// elapsed reports half-open; the actual transition happens on the next Allow.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == BreakerOpen && time.Since(cb.openedAt) >= cb.cooldown {
		return BreakerHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to closed, clearing all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = BreakerClosed
	cb.failures = 0
	cb.probing = false
}
