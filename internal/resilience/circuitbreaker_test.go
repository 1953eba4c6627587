package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend down")

func TestBreakerOpensAfterThreshold(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(BreakerConfig{Name: "test", Threshold: 3, Cooldown: time.Hour})

	for range 3 {
		if err := cb.Do(func() error { return errBackend }); !errors.Is(err, errBackend) {
			t.Fatalf("Do = %v, want backend error", err)
		}
	}
	if got := cb.State(); got != BreakerOpen {
		t.Errorf("State = %v, want open", got)
	}
	if err := cb.Do(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Do while open = %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerSuccessResetsCounter(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(BreakerConfig{Threshold: 2, Cooldown: time.Hour})

	cb.Do(func() error { return errBackend })
	cb.Do(func() error { return nil })
	cb.Do(func() error { return errBackend })

	if got := cb.State(); got != BreakerClosed {
		t.Errorf("State = %v, want closed (counter should reset on success)", got)
	}
}

func TestBreakerProbeClosesOnSuccess(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(BreakerConfig{Threshold: 1, Cooldown: 10 * time.Millisecond})
	cb.Do(func() error { return errBackend })

	if got := cb.State(); got != BreakerOpen {
		t.Fatalf("State = %v, want open", got)
	}

	time.Sleep(20 * time.Millisecond)
	if got := cb.State(); got != BreakerHalfOpen {
		t.Fatalf("State after cooldown = %v, want half-open", got)
	}

	if err := cb.Do(func() error { return nil }); err != nil {
		t.Fatalf("probe = %v, want nil", err)
	}
	if got := cb.State(); got != BreakerClosed {
		t.Errorf("State after probe = %v, want closed", got)
	}
}

func TestBreakerProbeReopensOnFailure(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(BreakerConfig{Threshold: 1, Cooldown: 10 * time.Millisecond})
	cb.Do(func() error { return errBackend })
	time.Sleep(20 * time.Millisecond)

	cb.Do(func() error { return errBackend })
	if got := cb.State(); got != BreakerOpen {
		t.Errorf("State after failed probe = %v, want open", got)
	}
}

func TestBreakerSingleProbe(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(BreakerConfig{Threshold: 1, Cooldown: 10 * time.Millisecond})
	cb.Do(func() error { return errBackend })
	time.Sleep(20 * time.Millisecond)

	if err := cb.Allow(); err != nil {
		t.Fatalf("first Allow = %v, want nil (probe)", err)
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second Allow during probe = %v, want ErrCircuitOpen", err)
	}
	cb.Record(nil)
	if err := cb.Allow(); err != nil {
		t.Errorf("Allow after successful probe = %v, want nil", err)
	}
}

func TestBreakerReset(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Hour})
	cb.Do(func() error { return errBackend })
	cb.Reset()

	if got := cb.State(); got != BreakerClosed {
		t.Errorf("State after Reset = %v, want closed", got)
	}
	if err := cb.Do(func() error { return nil }); err != nil {
		t.Errorf("Do after Reset = %v, want nil", err)
	}
}
