package controller

import "sync/atomic"

// State is the session controller's current phase.
type State int32

const (
	// StateAwaitingAuth polls for a logged-in session until the human
	// completes login out-of-band.
	StateAwaitingAuth State = iota

	// StateFetching requests the next clip from the page.
	StateFetching

	// StateTranscribing downloads the clip's audio and runs the
	// transcription backend.
	StateTranscribing

	// StateAnnotating marks code-switched spans in the transcript.
	StateAnnotating

	// StateAwaitingSubmit has written the draft and polls for the human
	// submission signal.
	StateAwaitingSubmit

	// StateDone is the terminal success state: the clip queue ran dry.
	StateDone

	// StateCancelled is the terminal state entered when the operator
	// interrupts the run.
	StateCancelled
)

// String returns the snake_case name of the state.
func (s State) String() string {
	switch s {
	case StateAwaitingAuth:
		return "awaiting_auth"
	case StateFetching:
		return "fetching"
	case StateTranscribing:
		return "transcribing"
	case StateAnnotating:
		return "annotating"
	case StateAwaitingSubmit:
		return "awaiting_submit"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// stateVar is an atomically updated State, readable from other goroutines
// (the readiness endpoint) while the control loop mutates it.
type stateVar struct {
	v atomic.Int32
}

func (s *stateVar) set(st State) { s.v.Store(int32(st)) }
func (s *stateVar) get() State   { return State(s.v.Load()) }

// atomic64 is a tiny counter shared between the control loop and readers.
type atomic64 struct {
	v atomic.Int64
}

func (a *atomic64) add(n int64) { a.v.Add(n) }
func (a *atomic64) get() int64  { return a.v.Load() }
