// Package mock provides a test double for the stt.Provider interface.
//
// Pre-populate Results (and optionally Errs) with the outcomes each
// Transcribe call should produce, in order. Calls beyond the scripted
// outcomes return DefaultResult, or an error when DefaultResult is nil.
//
// Example:
//
//	p := &mock.Provider{
//	    Results: []*stt.Result{{Text: "habari yako"}},
//	}
//	res, _ := p.Transcribe(ctx, audio, stt.Request{Language: "sw"})
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrWong99/kalamu/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Audio is a copy of the audio bytes passed to Transcribe.
	Audio []byte
	// Req is the Request passed to Transcribe.
	Req stt.Request
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Results holds the scripted outcomes, consumed one per call. A nil entry
	// at position i makes call i return Errs[i] (or a generic error when Errs
	// is shorter).
	Results []*stt.Result

	// Errs holds per-call errors aligned with Results. A non-nil entry at
	// position i makes call i fail regardless of Results[i].
	Errs []error

	// DefaultResult is returned once the scripted outcomes are exhausted.
	// When nil, exhausted calls return an error.
	DefaultResult *stt.Result

	// TranscribeCalls records every call to Transcribe in order.
	TranscribeCalls []TranscribeCall

	next int
}

// Transcribe records the call and returns the next scripted outcome.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, req stt.Request) (*stt.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cp := make([]byte, len(audio))
	copy(cp, audio)
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{Ctx: ctx, Audio: cp, Req: req})

	i := p.next
	p.next++

	if i < len(p.Errs) && p.Errs[i] != nil {
		return nil, p.Errs[i]
	}
	if i < len(p.Results) && p.Results[i] != nil {
		return p.Results[i], nil
	}
	if p.DefaultResult != nil {
		return p.DefaultResult, nil
	}
	return nil, fmt.Errorf("mock: no scripted result for call %d", i)
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.TranscribeCalls)
}

// Reset clears all recorded calls and rewinds the script. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = nil
	p.next = 0
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
