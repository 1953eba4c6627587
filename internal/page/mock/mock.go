// Package mock provides a test double for the page.Adapter interface.
//
// Script the adapter by pre-populating Clips with the items NextClip should
// hand out and AuthResults/SubmitResults with the poll outcomes. Exhausted
// scripts fall back to sensible defaults (authenticated, submitted, no more
// clips) so tests only script what they assert on.
package mock

import (
	"context"
	"net/http"
	"sync"

	"github.com/MrWong99/kalamu/internal/page"
)

// WriteDraftCall records a single invocation of Adapter.WriteDraft.
type WriteDraftCall struct {
	// Clip is the clip the draft was written for.
	Clip *page.Clip
	// Text is the draft text.
	Text string
}

// Adapter is a mock implementation of page.Adapter.
type Adapter struct {
	mu sync.Mutex

	// AuthResults holds scripted IsAuthenticated outcomes, consumed one per
	// call. Exhausted calls return true.
	AuthResults []bool

	// Clips holds the clips NextClip hands out in order. A nil entry makes
	// that call return ClipErrs at the same index (or ErrNoAudioSource when
	// ClipErrs is shorter). Exhausted calls return ErrNoMoreClips.
	Clips []*page.Clip

	// ClipErrs holds per-call NextClip errors aligned with Clips.
	ClipErrs []error

	// WriteDraftErr, if non-nil, is returned by every WriteDraft call.
	WriteDraftErr error

	// SubmitResults holds scripted Submitted outcomes per call. Exhausted
	// calls return true.
	SubmitResults []bool

	// SubmitErrs holds per-call Submitted errors aligned with SubmitResults.
	SubmitErrs []error

	// CookieJar is returned by Cookies.
	CookieJar []*http.Cookie

	// --- Call records ---

	// AuthCalls is the number of IsAuthenticated calls.
	AuthCalls int

	// NextClipCalls is the number of NextClip calls.
	NextClipCalls int

	// WriteDraftCalls records every WriteDraft call in order.
	WriteDraftCalls []WriteDraftCall

	// SubmittedCalls is the number of Submitted calls.
	SubmittedCalls int

	authNext   int
	clipNext   int
	submitNext int
}

// IsAuthenticated returns the next scripted auth outcome.
func (a *Adapter) IsAuthenticated(_ context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.AuthCalls++
	if a.authNext < len(a.AuthResults) {
		r := a.AuthResults[a.authNext]
		a.authNext++
		return r, nil
	}
	return true, nil
}

// NextClip returns the next scripted clip or error.
func (a *Adapter) NextClip(_ context.Context) (*page.Clip, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.NextClipCalls++

	i := a.clipNext
	if i >= len(a.Clips) {
		return nil, page.ErrNoMoreClips
	}
	a.clipNext++

	if a.Clips[i] != nil {
		return a.Clips[i], nil
	}
	if i < len(a.ClipErrs) && a.ClipErrs[i] != nil {
		return nil, a.ClipErrs[i]
	}
	return nil, page.ErrNoAudioSource
}

// WriteDraft records the call and returns WriteDraftErr.
func (a *Adapter) WriteDraft(_ context.Context, clip *page.Clip, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.WriteDraftCalls = append(a.WriteDraftCalls, WriteDraftCall{Clip: clip, Text: text})
	return a.WriteDraftErr
}

// Submitted returns the next scripted submission outcome.
func (a *Adapter) Submitted(_ context.Context, _ *page.Clip) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.SubmittedCalls++

	i := a.submitNext
	if i < len(a.SubmitErrs) && a.SubmitErrs[i] != nil {
		a.submitNext++
		return false, a.SubmitErrs[i]
	}
	if i < len(a.SubmitResults) {
		a.submitNext++
		return a.SubmitResults[i], nil
	}
	return true, nil
}

// WriteDraftCallCount returns the number of WriteDraft calls. Thread-safe.
func (a *Adapter) WriteDraftCallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.WriteDraftCalls)
}

// Cookies returns CookieJar.
func (a *Adapter) Cookies(_ context.Context) ([]*http.Cookie, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.CookieJar, nil
}

// Reset clears all recorded calls and rewinds the scripts. Thread-safe.
func (a *Adapter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.AuthCalls = 0
	a.NextClipCalls = 0
	a.WriteDraftCalls = nil
	a.SubmittedCalls = 0
	a.authNext = 0
	a.clipNext = 0
	a.submitNext = 0
}

// Ensure Adapter implements page.Adapter at compile time.
var _ page.Adapter = (*Adapter)(nil)
