// Package stt defines the Provider interface for batch speech-to-text backends.
//
// An STT provider wraps a transcription engine (a local whisper.cpp model, a
// whisper-server endpoint, or a remote API such as OpenAI or Gemini) and
// exposes a uniform one-shot interface: submit the complete audio bytes of a
// clip, receive the recognised text together with whatever per-token detail
// the backend can supply.
//
// Implementations must be safe for concurrent use. A single Provider may be
// shared by retry wrappers and fallback chains.
package stt

import "context"

// Request carries the per-call recognition hints for a Transcribe invocation.
type Request struct {
	// Language is the BCP-47 language tag the audio is expected to be in
	// (e.g., "sw", "en"). An empty string lets the backend auto-detect,
	// if supported.
	Language string

	// MIMEType describes the audio container of the submitted bytes
	// (e.g., "audio/mpeg", "audio/wav"). Backends that only accept one
	// format may transcode or reject other types.
	MIMEType string

	// Prompt is an optional instruction for prompt-driven backends (Gemini,
	// OpenRouter). Ignored by dedicated speech models.
	Prompt string
}

// Provider is the abstraction over any batch STT backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Transcribe submits the complete audio bytes of one clip and blocks until
	// the backend returns a result or fails. The call respects ctx for
	// cancellation where the underlying transport allows it; in-flight native
	// inference may run to completion regardless.
	//
	// A successful call returns a non-nil Result whose Text is the full
	// transcript. Tokens is populated only by backends that report per-token
	// detail; callers must handle a nil Tokens slice.
	Transcribe(ctx context.Context, audio []byte, req Request) (*Result, error)
}
