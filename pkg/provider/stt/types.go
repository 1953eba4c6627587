package stt

import (
	"strings"
	"time"
)

// Token is one recognised word or sub-word unit of a transcript.
// Tokens are immutable once produced by a Provider.
type Token struct {
	// Text is the recognised unit, without surrounding whitespace.
	Text string

	// Start is the token's onset relative to the start of the clip.
	// Zero when the backend reports no timing.
	Start time.Duration

	// End is the token's offset relative to the start of the clip.
	// Zero when the backend reports no timing.
	End time.Duration

	// Language is the backend's per-token language hint (e.g., "sw", "en").
	// Empty when the backend does not classify tokens by language.
	Language string

	// Confidence is the backend's confidence in this token (0.0-1.0).
	// Zero when not reported.
	Confidence float64

	// NoSpaceBefore marks a token that attaches directly to its predecessor
	// (e.g., a punctuation unit emitted separately by the tokenizer).
	NoSpaceBefore bool
}

// Result is the outcome of one Transcribe call.
type Result struct {
	// Text is the full transcript as returned by the backend.
	Text string

	// Tokens holds per-token detail when the backend supports it. May be nil;
	// use [Result.TokenSequence] for a representation that is always usable.
	Tokens []Token

	// Language is the language the backend detected or was instructed to use.
	Language string
}

// TokenSequence returns the result's tokens, synthesising them from Text by
// whitespace splitting when the backend supplied none. The returned slice is
// never nil for a non-empty transcript.
func (r *Result) TokenSequence() []Token {
	if len(r.Tokens) > 0 {
		return r.Tokens
	}
	fields := strings.Fields(r.Text)
	if len(fields) == 0 {
		return nil
	}
	tokens := make([]Token, len(fields))
	for i, f := range fields {
		tokens[i] = Token{Text: f}
	}
	return tokens
}
