// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/kalamu/pkg/provider/stt"
)

// Compile-time assertion that NativeProvider satisfies stt.Provider.
var _ stt.Provider = (*NativeProvider)(nil)

// NativeProvider implements stt.Provider using whisper.cpp Go bindings
// (CGO). The model is loaded once at construction and shared across all
// Transcribe calls; each call creates its own inference context, so
// concurrent calls do not interfere.
//
// NativeProvider accepts RIFF/WAV input only (16-bit signed PCM). Clips in
// other containers must be decoded upstream or routed to a server-side
// backend instead.
type NativeProvider struct {
	model    whisperlib.Model
	language string
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the BCP-47 language code for transcription
// (e.g., "sw", "en"). Defaults to "sw".
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// NewNative creates a NativeProvider that loads the whisper.cpp model from
// the given file path. The caller must call Close when the provider is no
// longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &NativeProvider{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model.
func (p *NativeProvider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe decodes the WAV clip, resamples it to the 16 kHz mono float32
// format whisper.cpp expects, runs inference, and assembles the segment
// texts into a Result with per-token timing.
//
// Cancellation is honoured before inference starts; a running inference
// cannot be interrupted and is allowed to complete.
func (p *NativeProvider) Transcribe(ctx context.Context, audio []byte, req stt.Request) (*stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	pcm, sampleRate, channels, err := parseWAV(audio)
	if err != nil {
		return nil, fmt.Errorf("whisper: decode clip: %w", err)
	}

	samples := pcmToFloat32Mono(pcm, channels)
	if sampleRate != whisperSampleRate {
		samples = resampleLinear(samples, sampleRate, whisperSampleRate)
	}

	lang := req.Language
	if lang == "" {
		lang = p.language
	}

	// Each context is NOT thread-safe, but the model can be shared.
	wctx, err := p.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("whisper: set language %q: %w", lang, err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var (
		parts  []string
		tokens []stt.Token
	)
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		tokens = append(tokens, segmentTokens(text, segment.Start, segment.End)...)
	}

	return &stt.Result{
		Text:     strings.Join(parts, " "),
		Tokens:   tokens,
		Language: lang,
	}, nil
}

// segmentTokens splits one segment's text into word tokens, spreading the
// segment's time span evenly across them. whisper.cpp reports timing per
// segment, not per word, so this is an approximation good enough for
// annotation and review purposes.
func segmentTokens(text string, start, end time.Duration) []stt.Token {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	span := end - start
	if span < 0 {
		span = 0
	}
	per := span / time.Duration(len(words))
	tokens := make([]stt.Token, len(words))
	for i, w := range words {
		tokens[i] = stt.Token{
			Text:  w,
			Start: start + time.Duration(i)*per,
			End:   start + time.Duration(i+1)*per,
		}
	}
	return tokens
}
