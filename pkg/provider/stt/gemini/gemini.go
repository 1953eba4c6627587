// Package gemini provides an STT provider backed by the Gemini API.
//
// Gemini has no dedicated transcription endpoint; the clip is attached to a
// generateContent request as inline bytes together with a transcription
// instruction, and the model's text response is taken as the transcript.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/MrWong99/kalamu/pkg/provider/stt"
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

const (
	defaultModel = "gemini-2.0-flash"

	// transcriptionPrompt instructs the model to return the verbatim
	// transcript and nothing else. Without it Gemini tends to summarise
	// or translate mixed-language speech.
	transcriptionPrompt = "Transcribe this audio verbatim. Output only the spoken words, " +
		"exactly as spoken, with no translation, commentary, or punctuation cleanup. " +
		"Keep every word in its original language."
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the Gemini model used for transcription.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// Provider implements stt.Provider using Gemini's generateContent endpoint.
type Provider struct {
	client *genai.Client
	model  string
}

// New creates a Gemini STT Provider with the given API key.
func New(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: apiKey must not be empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	p := &Provider{
		client: client,
		model:  defaultModel,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe sends the clip as inline audio bytes together with a
// transcription instruction and returns the model's text response.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, req stt.Request) (*stt.Result, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("gemini: empty audio")
	}

	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = "audio/wav"
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = transcriptionPrompt
	}
	if req.Language != "" {
		prompt += " The primary language is " + req.Language + "."
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(audio, mimeType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	res, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return nil, fmt.Errorf("gemini: empty transcript in response")
	}

	return &stt.Result{
		Text:     text,
		Language: req.Language,
	}, nil
}
