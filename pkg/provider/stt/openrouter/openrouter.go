// Package openrouter provides an STT provider backed by OpenRouter.
//
// OpenRouter exposes an OpenAI-compatible chat completions API, so the
// provider reuses the OpenAI SDK with an overridden base URL. The clip is
// embedded in the chat request as a base64 input-audio content part and the
// model is instructed to reply with the verbatim transcript.
package openrouter

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/MrWong99/kalamu/pkg/provider/stt"
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "google/gemini-2.0-flash-001"

	transcriptionPrompt = "Transcribe this audio verbatim. Output only the spoken words, " +
		"exactly as spoken, with no translation or commentary. " +
		"Keep every word in its original language."
)

// Option is a functional option for configuring a Provider.
type Option func(*config)

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	model   string
	timeout time.Duration
}

// WithBaseURL overrides the OpenRouter API base URL. Primarily used in tests
// to point at a local mock server.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithModel sets the audio-capable model routed to (e.g.,
// "google/gemini-2.0-flash-001").
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// Provider implements stt.Provider over OpenRouter's chat completions API.
type Provider struct {
	client oai.Client
	model  string
}

// New constructs a new OpenRouter STT Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openrouter: apiKey must not be empty")
	}

	cfg := &config{
		baseURL: defaultBaseURL,
		model:   defaultModel,
	}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.baseURL),
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  cfg.model,
	}, nil
}

// Transcribe sends the clip as a base64 input-audio chat part and returns
// the model's reply as the transcript.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, req stt.Request) (*stt.Result, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("openrouter: empty audio")
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = transcriptionPrompt
	}
	if req.Language != "" {
		prompt += " The primary language is " + req.Language + "."
	}

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage([]oai.ChatCompletionContentPartUnionParam{
				oai.TextContentPart(prompt),
				oai.InputAudioContentPart(oai.ChatCompletionContentPartInputAudioInputAudioParam{
					Data:   base64.StdEncoding.EncodeToString(audio),
					Format: audioFormat(req.MIMEType),
				}),
			}),
		},
		Temperature: param.NewOpt(0.0),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openrouter: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openrouter: empty choices in response")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("openrouter: empty transcript in response")
	}

	return &stt.Result{
		Text:     text,
		Language: req.Language,
	}, nil
}

// audioFormat maps a MIME type to the input_audio format field. The chat
// audio part only accepts "wav" and "mp3"; everything else is forwarded as
// "wav" and left to the routed model to reject.
func audioFormat(mimeType string) string {
	switch mimeType {
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	default:
		return "wav"
	}
}
