// Package config provides the configuration schema, loader, and backend
// registry for the kalamu transcription session.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Page       PageConfig       `yaml:"page"`
	Backends   BackendsConfig   `yaml:"backends"`
	Controller ControllerConfig `yaml:"controller"`
	Annotator  AnnotatorConfig  `yaml:"annotator"`
}

// ServerConfig holds the ops HTTP listener and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the ops listener (healthz, readyz,
	// metrics) binds to (e.g., ":8080"). Empty disables the listener.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// PageConfig describes the transcription web page being driven.
type PageConfig struct {
	// URL is the address of the transcription work page.
	URL string `yaml:"url"`

	// Headless runs the browser without a window. Leave false so the human
	// can review drafts; headless is only useful for tests.
	Headless bool `yaml:"headless"`
}

// BackendsConfig declares which transcription backend to use and, optionally,
// fallbacks tried in order when it fails.
type BackendsConfig struct {
	// Primary is the transcription backend used first.
	Primary BackendEntry `yaml:"primary"`

	// Fallbacks are tried in order when the primary fails or its circuit
	// breaker is open.
	Fallbacks []BackendEntry `yaml:"fallbacks"`

	// BreakerThreshold is the number of consecutive failures before a
	// backend's circuit breaker opens. Default: 3.
	BreakerThreshold int `yaml:"breaker_threshold"`

	// BreakerCooldown is how long an open breaker rejects calls before
	// admitting a probe. Default: 60s.
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// BackendEntry is the common configuration block shared by all transcription
// backends. The Name field is used to look up the constructor in the
// [Registry].
type BackendEntry struct {
	// Name selects the registered backend implementation
	// (e.g., "whisper", "whisper-native", "openai", "gemini", "openrouter").
	Name string `yaml:"name"`

	// APIKey is the authentication key for API-based backends.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default endpoint. For "whisper" this
	// is the whisper-server address; for "whisper-native" it is unused.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the backend (e.g., "whisper-1",
	// "gemini-2.0-flash"). For "whisper-native" it is the model file path.
	Model string `yaml:"model"`

	// Language is the BCP-47 tag of the clips' primary language. Default: "sw".
	Language string `yaml:"language"`

	// Options holds backend-specific values not covered by the standard
	// fields above.
	Options map[string]any `yaml:"options"`
}

// ControllerConfig tunes the session control loop.
type ControllerConfig struct {
	// AuthPollInterval is the delay between authentication checks while
	// waiting for the human to log in. Default: 2s.
	AuthPollInterval time.Duration `yaml:"auth_poll_interval"`

	// SubmitPollInterval is the delay between submission checks while a
	// draft awaits human review. Default: 2s.
	SubmitPollInterval time.Duration `yaml:"submit_poll_interval"`

	// SubmitTimeout bounds the wait for one clip's submission. Zero means
	// wait indefinitely. Default: 10m.
	SubmitTimeout time.Duration `yaml:"submit_timeout"`

	// InterClipDelay is the pause after a submission before fetching the
	// next clip, giving the page time to advance. Default: 3s.
	InterClipDelay time.Duration `yaml:"inter_clip_delay"`

	// RetryAttempts is the number of transcription tries per clip,
	// including the first. Default: 3.
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryDelay is the backoff before the second transcription attempt;
	// it doubles after each further failure. Default: 1s.
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// AnnotatorConfig tunes the code-switch annotator.
type AnnotatorConfig struct {
	// PrimaryLanguage is the matrix language of the clips. Default: "sw".
	PrimaryLanguage string `yaml:"primary_language"`

	// SecondaryLanguage is the embedded language marked in the output.
	// Default: "en".
	SecondaryLanguage string `yaml:"secondary_language"`

	// Marker is the string wrapped around secondary-language runs.
	// Default: "[cs]".
	Marker string `yaml:"marker"`

	// Strict removes secondary-language words from the draft instead of
	// marking them.
	Strict bool `yaml:"strict"`

	// FuzzyThreshold overrides the Jaro-Winkler similarity threshold for
	// fuzzy lexicon matching. Zero keeps the built-in default; 1.0 disables
	// fuzzy matching.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}
