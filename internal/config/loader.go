package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidBackendNames lists the backend names that ship with the binary.
// Used by [Validate] to warn about unrecognised names.
var ValidBackendNames = []string{
	"whisper", "whisper-native", "openai", "gemini", "openrouter",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found; soft issues are logged
// as warnings instead.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Page.URL == "" {
		errs = append(errs, errors.New("page.url is required"))
	}
	if cfg.Page.Headless {
		slog.Warn("page.headless is set; the human reviewer will not see the browser")
	}

	if cfg.Backends.Primary.Name == "" {
		errs = append(errs, errors.New("backends.primary.name is required"))
	}
	errs = append(errs, validateBackend("backends.primary", cfg.Backends.Primary)...)
	for i, entry := range cfg.Backends.Fallbacks {
		prefix := fmt.Sprintf("backends.fallbacks[%d]", i)
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		errs = append(errs, validateBackend(prefix, entry)...)
	}
	if cfg.Backends.BreakerThreshold < 0 {
		errs = append(errs, fmt.Errorf("backends.breaker_threshold %d must not be negative", cfg.Backends.BreakerThreshold))
	}

	c := cfg.Controller
	for _, d := range []struct {
		name  string
		value any
		bad   bool
	}{
		{"controller.auth_poll_interval", c.AuthPollInterval, c.AuthPollInterval < 0},
		{"controller.submit_poll_interval", c.SubmitPollInterval, c.SubmitPollInterval < 0},
		{"controller.submit_timeout", c.SubmitTimeout, c.SubmitTimeout < 0},
		{"controller.inter_clip_delay", c.InterClipDelay, c.InterClipDelay < 0},
		{"controller.retry_attempts", c.RetryAttempts, c.RetryAttempts < 0},
		{"controller.retry_delay", c.RetryDelay, c.RetryDelay < 0},
	} {
		if d.bad {
			errs = append(errs, fmt.Errorf("%s %v must not be negative", d.name, d.value))
		}
	}

	a := cfg.Annotator
	if a.FuzzyThreshold < 0 || a.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("annotator.fuzzy_threshold %.2f is out of range [0, 1]", a.FuzzyThreshold))
	}
	if a.Strict {
		slog.Warn("annotator.strict is set; secondary-language words will be removed from drafts")
	}
	if a.PrimaryLanguage != "" && a.PrimaryLanguage == a.SecondaryLanguage {
		errs = append(errs, fmt.Errorf("annotator.primary_language and secondary_language are both %q", a.PrimaryLanguage))
	}

	return errors.Join(errs...)
}

// validateBackend checks one backend entry and warns about unknown names.
func validateBackend(prefix string, entry BackendEntry) []error {
	var errs []error
	if entry.Name == "" {
		return nil
	}

	if !slices.Contains(ValidBackendNames, entry.Name) {
		slog.Warn("unknown backend name, may be a typo",
			"entry", prefix,
			"name", entry.Name,
			"known", ValidBackendNames,
		)
	}

	switch entry.Name {
	case "openai", "gemini", "openrouter":
		if entry.APIKey == "" {
			errs = append(errs, fmt.Errorf("%s.api_key is required for backend %q", prefix, entry.Name))
		}
	case "whisper":
		if entry.BaseURL == "" {
			errs = append(errs, fmt.Errorf("%s.base_url is required for backend %q", prefix, entry.Name))
		}
	case "whisper-native":
		if entry.Model == "" {
			errs = append(errs, fmt.Errorf("%s.model (model file path) is required for backend %q", prefix, entry.Name))
		}
	}
	return errs
}
