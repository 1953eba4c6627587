// Command kalamu drives an assisted transcription session: it fetches clips
// from a review web page, produces code-switch-annotated draft transcripts,
// and waits for the human reviewer to submit each one.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/kalamu/internal/annotate"
	"github.com/MrWong99/kalamu/internal/config"
	"github.com/MrWong99/kalamu/internal/controller"
	"github.com/MrWong99/kalamu/internal/fetch"
	"github.com/MrWong99/kalamu/internal/health"
	"github.com/MrWong99/kalamu/internal/observe"
	"github.com/MrWong99/kalamu/internal/page"
	browser "github.com/MrWong99/kalamu/internal/page/chromedp"
	"github.com/MrWong99/kalamu/internal/resilience"
	"github.com/MrWong99/kalamu/pkg/provider/stt"
	"github.com/MrWong99/kalamu/pkg/provider/stt/gemini"
	"github.com/MrWong99/kalamu/pkg/provider/stt/openai"
	"github.com/MrWong99/kalamu/pkg/provider/stt/openrouter"
	"github.com/MrWong99/kalamu/pkg/provider/stt/whisper"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	pageURL := flag.String("url", "", "transcription page URL (overrides page.url)")
	method := flag.String("method", "", "transcription backend name (overrides backends.primary.name)")
	apiKey := flag.String("api-key", "", "API key for the primary backend (overrides backends.primary.api_key)")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "kalamu: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "kalamu: %v\n", err)
		}
		return 1
	}
	applyFlagOverrides(cfg, *pageURL, *method, *apiKey)

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("kalamu starting",
		"version", version,
		"config", *configPath,
		"page_url", cfg.Page.URL,
		"backend", cfg.Backends.Primary.Name,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics provider ──────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "kalamu",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// ── Transcription backends ────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinBackends(reg)

	chain, err := buildProviderChain(cfg, reg)
	if err != nil {
		slog.Error("failed to build transcription backends", "err", err)
		return 1
	}

	// ── Browser session ───────────────────────────────────────────────────────
	adapter, err := browser.New(ctx, cfg.Page.URL, browser.WithHeadless(cfg.Page.Headless))
	if err != nil {
		slog.Error("failed to start browser", "err", err)
		return 1
	}
	defer adapter.Close()

	// ── Controller ────────────────────────────────────────────────────────────
	annotator := buildAnnotator(cfg.Annotator)
	ctrl, err := controller.New(adapter, chain, annotator, fetch.New(), observe.DefaultMetrics(), controller.Config{
		AuthPollInterval:   cfg.Controller.AuthPollInterval,
		SubmitPollInterval: cfg.Controller.SubmitPollInterval,
		SubmitTimeout:      cfg.Controller.SubmitTimeout,
		InterClipDelay:     cfg.Controller.InterClipDelay,
		RetryAttempts:      cfg.Controller.RetryAttempts,
		RetryDelay:         cfg.Controller.RetryDelay,
		Language:           cfg.Backends.Primary.Language,
	})
	if err != nil {
		slog.Error("failed to initialise controller", "err", err)
		return 1
	}

	// ── Run ───────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	var opsServer *http.Server
	if cfg.Server.ListenAddr != "" {
		opsServer = newOpsServer(cfg.Server.ListenAddr, adapter, chain, ctrl)
		g.Go(func() error {
			slog.Info("ops listener started", "addr", cfg.Server.ListenAddr)
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("ops listener: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			if opsServer != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				opsServer.Shutdown(shutdownCtx)
			}
		}()
		return ctrl.Run(gctx)
	})

	slog.Info("session ready, press Ctrl+C to stop")

	err = g.Wait()
	switch {
	case err == nil:
		slog.Info("all clips processed",
			"submitted", ctrl.Submitted(),
			"skipped", ctrl.Skipped())
		return 0
	case errors.Is(err, context.Canceled):
		slog.Info("interrupted, stopping without further writes",
			"submitted", ctrl.Submitted(),
			"skipped", ctrl.Skipped())
		return 0
	default:
		slog.Error("run error", "err", err)
		return 1
	}
}

// applyFlagOverrides lets the common per-run settings be given on the
// command line without editing the config file.
func applyFlagOverrides(cfg *config.Config, pageURL, method, apiKey string) {
	if pageURL != "" {
		cfg.Page.URL = pageURL
	}
	if method != "" {
		cfg.Backends.Primary.Name = method
	}
	if apiKey != "" {
		cfg.Backends.Primary.APIKey = apiKey
	}
}

// ── Backend wiring ────────────────────────────────────────────────────────────

// registerBuiltinBackends wires all built-in transcription backend factories
// into reg. Each factory receives a config.BackendEntry and constructs the
// backend from the real implementation packages.
func registerBuiltinBackends(reg *config.Registry) {
	reg.RegisterBackend("whisper", func(entry config.BackendEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterBackend("whisper-native", func(entry config.BackendEntry) (stt.Provider, error) {
		var opts []whisper.NativeOption
		if entry.Language != "" {
			opts = append(opts, whisper.WithNativeLanguage(entry.Language))
		}
		return whisper.NewNative(entry.Model, opts...)
	})

	reg.RegisterBackend("openai", func(entry config.BackendEntry) (stt.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, openai.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, openai.WithLanguage(entry.Language))
		}
		return openai.New(entry.APIKey, opts...)
	})

	reg.RegisterBackend("gemini", func(entry config.BackendEntry) (stt.Provider, error) {
		var opts []gemini.Option
		if entry.Model != "" {
			opts = append(opts, gemini.WithModel(entry.Model))
		}
		return gemini.New(context.Background(), entry.APIKey, opts...)
	})

	reg.RegisterBackend("openrouter", func(entry config.BackendEntry) (stt.Provider, error) {
		var opts []openrouter.Option
		if entry.BaseURL != "" {
			opts = append(opts, openrouter.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, openrouter.WithModel(entry.Model))
		}
		return openrouter.New(entry.APIKey, opts...)
	})
}

// buildProviderChain instantiates the primary backend and any fallbacks and
// composes them behind per-backend circuit breakers.
func buildProviderChain(cfg *config.Config, reg *config.Registry) (*resilience.Chain, error) {
	primary, err := reg.CreateBackend(cfg.Backends.Primary)
	if err != nil {
		return nil, fmt.Errorf("create backend %q: %w", cfg.Backends.Primary.Name, err)
	}
	slog.Info("backend created", "name", cfg.Backends.Primary.Name, "role", "primary")

	chain := resilience.NewChain(cfg.Backends.Primary.Name, primary, resilience.BreakerConfig{
		Threshold: cfg.Backends.BreakerThreshold,
		Cooldown:  cfg.Backends.BreakerCooldown,
	}, resilience.WithMetrics(observe.DefaultMetrics()))
	for _, entry := range cfg.Backends.Fallbacks {
		fb, err := reg.CreateBackend(entry)
		if err != nil {
			return nil, fmt.Errorf("create fallback backend %q: %w", entry.Name, err)
		}
		chain.AddFallback(entry.Name, fb)
		slog.Info("backend created", "name", entry.Name, "role", "fallback")
	}
	return chain, nil
}

// buildAnnotator assembles the code-switch annotator from its config block.
func buildAnnotator(cfg config.AnnotatorConfig) *annotate.Annotator {
	var lexOpts []annotate.LexiconOption
	if cfg.FuzzyThreshold > 0 {
		lexOpts = append(lexOpts, annotate.WithFuzzyThreshold(cfg.FuzzyThreshold))
	}

	opts := []annotate.Option{
		annotate.WithClassifier(annotate.NewLexicon(lexOpts...)),
	}
	if cfg.Strict {
		opts = append(opts, annotate.DropSecondary())
	}
	if cfg.PrimaryLanguage != "" && cfg.SecondaryLanguage != "" {
		opts = append(opts, annotate.WithLanguages(cfg.PrimaryLanguage, cfg.SecondaryLanguage))
	}
	if cfg.Marker != "" {
		opts = append(opts, annotate.WithMarker(cfg.Marker))
	}
	return annotate.New(opts...)
}

// ── Ops listener ──────────────────────────────────────────────────────────────

// newOpsServer serves the liveness, readiness, and metrics endpoints.
func newOpsServer(addr string, adapter page.Adapter, chain *resilience.Chain, ctrl *controller.Controller) *http.Server {
	checkers := []health.Checker{
		{
			Name: "browser",
			Check: func(ctx context.Context) error {
				_, err := adapter.IsAuthenticated(ctx)
				return err
			},
		},
		{
			Name: "backends",
			Check: func(context.Context) error {
				return chain.Healthy()
			},
		},
	}

	mux := http.NewServeMux()
	health.New(checkers, health.WithStateSource(func() string {
		return ctrl.State().String()
	})).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
