// Package controller drives the transcription session: it walks clips from
// the work page through download, transcription, code-switch annotation, and
// human review, one clip at a time.
//
// The controller is a state machine. It starts in awaiting_auth and polls
// until the human logs in, then cycles fetching → transcribing → annotating
// → awaiting_submit per clip until the page reports the queue is empty. A
// clip whose download or transcription fails is skipped with a logged error;
// a single bad clip never stops the batch. Cancellation is observed between
// polls and at every state transition, never mid-write.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/kalamu/internal/annotate"
	"github.com/MrWong99/kalamu/internal/fetch"
	"github.com/MrWong99/kalamu/internal/observe"
	"github.com/MrWong99/kalamu/internal/page"
	"github.com/MrWong99/kalamu/internal/resilience"
	"github.com/MrWong99/kalamu/pkg/provider/stt"
)

// errSubmitTimeout marks a clip whose review wait exceeded the configured
// bound. The clip is skipped like any other per-clip failure.
var errSubmitTimeout = errors.New("controller: submission wait timed out")

// Config tunes the control loop's polling and retry behaviour. Zero values
// fall back to defaults.
type Config struct {
	// AuthPollInterval is the delay between authentication checks.
	// Default: 2s.
	AuthPollInterval time.Duration

	// SubmitPollInterval is the delay between submission checks.
	// Default: 2s.
	SubmitPollInterval time.Duration

	// SubmitTimeout bounds the wait for one clip's submission; the clip is
	// skipped when it elapses. Zero waits indefinitely.
	SubmitTimeout time.Duration

	// InterClipDelay is the pause after a submission before fetching the
	// next clip. Default: 3s.
	InterClipDelay time.Duration

	// RetryAttempts is the number of transcription tries per clip,
	// including the first. Default: 3.
	RetryAttempts int

	// RetryDelay is the backoff before the second transcription attempt.
	// Default: 1s.
	RetryDelay time.Duration

	// Language is the BCP-47 tag sent to the backend as the expected
	// primary language. Default: "sw".
	Language string
}

func (c Config) withDefaults() Config {
	if c.AuthPollInterval <= 0 {
		c.AuthPollInterval = 2 * time.Second
	}
	if c.SubmitPollInterval <= 0 {
		c.SubmitPollInterval = 2 * time.Second
	}
	if c.InterClipDelay <= 0 {
		c.InterClipDelay = 3 * time.Second
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.Language == "" {
		c.Language = "sw"
	}
	return c
}

// Controller owns the session state and sequences one clip at a time. At
// most one clip is in flight; the next clip's cycle never starts before the
// current clip's submission (or skip) completes.
type Controller struct {
	adapter    page.Adapter
	provider   stt.Provider
	annotator  *annotate.Annotator
	downloader *fetch.Downloader
	metrics    *observe.Metrics
	cfg        Config

	state     stateVar
	submitted atomic64
	skipped   atomic64
}

// New creates a Controller. adapter, provider, and annotator are required;
// downloader defaults to fetch.New() and metrics to observe.DefaultMetrics()
// when nil.
func New(adapter page.Adapter, provider stt.Provider, annotator *annotate.Annotator, downloader *fetch.Downloader, metrics *observe.Metrics, cfg Config) (*Controller, error) {
	if adapter == nil {
		return nil, errors.New("controller: adapter must not be nil")
	}
	if provider == nil {
		return nil, errors.New("controller: provider must not be nil")
	}
	if annotator == nil {
		return nil, errors.New("controller: annotator must not be nil")
	}
	if downloader == nil {
		downloader = fetch.New()
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Controller{
		adapter:    adapter,
		provider:   provider,
		annotator:  annotator,
		downloader: downloader,
		metrics:    metrics,
		cfg:        cfg.withDefaults(),
	}, nil
}

// State returns the controller's current state. Safe to call from other
// goroutines while Run is active.
func (c *Controller) State() State { return c.state.get() }

// Submitted returns the number of clips the human submitted this run.
func (c *Controller) Submitted() int64 { return c.submitted.get() }

// Skipped returns the number of clips skipped due to per-clip errors.
func (c *Controller) Skipped() int64 { return c.skipped.get() }

// Run executes the session until the clip queue is exhausted or ctx is
// cancelled. It returns nil on clean completion and ctx.Err() on
// cancellation; any other error is an unrecoverable page failure.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.awaitAuth(ctx); err != nil {
		c.state.set(StateCancelled)
		return err
	}
	slog.Info("session authenticated, starting clip loop")

	for {
		c.state.set(StateFetching)
		if err := ctx.Err(); err != nil {
			c.state.set(StateCancelled)
			return err
		}

		clip, err := c.adapter.NextClip(ctx)
		switch {
		case errors.Is(err, page.ErrNoMoreClips):
			c.state.set(StateDone)
			slog.Info("clip queue exhausted",
				"submitted", c.Submitted(),
				"skipped", c.Skipped())
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			c.state.set(StateCancelled)
			return err
		case err != nil:
			// Page interaction errors skip the clip slot and continue.
			slog.Error("failed to fetch clip, skipping", "error", err)
			c.skipped.add(1)
			c.metrics.RecordClipProcessed(ctx, "skipped")
			if !sleepCtx(ctx, c.cfg.InterClipDelay) {
				c.state.set(StateCancelled)
				return ctx.Err()
			}
			continue
		}

		if err := c.processClip(ctx, clip); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.state.set(StateCancelled)
				return err
			}
			slog.Error("clip failed, skipping",
				"clip_id", clip.ID,
				"error", err)
			c.skipped.add(1)
			c.metrics.RecordClipProcessed(ctx, "skipped")
		} else {
			c.submitted.add(1)
			c.metrics.RecordClipProcessed(ctx, "submitted")
		}

		if !sleepCtx(ctx, c.cfg.InterClipDelay) {
			c.state.set(StateCancelled)
			return ctx.Err()
		}
	}
}

// awaitAuth polls IsAuthenticated at the configured interval until the human
// completes login or ctx is cancelled. Auth pending is a wait condition, not
// an error.
func (c *Controller) awaitAuth(ctx context.Context) error {
	c.state.set(StateAwaitingAuth)
	logged := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ok, err := c.adapter.IsAuthenticated(ctx)
		if err != nil {
			slog.Warn("auth check failed, retrying", "error", err)
		} else if ok {
			return nil
		} else if !logged {
			slog.Info("waiting for login, complete it in the browser window")
			logged = true
		}

		if !sleepCtx(ctx, c.cfg.AuthPollInterval) {
			return ctx.Err()
		}
	}
}

// processClip runs one clip's full cycle: download, transcribe with retry,
// annotate, write the draft exactly once, and wait for the human submission
// signal.
func (c *Controller) processClip(ctx context.Context, clip *page.Clip) error {
	c.metrics.ClipsInFlight.Add(ctx, 1)
	defer c.metrics.ClipsInFlight.Add(ctx, -1)

	c.state.set(StateTranscribing)
	slog.Info("processing clip", "clip_id", clip.ID, "audio_url", clip.AudioURL)

	audio, mimeType, err := c.download(ctx, clip)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	result, err := c.transcribe(ctx, audio, mimeType)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	c.state.set(StateAnnotating)
	draft := c.annotator.Annotate(result.TokenSequence())
	if spans := strings.Count(draft, c.annotator.Marker()) / 2; spans > 0 {
		c.metrics.CodeSwitchSpans.Add(ctx, int64(spans))
	}
	slog.Info("draft ready", "clip_id", clip.ID, "draft", draft)

	c.state.set(StateAwaitingSubmit)
	if err := ctx.Err(); err != nil {
		// Cancelled before any write; the clip is discarded, not submitted.
		return err
	}
	if err := c.adapter.WriteDraft(ctx, clip, draft); err != nil {
		return fmt.Errorf("write draft: %w", err)
	}

	return c.awaitSubmission(ctx, clip)
}

// download fetches the clip's audio bytes over the page session.
func (c *Controller) download(ctx context.Context, clip *page.Clip) ([]byte, string, error) {
	cookies, err := c.adapter.Cookies(ctx)
	if err != nil {
		slog.Warn("could not read session cookies, downloading without them", "error", err)
		cookies = []*http.Cookie{}
	}

	start := time.Now()
	audio, mimeType, err := c.downloader.Download(ctx, clip.AudioURL, cookies)
	c.metrics.DownloadDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return nil, "", err
	}
	return audio, mimeType, nil
}

// transcribe invokes the backend with bounded retries. The call itself is
// not interrupted mid-flight; cancellation is honoured between attempts.
func (c *Controller) transcribe(ctx context.Context, audio []byte, mimeType string) (*stt.Result, error) {
	req := stt.Request{
		Language: c.cfg.Language,
		MIMEType: mimeType,
	}

	var result *stt.Result
	start := time.Now()
	err := resilience.Retry(ctx, resilience.RetryConfig{
		Attempts:     c.cfg.RetryAttempts,
		InitialDelay: c.cfg.RetryDelay,
	}, func() error {
		var callErr error
		result, callErr = c.provider.Transcribe(ctx, audio, req)
		return callErr
	})
	c.metrics.TranscribeDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return result, nil
}

// awaitSubmission polls for the human submission signal at the configured
// interval. The wait ends on submission, cancellation, or the submit
// timeout; no further writes happen for this clip in any case.
func (c *Controller) awaitSubmission(ctx context.Context, clip *page.Clip) error {
	start := time.Now()
	var deadline time.Time
	if c.cfg.SubmitTimeout > 0 {
		deadline = start.Add(c.cfg.SubmitTimeout)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := c.adapter.Submitted(ctx, clip)
		if err != nil {
			slog.Warn("submission check failed, retrying", "clip_id", clip.ID, "error", err)
		} else if done {
			c.metrics.ReviewDuration.Record(ctx, time.Since(start).Seconds())
			slog.Info("clip submitted", "clip_id", clip.ID, "review_duration", time.Since(start))
			return nil
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return errSubmitTimeout
		}
		if !sleepCtx(ctx, c.cfg.SubmitPollInterval) {
			return ctx.Err()
		}
	}
}

// sleepCtx sleeps for d unless ctx is cancelled first; it reports whether
// the full sleep completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
