package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrWong99/kalamu/internal/annotate"
	"github.com/MrWong99/kalamu/internal/page"
	pagemock "github.com/MrWong99/kalamu/internal/page/mock"
	"github.com/MrWong99/kalamu/pkg/provider/stt"
	sttmock "github.com/MrWong99/kalamu/pkg/provider/stt/mock"
)

// fastConfig keeps test polls in the millisecond range.
func fastConfig() Config {
	return Config{
		AuthPollInterval:   time.Millisecond,
		SubmitPollInterval: time.Millisecond,
		InterClipDelay:     time.Millisecond,
		RetryAttempts:      2,
		RetryDelay:         time.Millisecond,
		Language:           "sw",
	}
}

// audioServer serves fake clip audio for the downloader.
func audioServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("fake-audio-bytes"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newController(t *testing.T, adapter page.Adapter, provider stt.Provider, a *annotate.Annotator, cfg Config) *Controller {
	t.Helper()
	if a == nil {
		a = annotate.New()
	}
	c, err := New(adapter, provider, a, nil, nil, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	srv := audioServer(t)
	adapter := &pagemock.Adapter{
		Clips: []*page.Clip{
			{ID: "Id: A", AudioURL: srv.URL + "/a.mp3", PageURL: srv.URL},
			{ID: "Id: B", AudioURL: srv.URL + "/b.mp3", PageURL: srv.URL},
		},
	}
	provider := &sttmock.Provider{
		Results: []*stt.Result{
			{Tokens: []stt.Token{
				{Text: "hello", Language: "en"},
				{Text: "poa", Language: "sw"},
				{Text: "sana", Language: "sw"},
				{Text: "bye", Language: "en"},
			}},
			{Text: "habari gani"},
		},
	}
	annotator := annotate.New(annotate.WithLanguages("en", "sw"))

	c := newController(t, adapter, provider, annotator, fastConfig())
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := c.State(); got != StateDone {
		t.Errorf("State = %v, want done", got)
	}
	if got := c.Submitted(); got != 2 {
		t.Errorf("Submitted = %d, want 2", got)
	}
	if got := c.Skipped(); got != 0 {
		t.Errorf("Skipped = %d, want 0", got)
	}

	if len(adapter.WriteDraftCalls) != 2 {
		t.Fatalf("WriteDraft calls = %d, want 2", len(adapter.WriteDraftCalls))
	}
	if got, want := adapter.WriteDraftCalls[0].Text, "hello [cs]poa sana[cs] bye"; got != want {
		t.Errorf("clip A draft = %q, want %q", got, want)
	}
	if got, want := adapter.WriteDraftCalls[1].Text, "habari gani"; got != want {
		t.Errorf("clip B draft = %q, want %q", got, want)
	}
}

func TestRunSkipsFailedClip(t *testing.T) {
	t.Parallel()

	srv := audioServer(t)
	adapter := &pagemock.Adapter{
		Clips: []*page.Clip{
			{ID: "Id: A", AudioURL: srv.URL + "/a.mp3"},
			{ID: "Id: B", AudioURL: srv.URL + "/b.mp3"},
		},
	}
	// Clip A fails on both retry attempts; clip B succeeds.
	backendErr := errors.New("backend down")
	provider := &sttmock.Provider{
		Errs:          []error{backendErr, backendErr},
		DefaultResult: &stt.Result{Text: "habari"},
	}

	c := newController(t, adapter, provider, nil, fastConfig())
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := c.Skipped(); got != 1 {
		t.Errorf("Skipped = %d, want 1", got)
	}
	if got := c.Submitted(); got != 1 {
		t.Errorf("Submitted = %d, want 1", got)
	}
	// The failed clip must never reach the page.
	if len(adapter.WriteDraftCalls) != 1 {
		t.Fatalf("WriteDraft calls = %d, want 1", len(adapter.WriteDraftCalls))
	}
	if adapter.WriteDraftCalls[0].Clip.ID != "Id: B" {
		t.Errorf("draft written for %q, want clip B only", adapter.WriteDraftCalls[0].Clip.ID)
	}
}

func TestRunSkipsClipWithoutAudio(t *testing.T) {
	t.Parallel()

	srv := audioServer(t)
	adapter := &pagemock.Adapter{
		Clips: []*page.Clip{
			nil, // scripted ErrNoAudioSource
			{ID: "Id: B", AudioURL: srv.URL + "/b.mp3"},
		},
	}
	provider := &sttmock.Provider{DefaultResult: &stt.Result{Text: "habari"}}

	c := newController(t, adapter, provider, nil, fastConfig())
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := c.Skipped(); got != 1 {
		t.Errorf("Skipped = %d, want 1", got)
	}
	if got := c.Submitted(); got != 1 {
		t.Errorf("Submitted = %d, want 1", got)
	}
}

func TestRunWaitsForAuth(t *testing.T) {
	t.Parallel()

	adapter := &pagemock.Adapter{
		AuthResults: []bool{false, false, true},
	}
	provider := &sttmock.Provider{}

	c := newController(t, adapter, provider, nil, fastConfig())
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if adapter.AuthCalls < 3 {
		t.Errorf("AuthCalls = %d, want at least 3", adapter.AuthCalls)
	}
	if got := c.State(); got != StateDone {
		t.Errorf("State = %v, want done", got)
	}
}

func TestRunCancelledWhileAwaitingSubmit(t *testing.T) {
	t.Parallel()

	srv := audioServer(t)
	never := make([]bool, 10_000)
	adapter := &pagemock.Adapter{
		Clips: []*page.Clip{
			{ID: "Id: A", AudioURL: srv.URL + "/a.mp3"},
			{ID: "Id: B", AudioURL: srv.URL + "/b.mp3"},
		},
		SubmitResults: never,
	}
	provider := &sttmock.Provider{DefaultResult: &stt.Result{Text: "habari"}}

	c := newController(t, adapter, provider, nil, fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Wait until the draft is on the page, then interrupt.
		for adapter.WriteDraftCallCount() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	err := c.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if got := c.State(); got != StateCancelled {
		t.Errorf("State = %v, want cancelled", got)
	}
	if got := c.Submitted(); got != 0 {
		t.Errorf("Submitted = %d, want 0", got)
	}
	// Only the one draft write happened; the second clip never started.
	if len(adapter.WriteDraftCalls) != 1 {
		t.Errorf("WriteDraft calls = %d, want 1", len(adapter.WriteDraftCalls))
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	adapter := &pagemock.Adapter{}
	c := newController(t, adapter, &sttmock.Provider{}, nil, fastConfig())

	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if adapter.NextClipCalls != 0 {
		t.Errorf("NextClip calls = %d, want 0", adapter.NextClipCalls)
	}
}

func TestRunSubmitTimeoutSkipsClip(t *testing.T) {
	t.Parallel()

	srv := audioServer(t)
	never := make([]bool, 10_000)
	adapter := &pagemock.Adapter{
		Clips: []*page.Clip{
			{ID: "Id: A", AudioURL: srv.URL + "/a.mp3"},
		},
		SubmitResults: never,
	}
	provider := &sttmock.Provider{DefaultResult: &stt.Result{Text: "habari"}}

	cfg := fastConfig()
	cfg.SubmitTimeout = 20 * time.Millisecond

	c := newController(t, adapter, provider, nil, cfg)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := c.Skipped(); got != 1 {
		t.Errorf("Skipped = %d, want 1 (submit timeout)", got)
	}
	if got := c.Submitted(); got != 0 {
		t.Errorf("Submitted = %d, want 0", got)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	cases := map[State]string{
		StateAwaitingAuth:   "awaiting_auth",
		StateFetching:       "fetching",
		StateTranscribing:   "transcribing",
		StateAnnotating:     "annotating",
		StateAwaitingSubmit: "awaiting_submit",
		StateDone:           "done",
		StateCancelled:      "cancelled",
		State(99):           "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	a := annotate.New()
	if _, err := New(nil, &sttmock.Provider{}, a, nil, nil, Config{}); err == nil {
		t.Error("expected error for nil adapter")
	}
	if _, err := New(&pagemock.Adapter{}, nil, a, nil, nil, Config{}); err == nil {
		t.Error("expected error for nil provider")
	}
	if _, err := New(&pagemock.Adapter{}, &sttmock.Provider{}, nil, nil, nil, Config{}); err == nil {
		t.Error("expected error for nil annotator")
	}
}
