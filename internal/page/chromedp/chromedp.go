// Package chromedp implements page.Adapter on a headless Chrome session
// driven through the DevTools protocol.
//
// The adapter owns the browser lifecycle: construction launches Chrome and
// navigates to the work page, Close tears the browser down. All page
// inspection runs as injected JavaScript so the adapter works against the
// transcription site's markup without per-element selector wiring.
package chromedp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/cdproto/storage"
	cdp "github.com/chromedp/chromedp"

	"github.com/MrWong99/kalamu/internal/page"
)

// Compile-time assertion that Adapter implements page.Adapter.
var _ page.Adapter = (*Adapter)(nil)

const (
	// loginPathFragment appears in the page URL only while the login form is
	// shown; its absence is one of the signals that auth completed.
	loginPathFragment = "/login"

	defaultActionTimeout = 30 * time.Second
)

// Option is a functional option for configuring an Adapter.
type Option func(*Adapter)

// WithHeadless controls whether Chrome runs headless. Defaults to false:
// the human must see the page to review drafts and submit them.
func WithHeadless(headless bool) Option {
	return func(a *Adapter) { a.headless = headless }
}

// WithActionTimeout bounds each individual browser action. Defaults to 30s.
func WithActionTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.actionTimeout = d }
}

// Adapter drives the transcription page through a Chrome session.
type Adapter struct {
	pageURL       string
	headless      bool
	actionTimeout time.Duration

	browserCtx  context.Context
	cancelFuncs []context.CancelFunc
}

// New launches a Chrome session and navigates to pageURL. The caller must
// call Close when done.
func New(ctx context.Context, pageURL string, opts ...Option) (*Adapter, error) {
	if pageURL == "" {
		return nil, fmt.Errorf("chromedp: pageURL must not be empty")
	}

	a := &Adapter{
		pageURL:       pageURL,
		actionTimeout: defaultActionTimeout,
	}
	for _, o := range opts {
		o(a)
	}

	allocOpts := append([]cdp.ExecAllocatorOption{}, cdp.DefaultExecAllocatorOptions[:]...)
	if !a.headless {
		allocOpts = append(allocOpts,
			cdp.Flag("headless", false),
			cdp.Flag("hide-scrollbars", false),
			cdp.Flag("mute-audio", false),
		)
	}

	allocCtx, cancelAlloc := cdp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := cdp.NewContext(allocCtx)
	a.browserCtx = browserCtx
	a.cancelFuncs = []context.CancelFunc{cancelBrowser, cancelAlloc}

	if err := cdp.Run(browserCtx, cdp.Navigate(pageURL)); err != nil {
		a.Close()
		return nil, fmt.Errorf("chromedp: navigate to %q: %w", pageURL, err)
	}
	return a, nil
}

// Close shuts the browser down. Idempotent.
func (a *Adapter) Close() error {
	for _, cancel := range a.cancelFuncs {
		cancel()
	}
	a.cancelFuncs = nil
	return nil
}

// run executes browser actions with the per-action timeout, honouring ctx.
func (a *Adapter) run(ctx context.Context, actions ...cdp.Action) error {
	runCtx, cancel := context.WithTimeout(a.browserCtx, a.actionTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cdp.Run(runCtx, actions...) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

// IsAuthenticated reports whether the logged-in work view is showing. The
// session counts as authenticated when the page exposes a logout control or
// the transcript textarea, and the URL is no longer the login form.
func (a *Adapter) IsAuthenticated(ctx context.Context) (bool, error) {
	var loc string
	var hasWorkView bool
	err := a.run(ctx,
		cdp.Location(&loc),
		cdp.Evaluate(jsHasWorkView, &hasWorkView),
	)
	if err != nil {
		return false, fmt.Errorf("chromedp: check auth: %w", err)
	}
	if strings.Contains(loc, loginPathFragment) {
		return false, nil
	}
	return hasWorkView, nil
}

// NextClip inspects the current page for a clip and its audio source.
func (a *Adapter) NextClip(ctx context.Context) (*Clip, error) {
	var (
		loc      string
		audioURL string
		clipID   string
		hasInput bool
	)
	err := a.run(ctx,
		cdp.Location(&loc),
		cdp.Evaluate(jsAudioSource, &audioURL),
		cdp.Evaluate(jsClipID, &clipID),
		cdp.Evaluate(jsHasTextarea, &hasInput),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp: inspect clip: %w", err)
	}

	// No input surface and no audio means the work queue ran dry.
	if !hasInput && audioURL == "" {
		return nil, page.ErrNoMoreClips
	}
	if audioURL == "" {
		return nil, page.ErrNoAudioSource
	}

	return &page.Clip{
		ID:       clipID,
		AudioURL: audioURL,
		PageURL:  loc,
	}, nil
}

// WriteDraft replaces the transcript textarea content with text and fires an
// input event so the page registers the change.
func (a *Adapter) WriteDraft(ctx context.Context, clip *page.Clip, text string) error {
	var ok bool
	js := fmt.Sprintf(jsWriteDraft, jsString(text))
	if err := a.run(ctx, cdp.Evaluate(js, &ok)); err != nil {
		return fmt.Errorf("chromedp: write draft: %w", err)
	}
	if !ok {
		return fmt.Errorf("chromedp: write draft: no transcript input on page")
	}
	return nil
}

// Submitted reports whether the human submitted the clip: the textarea was
// cleared, the page advanced to a new clip ID, or the URL changed.
func (a *Adapter) Submitted(ctx context.Context, clip *page.Clip) (bool, error) {
	var (
		loc     string
		clipID  string
		content string
	)
	err := a.run(ctx,
		cdp.Location(&loc),
		cdp.Evaluate(jsClipID, &clipID),
		cdp.Evaluate(jsTextareaValue, &content),
	)
	if err != nil {
		return false, fmt.Errorf("chromedp: check submission: %w", err)
	}

	if strings.TrimSpace(content) == "" {
		return true, nil
	}
	if clip.ID != "" && clipID != clip.ID {
		return true, nil
	}
	if loc != clip.PageURL {
		return true, nil
	}
	return false, nil
}

// Cookies returns the browser session's cookies for authenticated downloads.
func (a *Adapter) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	var cookies []*http.Cookie
	err := a.run(ctx, cdp.ActionFunc(func(ctx context.Context) error {
		raw, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range raw {
			cookies = append(cookies, &http.Cookie{
				Name:   c.Name,
				Value:  c.Value,
				Domain: c.Domain,
				Path:   c.Path,
			})
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("chromedp: get cookies: %w", err)
	}
	return cookies, nil
}

// Clip is re-exported so callers constructing adapters do not need to import
// the parent package for the common case.
type Clip = page.Clip

// jsString encodes s as a JavaScript string literal.
func jsString(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	return `"` + r.Replace(s) + `"`
}

const (
	// jsHasWorkView detects the logged-in state: a logout control or the
	// transcript input surface.
	jsHasWorkView = `!!(document.querySelector('a[href*="logout"], button[id*="logout" i], [class*="logout" i]') ||
		document.querySelector('textarea'))`

	jsHasTextarea = `!!document.querySelector('textarea')`

	// jsAudioSource resolves the clip's audio URL from an audio element, a
	// nested source element, or any audio-typed source on the page.
	jsAudioSource = `(() => {
		const a = document.querySelector('audio');
		if (a) {
			if (a.src) return a.src;
			const s = a.querySelector('source');
			if (s && s.src) return s.src;
		}
		const s = document.querySelector('source[type^="audio"]');
		return (s && s.src) ? s.src : '';
	})()`

	// jsClipID extracts the clip identifier the page shows as "Id: ...".
	jsClipID = `(() => {
		for (const el of document.querySelectorAll('p, span, div, label')) {
			const t = (el.textContent || '').trim();
			if (t.startsWith('Id:') && el.children.length === 0) return t;
		}
		return '';
	})()`

	jsTextareaValue = `(() => {
		const ta = document.querySelector('textarea');
		return ta ? ta.value : '';
	})()`

	// jsWriteDraft sets the textarea value and fires an input event so
	// framework-bound pages register the change.
	jsWriteDraft = `(() => {
		const ta = document.querySelector('textarea');
		if (!ta) return false;
		ta.value = %s;
		ta.dispatchEvent(new Event('input', {bubbles: true}));
		ta.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})()`
)
