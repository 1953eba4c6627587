// Package fetch downloads clip audio over the authenticated page session.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 60 * time.Second

	// defaultMaxBytes caps a single clip download. Review clips are short;
	// anything larger indicates a wrong URL or a runaway response.
	defaultMaxBytes = 64 << 20

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Option is a functional option for configuring a Downloader.
type Option func(*Downloader)

// WithTimeout sets the per-download HTTP timeout. Defaults to 60s.
func WithTimeout(d time.Duration) Option {
	return func(dl *Downloader) { dl.client.Timeout = d }
}

// WithMaxBytes caps the accepted response size. Defaults to 64 MiB.
func WithMaxBytes(n int64) Option {
	return func(dl *Downloader) { dl.maxBytes = n }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(dl *Downloader) { dl.client = c }
}

// Downloader fetches audio files, forwarding the browser session's cookies
// so protected clip URLs resolve. Safe for concurrent use.
type Downloader struct {
	client   *http.Client
	maxBytes int64
}

// New creates a Downloader.
func New(opts ...Option) *Downloader {
	dl := &Downloader{
		client:   &http.Client{Timeout: defaultTimeout},
		maxBytes: defaultMaxBytes,
	}
	for _, o := range opts {
		o(dl)
	}
	return dl
}

// Download fetches url with the given session cookies attached and returns
// the body together with its MIME type. The MIME type comes from the
// Content-Type header, falling back to a guess from the URL's extension and
// finally to "audio/wav".
func (dl *Downloader) Download(ctx context.Context, url string, cookies []*http.Cookie) (data []byte, mimeType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := dl.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: get %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch: get %q: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, dl.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("fetch: read body: %w", err)
	}
	if int64(len(body)) > dl.maxBytes {
		return nil, "", fmt.Errorf("fetch: response exceeds %d bytes", dl.maxBytes)
	}
	if len(body) == 0 {
		return nil, "", fmt.Errorf("fetch: empty response from %q", url)
	}

	return body, resolveMIME(resp.Header.Get("Content-Type"), url), nil
}

// resolveMIME picks the audio MIME type from the Content-Type header, the
// URL extension, or a WAV default, in that order.
func resolveMIME(contentType, url string) string {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasPrefix(mt, "audio/") {
			return mt
		}
	}

	path := url
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	switch {
	case strings.HasSuffix(path, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(path, ".ogg"), strings.HasSuffix(path, ".oga"):
		return "audio/ogg"
	case strings.HasSuffix(path, ".webm"):
		return "audio/webm"
	case strings.HasSuffix(path, ".m4a"), strings.HasSuffix(path, ".mp4"):
		return "audio/mp4"
	case strings.HasSuffix(path, ".flac"):
		return "audio/flac"
	default:
		return "audio/wav"
	}
}
