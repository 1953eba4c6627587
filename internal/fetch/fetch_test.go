package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDownloadForwardsCookies(t *testing.T) {
	t.Parallel()

	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil {
			gotCookie = c.Value
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	dl := New()
	data, mimeType, err := dl.Download(context.Background(), srv.URL+"/clip.mp3", []*http.Cookie{
		{Name: "session", Value: "abc123"},
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Errorf("data = %q, want %q", data, "mp3-bytes")
	}
	if mimeType != "audio/mpeg" {
		t.Errorf("mimeType = %q, want %q", mimeType, "audio/mpeg")
	}
	if gotCookie != "abc123" {
		t.Errorf("session cookie = %q, want %q", gotCookie, "abc123")
	}
}

func TestDownloadRejectsNonOK(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dl := New()
	if _, _, err := dl.Download(context.Background(), srv.URL, nil); err == nil {
		t.Error("expected error on HTTP 404, got nil")
	}
}

func TestDownloadSizeCap(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	dl := New(WithMaxBytes(1024))
	if _, _, err := dl.Download(context.Background(), srv.URL, nil); err == nil {
		t.Error("expected error for oversized response, got nil")
	}
}

func TestDownloadRejectsEmptyBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	dl := New()
	if _, _, err := dl.Download(context.Background(), srv.URL, nil); err == nil {
		t.Error("expected error for empty body, got nil")
	}
}

func TestResolveMIME(t *testing.T) {
	t.Parallel()

	cases := []struct {
		contentType, url, want string
	}{
		{"audio/ogg", "http://x/clip", "audio/ogg"},
		{"audio/mpeg; charset=binary", "http://x/clip", "audio/mpeg"},
		{"application/octet-stream", "http://x/clip.mp3", "audio/mpeg"},
		{"", "http://x/clip.ogg?sig=1", "audio/ogg"},
		{"", "http://x/clip.m4a", "audio/mp4"},
		{"text/html", "http://x/clip", "audio/wav"},
	}
	for _, tc := range cases {
		if got := resolveMIME(tc.contentType, tc.url); got != tc.want {
			t.Errorf("resolveMIME(%q, %q) = %q, want %q", tc.contentType, tc.url, got, tc.want)
		}
	}
}
