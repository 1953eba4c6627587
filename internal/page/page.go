// Package page defines the Adapter interface through which the session
// controller interacts with the transcription web page.
//
// The adapter hides all browser mechanics: authentication checks, clip
// discovery, writing the draft into the input surface, and detecting the
// human submission signal. The controller only sequences these operations;
// it never touches the DOM.
package page

import (
	"context"
	"errors"
	"net/http"
)

// ErrNoMoreClips is returned by NextClip when the work queue is exhausted.
// It signals clean completion, not a failure.
var ErrNoMoreClips = errors.New("page: no more clips")

// ErrNoAudioSource is returned by NextClip when a clip is presented on the
// page but no audio URL can be located for it.
var ErrNoAudioSource = errors.New("page: no audio source found")

// Clip references one audio item awaiting transcription.
type Clip struct {
	// ID is the page's identifier for the clip, used to detect advancement.
	// May be empty when the page exposes none.
	ID string

	// AudioURL is the resolved URL of the clip's audio file.
	AudioURL string

	// PageURL is the page address the clip was discovered on. Submission
	// detection compares against it.
	PageURL string
}

// Adapter exposes the page operations the session controller needs.
//
// Implementations are driven from a single goroutine; they do not need to
// be safe for concurrent use.
type Adapter interface {
	// IsAuthenticated reports whether a logged-in session is active. It
	// returns false, not an error, while the human has not completed login.
	IsAuthenticated(ctx context.Context) (bool, error)

	// NextClip locates the current clip and its audio source. It returns
	// ErrNoMoreClips when the queue is exhausted and ErrNoAudioSource when a
	// clip is shown without a locatable audio URL.
	NextClip(ctx context.Context) (*Clip, error)

	// WriteDraft replaces the content of the clip's transcript input surface
	// with text. The human may edit it freely afterwards.
	WriteDraft(ctx context.Context, clip *Clip, text string) error

	// Submitted reports whether the human has submitted the clip since
	// WriteDraft. It is a single poll; the controller owns the polling loop.
	Submitted(ctx context.Context, clip *Clip) (bool, error)

	// Cookies returns the browser session's cookies so audio downloads can
	// reuse the authenticated session.
	Cookies(ctx context.Context) ([]*http.Cookie, error)
}
