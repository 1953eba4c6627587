// Package annotate marks code-switched spans in a transcript.
//
// The annotator walks a token sequence in a primary language, classifies each
// token as primary or secondary language, merges adjacent secondary tokens
// into runs, and wraps every run in a marker pair:
//
//	hello [cs]poa sana[cs] bye
//
// Classification prefers the per-token language hint supplied by the
// transcription backend; tokens without a hint fall back to the configured
// Classifier. Annotation is a pure function of its input: it never reorders,
// drops, or duplicates tokens, and stripping the markers from its output
// reproduces the plain transcript exactly.
package annotate

import (
	"strings"

	"github.com/MrWong99/kalamu/pkg/provider/stt"
)

// DefaultMarker is the marker wrapped around secondary-language runs.
const DefaultMarker = "[cs]"

// Classifier decides whether a single token text is in the secondary
// language. Implementations must be deterministic and safe for concurrent
// use.
type Classifier interface {
	Secondary(word string) bool
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(word string) bool

// Secondary implements Classifier.
func (f ClassifierFunc) Secondary(word string) bool { return f(word) }

// Option is a functional option for configuring an Annotator.
type Option func(*Annotator)

// WithMarker overrides the marker string wrapped around secondary runs.
// Defaults to [DefaultMarker].
func WithMarker(marker string) Option {
	return func(a *Annotator) {
		if marker != "" {
			a.marker = marker
		}
	}
}

// WithLanguages sets the primary and secondary language tags matched against
// per-token hints (e.g., "sw", "en"). Defaults to "sw"/"en".
func WithLanguages(primary, secondary string) Option {
	return func(a *Annotator) {
		a.primary = primary
		a.secondary = secondary
	}
}

// WithClassifier sets the fallback classifier used for tokens that carry no
// language hint. Defaults to a no-op classifier that treats every unhinted
// token as primary language.
func WithClassifier(c Classifier) Option {
	return func(a *Annotator) {
		if c != nil {
			a.classifier = c
		}
	}
}

// DropSecondary removes secondary-language tokens from the output instead of
// wrapping them in markers. The marker round-trip property does not hold in
// this mode; the output is the primary-language tokens only.
func DropSecondary() Option {
	return func(a *Annotator) { a.dropSecondary = true }
}

// Annotator marks secondary-language runs in token sequences. Safe for
// concurrent use once constructed.
type Annotator struct {
	marker        string
	primary       string
	secondary     string
	classifier    Classifier
	dropSecondary bool
}

// New creates an Annotator. Without options it marks nothing on its own:
// only tokens hinted "en" by the backend are wrapped. Pass a Classifier
// (such as [NewLexicon]) to enable lexical detection.
func New(opts ...Option) *Annotator {
	a := &Annotator{
		marker:     DefaultMarker,
		primary:    "sw",
		secondary:  "en",
		classifier: ClassifierFunc(func(string) bool { return false }),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Marker returns the configured marker string.
func (a *Annotator) Marker() string { return a.marker }

// Annotate classifies each token, merges adjacent secondary tokens into
// runs, and returns the transcript with every run wrapped in the marker
// pair. Empty input yields an empty string; it never fails.
func (a *Annotator) Annotate(tokens []stt.Token) string {
	if len(tokens) == 0 {
		return ""
	}
	if a.dropSecondary {
		return a.dropJoin(tokens)
	}

	var b strings.Builder
	inRun := false
	for i, tok := range tokens {
		secondary := a.isSecondary(tok)

		if i > 0 && !tok.NoSpaceBefore {
			if inRun && !secondary {
				// Close before the separating space so the marker stays
				// glued to the run's last token.
				b.WriteString(a.marker)
				inRun = false
				b.WriteByte(' ')
			} else {
				b.WriteByte(' ')
			}
		} else if inRun && !secondary {
			b.WriteString(a.marker)
			inRun = false
		}

		if secondary && !inRun {
			b.WriteString(a.marker)
			inRun = true
		}
		b.WriteString(tok.Text)
	}
	if inRun {
		b.WriteString(a.marker)
	}
	return b.String()
}

// dropJoin returns the primary-language tokens only. A kept token glued to a
// dropped neighbour gets a separating space anyway.
func (a *Annotator) dropJoin(tokens []stt.Token) string {
	var b strings.Builder
	droppedPrev := false
	for _, tok := range tokens {
		if a.isSecondary(tok) {
			droppedPrev = true
			continue
		}
		if b.Len() > 0 && (!tok.NoSpaceBefore || droppedPrev) {
			b.WriteByte(' ')
		}
		b.WriteString(tok.Text)
		droppedPrev = false
	}
	return b.String()
}

// StripMarkers removes every occurrence of the annotator's marker from s,
// recovering the plain transcript.
func (a *Annotator) StripMarkers(s string) string {
	return strings.ReplaceAll(s, a.marker, "")
}

// isSecondary applies hint precedence: a token hinted with the secondary
// language tag is secondary, one hinted with any other tag is primary, and
// an unhinted token is referred to the classifier.
func (a *Annotator) isSecondary(tok stt.Token) bool {
	if tok.Language != "" {
		return langBase(tok.Language) == langBase(a.secondary)
	}
	return a.classifier.Secondary(tok.Text)
}

// langBase reduces a BCP-47 tag to its lowercase base language ("en-US"
// matches "en").
func langBase(tag string) string {
	tag = strings.ToLower(tag)
	if i := strings.IndexByte(tag, '-'); i >= 0 {
		return tag[:i]
	}
	return tag
}
