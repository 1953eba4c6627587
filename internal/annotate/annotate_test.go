package annotate

import (
	"strings"
	"testing"

	"github.com/MrWong99/kalamu/pkg/provider/stt"
)

func hinted(texts []string, secondary map[int]bool) []stt.Token {
	tokens := make([]stt.Token, len(texts))
	for i, t := range texts {
		lang := "sw"
		if secondary[i] {
			lang = "en"
		}
		tokens[i] = stt.Token{Text: t, Language: lang}
	}
	return tokens
}

func TestAnnotateMergesAdjacentSecondaryTokens(t *testing.T) {
	t.Parallel()

	a := New(WithLanguages("en", "sw"))
	tokens := hinted([]string{"hello", "poa", "sana", "bye"}, map[int]bool{})
	// Primary is English here, so the Swahili middle tokens form the run.
	tokens[1].Language = "sw"
	tokens[2].Language = "sw"
	tokens[0].Language = "en"
	tokens[3].Language = "en"

	got := a.Annotate(tokens)
	want := "hello [cs]poa sana[cs] bye"
	if got != want {
		t.Errorf("Annotate = %q, want %q", got, want)
	}
	if n := strings.Count(got, a.Marker()); n != 2 {
		t.Errorf("marker count = %d, want 2 (one merged span)", n)
	}
}

func TestAnnotateRoundTrip(t *testing.T) {
	t.Parallel()

	a := New()
	cases := [][]stt.Token{
		nil,
		{{Text: "habari"}},
		hinted([]string{"habari", "za", "asubuhi"}, map[int]bool{}),
		hinted([]string{"good", "morning", "habari"}, map[int]bool{0: true, 1: true}),
		hinted([]string{"okay", "sawa", "thanks"}, map[int]bool{0: true, 2: true}),
		{
			{Text: "sawa", Language: "sw"},
			{Text: "okay", Language: "en"},
			{Text: ",", Language: "en", NoSpaceBefore: true},
			{Text: "basi", Language: "sw"},
		},
	}

	for _, tokens := range cases {
		annotated := a.Annotate(tokens)
		var b strings.Builder
		for i, tok := range tokens {
			if i > 0 && !tok.NoSpaceBefore {
				b.WriteByte(' ')
			}
			b.WriteString(tok.Text)
		}
		if got := a.StripMarkers(annotated); got != b.String() {
			t.Errorf("StripMarkers(%q) = %q, want %q", annotated, got, b.String())
		}
	}
}

func TestAnnotateIdempotent(t *testing.T) {
	t.Parallel()

	a := New(WithClassifier(NewLexicon()))
	tokens := hinted([]string{"leo", "morning", "meeting", "ilikuwa", "nzuri"},
		map[int]bool{1: true, 2: true})

	first := a.Annotate(tokens)
	for range 5 {
		if got := a.Annotate(tokens); got != first {
			t.Fatalf("Annotate not idempotent: %q != %q", got, first)
		}
	}
}

func TestAnnotateMergingExactlyOneSpan(t *testing.T) {
	t.Parallel()

	a := New()
	tokens := hinted([]string{"a", "b", "c", "d"}, map[int]bool{1: true, 2: true})

	got := a.Annotate(tokens)
	want := "a [cs]b c[cs] d"
	if got != want {
		t.Errorf("Annotate = %q, want %q", got, want)
	}
}

func TestAnnotateSingleSecondaryToken(t *testing.T) {
	t.Parallel()

	a := New()
	tokens := hinted([]string{"habari", "okay", "sana"}, map[int]bool{1: true})

	got := a.Annotate(tokens)
	want := "habari [cs]okay[cs] sana"
	if got != want {
		t.Errorf("Annotate = %q, want %q", got, want)
	}
}

func TestAnnotateRunAtEdges(t *testing.T) {
	t.Parallel()

	a := New()

	t.Run("leading", func(t *testing.T) {
		t.Parallel()
		tokens := hinted([]string{"okay", "sawa"}, map[int]bool{0: true})
		if got, want := a.Annotate(tokens), "[cs]okay[cs] sawa"; got != want {
			t.Errorf("Annotate = %q, want %q", got, want)
		}
	})

	t.Run("trailing", func(t *testing.T) {
		t.Parallel()
		tokens := hinted([]string{"sawa", "okay"}, map[int]bool{1: true})
		if got, want := a.Annotate(tokens), "sawa [cs]okay[cs]"; got != want {
			t.Errorf("Annotate = %q, want %q", got, want)
		}
	})

	t.Run("all secondary", func(t *testing.T) {
		t.Parallel()
		tokens := hinted([]string{"good", "morning"}, map[int]bool{0: true, 1: true})
		if got, want := a.Annotate(tokens), "[cs]good morning[cs]"; got != want {
			t.Errorf("Annotate = %q, want %q", got, want)
		}
	})
}

func TestAnnotateEmptyInput(t *testing.T) {
	t.Parallel()

	a := New()
	if got := a.Annotate(nil); got != "" {
		t.Errorf("Annotate(nil) = %q, want empty", got)
	}
	if got := a.Annotate([]stt.Token{}); got != "" {
		t.Errorf("Annotate(empty) = %q, want empty", got)
	}
}

func TestAnnotateHintPrecedence(t *testing.T) {
	t.Parallel()

	// Classifier says everything is secondary, but explicit primary hints win.
	a := New(WithClassifier(ClassifierFunc(func(string) bool { return true })))
	tokens := []stt.Token{
		{Text: "habari", Language: "sw"},
		{Text: "unhinted"},
		{Text: "sana", Language: "sw"},
	}

	got := a.Annotate(tokens)
	want := "habari [cs]unhinted[cs] sana"
	if got != want {
		t.Errorf("Annotate = %q, want %q", got, want)
	}
}

func TestAnnotateRegionalHintVariant(t *testing.T) {
	t.Parallel()

	a := New()
	tokens := []stt.Token{
		{Text: "sawa", Language: "sw-TZ"},
		{Text: "okay", Language: "en-US"},
	}

	got := a.Annotate(tokens)
	want := "sawa [cs]okay[cs]"
	if got != want {
		t.Errorf("Annotate = %q, want %q", got, want)
	}
}

func TestAnnotateCustomMarker(t *testing.T) {
	t.Parallel()

	a := New(WithMarker("<en>"))
	tokens := hinted([]string{"sawa", "okay"}, map[int]bool{1: true})

	got := a.Annotate(tokens)
	want := "sawa <en>okay<en>"
	if got != want {
		t.Errorf("Annotate = %q, want %q", got, want)
	}
	if stripped := a.StripMarkers(got); stripped != "sawa okay" {
		t.Errorf("StripMarkers = %q, want %q", stripped, "sawa okay")
	}
}

func TestAnnotateNoSpaceBefore(t *testing.T) {
	t.Parallel()

	a := New()
	tokens := []stt.Token{
		{Text: "nice", Language: "en"},
		{Text: "!", Language: "en", NoSpaceBefore: true},
		{Text: "asante", Language: "sw"},
	}

	got := a.Annotate(tokens)
	want := "[cs]nice![cs] asante"
	if got != want {
		t.Errorf("Annotate = %q, want %q", got, want)
	}
}

func TestAnnotateDropSecondary(t *testing.T) {
	t.Parallel()

	a := New(DropSecondary())
	tokens := hinted([]string{"habari", "okay", "sure", "gani"}, map[int]bool{1: true, 2: true})

	got := a.Annotate(tokens)
	want := "habari gani"
	if got != want {
		t.Errorf("Annotate = %q, want %q", got, want)
	}
}

func TestAnnotateDropSecondaryAtEdges(t *testing.T) {
	t.Parallel()

	a := New(DropSecondary())
	tokens := hinted([]string{"okay", "habari", "yes"}, map[int]bool{0: true, 2: true})

	if got := a.Annotate(tokens); got != "habari" {
		t.Errorf("Annotate = %q, want %q", got, "habari")
	}

	all := hinted([]string{"okay", "sure"}, map[int]bool{0: true, 1: true})
	if got := a.Annotate(all); got != "" {
		t.Errorf("Annotate = %q, want empty for all-secondary input", got)
	}
}
